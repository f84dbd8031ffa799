package service

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"repocard/clipboard"
	"repocard/config"
	"repocard/db"
	"repocard/fetcher"
	"repocard/github"
	"repocard/logger"
	"repocard/models"
	"repocard/reference"
	"repocard/render"
)

// SnapshotStore abstracts the snapshot log operations needed by the service
// (for testability)
type SnapshotStore interface {
	RecordSnapshot(ctx context.Context, snapshot models.Snapshot) error
	ListSnapshots(ctx context.Context, owner, name string, page models.PaginationParams) ([]models.Snapshot, error)
	LatestSnapshot(ctx context.Context, owner, name string) (*models.Snapshot, error)
	Close() error
}

// Service errors
var (
	ErrServiceInit       = fmt.Errorf("service initialization error")
	ErrServiceShutdown   = fmt.Errorf("service shutdown error")
	ErrSnapshotsDisabled = fmt.Errorf("snapshot log is disabled")
)

// Service wires the card components together
type Service struct {
	config    *config.Config
	client    fetcher.GitHubClientInterface
	snapshots SnapshotStore
	copier    *clipboard.Action
}

// Option configures a Service
type Option func(*Service)

// WithClient replaces the GitHub client
func WithClient(c fetcher.GitHubClientInterface) Option {
	return func(s *Service) { s.client = c }
}

// WithSnapshots replaces the snapshot log
func WithSnapshots(store SnapshotStore) Option {
	return func(s *Service) { s.snapshots = store }
}

// WithClipboard replaces the clipboard action
func WithClipboard(a *clipboard.Action) Option {
	return func(s *Service) { s.copier = a }
}

// NewService creates a new service instance from a loaded configuration
func NewService(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	s := &Service{config: cfg}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		client, err := github.NewClient(cfg.GitHubToken, cfg.APIURL, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to create GitHub client: %v", ErrServiceInit, err)
		}
		s.client = client
	}

	if s.snapshots == nil && cfg.SnapshotsEnabled {
		database, err := db.New(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to initialize database: %v", ErrServiceInit, err)
		}
		s.snapshots = database
	}

	if s.copier == nil {
		s.copier = clipboard.NewAction(clipboard.NewTerminal(), nil)
	}

	logger.Info("Service initialized successfully",
		zap.String("api_url", cfg.APIURL),
		zap.Duration("fetch_timeout", cfg.FetchTimeout),
		zap.Bool("snapshots_enabled", s.snapshots != nil))

	return s, nil
}

// NewController creates a card controller using the configured timeout and
// snapshot log. The caller owns it and must Close it.
func (s *Service) NewController() *fetcher.Controller {
	opts := []fetcher.Option{fetcher.WithTimeout(s.config.FetchTimeout)}
	if s.snapshots != nil {
		opts = append(opts, fetcher.WithRecorder(s.snapshots))
	}
	return fetcher.New(s.client, opts...)
}

// ShowOptions controls Show
type ShowOptions struct {
	Render render.Options
	// Copy copies the URL after rendering
	Copy bool
}

// Show fetches and renders a single card to out. Fetch and parse failures
// are rendered, not returned; the error is non-nil only if ctx ends first.
func (s *Service) Show(ctx context.Context, raw string, out io.Writer, opts ShowOptions) (fetcher.State, error) {
	ctrl := s.NewController()
	defer ctrl.Close()

	ctrl.SetReference(raw)
	st, err := ctrl.Wait(ctx)
	if err != nil {
		return st, err
	}

	fmt.Fprint(out, render.Card(st, opts.Render))

	if opts.Copy && st.Phase == fetcher.Success {
		s.Copy(ctx, raw)
	}
	return st, nil
}

// Copy runs the clipboard action for raw
func (s *Service) Copy(ctx context.Context, raw string) bool {
	return s.copier.Copy(ctx, raw)
}

// Watch reads one URL per line from in. Each line becomes the current
// reference and every committed state is rendered to out. It returns once in
// is exhausted and the last reference has settled.
func (s *Service) Watch(ctx context.Context, in io.Reader, out io.Writer, opts render.Options) error {
	ctrl := s.NewController()
	defer ctrl.Close()
	updates := ctrl.Subscribe()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				scanErr <- nil
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case st, ok := <-updates:
			if !ok {
				return nil
			}
			fmt.Fprint(out, render.Card(st, opts))

		case line, ok := <-lines:
			if !ok {
				if err := <-scanErr; err != nil {
					return fmt.Errorf("failed to read input: %w", err)
				}
				if ctrl.State().Phase == fetcher.Idle {
					return nil
				}
				if _, err := ctrl.Wait(ctx); err != nil {
					return err
				}
				select {
				case st := <-updates:
					fmt.Fprint(out, render.Card(st, opts))
				default:
				}
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			ctrl.SetReference(line)
		}
	}
}

// History lists recorded snapshots of the repository named by raw
func (s *Service) History(ctx context.Context, raw string, page models.PaginationParams) ([]models.Snapshot, error) {
	if s.snapshots == nil {
		return nil, ErrSnapshotsDisabled
	}
	ref, err := reference.Parse(raw)
	if err != nil {
		return nil, err
	}
	return s.snapshots.ListSnapshots(ctx, ref.Owner, ref.Name, page)
}

// Latest returns the most recent snapshot of the repository named by raw
func (s *Service) Latest(ctx context.Context, raw string) (*models.Snapshot, error) {
	if s.snapshots == nil {
		return nil, ErrSnapshotsDisabled
	}
	ref, err := reference.Parse(raw)
	if err != nil {
		return nil, err
	}
	return s.snapshots.LatestSnapshot(ctx, ref.Owner, ref.Name)
}

// Close performs cleanup operations
func (s *Service) Close() error {
	logger.Info("Closing service")
	if s.snapshots != nil {
		if err := s.snapshots.Close(); err != nil {
			return fmt.Errorf("%w: failed to close database: %v", ErrServiceShutdown, err)
		}
	}
	return nil
}
