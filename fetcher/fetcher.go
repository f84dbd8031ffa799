// Package fetcher drives a repository card's fetch lifecycle: one request per
// reference, committed only while that reference is still current.
package fetcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"repocard/github"
	"repocard/logger"
	"repocard/models"
	"repocard/reference"
)

// GitHubClientInterface defines the GitHub client operations needed by the fetcher
type GitHubClientInterface interface {
	FetchRepo(ctx context.Context, owner, name string) (*github.RepoResponse, error)
}

var errEmptyResponse = errors.New("empty repository response")

// Recorder receives every committed Success
type Recorder interface {
	RecordSnapshot(ctx context.Context, snapshot models.Snapshot) error
}

// Option configures a Controller
type Option func(*Controller)

// WithTimeout bounds each request. Zero leaves requests unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// WithRecorder records every committed Success.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// Controller owns the State of a single card.
type Controller struct {
	client   GitHubClientInterface
	recorder Recorder
	timeout  time.Duration
	now      func() time.Time

	mu       sync.Mutex
	raw      string
	hasRaw   bool
	gen      uint64
	state    State
	cancel   context.CancelFunc
	subs     []chan State
	settled  chan struct{}
	closed   bool
	inflight sync.WaitGroup
}

// New creates an Idle controller.
func New(client GitHubClientInterface, opts ...Option) *Controller {
	c := &Controller{
		client:  client,
		now:     time.Now,
		settled: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetReference makes raw the current reference. Setting the current value
// again does nothing; an unparseable value fails without a request.
func (c *Controller) SetReference(raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || (c.hasRaw && raw == c.raw) {
		return
	}
	c.raw = raw
	c.hasRaw = true
	c.gen++
	gen := c.gen

	if c.cancel != nil {
		// the stale request may still complete; its generation keeps it out
		c.cancel()
		c.cancel = nil
	}

	ref, err := reference.Parse(raw)
	if err != nil {
		logger.Debug("Rejected repository reference", zap.String("url", raw), zap.Error(err))
		c.apply(ReferenceRejected{Gen: gen, Raw: raw, Err: err})
		return
	}

	c.apply(ReferenceSet{Gen: gen, Reference: ref})

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), c.timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	c.cancel = cancel

	c.inflight.Add(1)
	go c.fetch(ctx, gen, ref)
}

func (c *Controller) fetch(ctx context.Context, gen uint64, ref models.Reference) {
	defer c.inflight.Done()

	log := logger.WithContext(
		zap.String("owner", ref.Owner),
		zap.String("name", ref.Name),
		zap.Uint64("generation", gen))

	repo, err := c.client.FetchRepo(ctx, ref.Owner, ref.Name)
	if err == nil && repo == nil {
		err = &github.FetchError{Owner: ref.Owner, Name: ref.Name, Err: errEmptyResponse}
	}

	ev := Resolved{Gen: gen, Err: err}
	if err == nil {
		p := repo.Payload()
		ev.Payload = &p
	}

	c.mu.Lock()
	committed := !c.closed && gen == c.gen
	if committed {
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
		c.apply(ev)
	}
	c.mu.Unlock()

	if !committed {
		log.Debug("Dropped stale completion")
		return
	}
	if err != nil {
		log.Debug("Repository fetch failed", zap.Error(err))
	}

	if err == nil && c.recorder != nil {
		snap := models.NewSnapshot(ref, *ev.Payload, c.now().UTC())
		if rerr := c.recorder.RecordSnapshot(context.Background(), snap); rerr != nil {
			log.Warn("Failed to record snapshot", zap.Error(rerr))
		}
	}
}

// apply runs the reducer and publishes the result. c.mu must be held.
func (c *Controller) apply(ev Event) {
	c.state = Reduce(c.state, c.gen, ev)
	for _, ch := range c.subs {
		publish(ch, c.state)
	}
	if c.state.Settled() {
		close(c.settled)
		c.settled = make(chan struct{})
	}
}

// publish delivers s without blocking, replacing an undelivered state.
func publish(ch chan State, s State) {
	for {
		select {
		case ch <- s:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Subscribe returns a channel of committed states. It is closed by Close.
func (c *Controller) Subscribe() <-chan State {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan State, 1)
	if c.closed {
		close(ch)
		return ch
	}
	c.subs = append(c.subs, ch)
	return ch
}

// Wait blocks until the current state is Success or Failure.
func (c *Controller) Wait(ctx context.Context) (State, error) {
	for {
		c.mu.Lock()
		s, settled, closed := c.state, c.settled, c.closed
		c.mu.Unlock()

		if s.Settled() || closed {
			return s, nil
		}
		select {
		case <-ctx.Done():
			return s, ctx.Err()
		case <-settled:
		}
	}
}

// Close discards the state, cancels any outstanding request and closes
// subscriber channels. It waits for in-flight requests to return.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	for _, ch := range c.subs {
		close(ch)
	}
	c.subs = nil
	close(c.settled)
	c.state = State{}
	c.mu.Unlock()

	c.inflight.Wait()
	return nil
}
