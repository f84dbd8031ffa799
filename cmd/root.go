package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"repocard/clipboard"
	"repocard/config"
	"repocard/fetcher"
	"repocard/logger"
	"repocard/models"
	"repocard/render"
	"repocard/service"
)

// errCardFailed marks a command whose card ended in Failure. The card itself
// already shows the message.
var errCardFailed = errors.New("card failed")

type rootOptions struct {
	configFile string
	logLevel   string
	plain      bool
	width      int
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "repocard",
		Short:         "Render repository cards from repository URLs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", config.DefaultConfigFile, "env file to read configuration from")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	root.PersistentFlags().BoolVar(&opts.plain, "plain", false, "disable borders and colors")
	root.PersistentFlags().IntVar(&opts.width, "width", 0, "card width (0 for natural width)")

	root.AddCommand(newShowCmd(opts))
	root.AddCommand(newWatchCmd(opts))
	root.AddCommand(newCopyCmd(opts))
	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newHistoryCmd(opts))

	return root
}

// setup loads configuration, initializes logging and builds the service.
func setup(cmd *cobra.Command, opts *rootOptions) (*service.Service, *config.Config, error) {
	cfg := config.NewConfig()
	if err := cfg.Load(opts.configFile); err != nil {
		return nil, nil, err
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	errOut := cmd.ErrOrStderr()
	notify := clipboard.NotifierFunc(func(msg string) {
		fmt.Fprintln(errOut, msg)
	})

	svc, err := service.NewService(cmd.Context(), cfg,
		service.WithClipboard(clipboard.NewAction(clipboard.NewTerminal(), notify)))
	if err != nil {
		return nil, nil, err
	}
	return svc, cfg, nil
}

func renderOptions(opts *rootOptions, out io.Writer) render.Options {
	return render.Options{
		Plain: opts.plain || !isTerminal(out),
		Width: opts.width,
	}
}

// showRenderOptions points at the copy command unless the URL is being
// copied anyway. Confirmation comes from the clipboard notifier only.
func showRenderOptions(opts *rootOptions, out io.Writer, raw string, copyURL bool) render.Options {
	ropts := renderOptions(opts, out)
	if !copyURL {
		ropts.CopyHint = copyHint(raw)
	}
	return ropts
}

func copyHint(raw string) string {
	return "Copy: repocard copy " + raw
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func closeService(svc *service.Service) {
	if err := svc.Close(); err != nil {
		logger.Warn("Error during service shutdown", zap.Error(err))
	}
	logger.Sync()
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	var copyURL bool

	cmd := &cobra.Command{
		Use:   "show <url>",
		Short: "Fetch and render a repository card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer closeService(svc)

			out := cmd.OutOrStdout()
			st, err := svc.Show(cmd.Context(), args[0], out, service.ShowOptions{
				Render: showRenderOptions(opts, out, args[0], copyURL),
				Copy:   copyURL,
			})
			if err != nil {
				return err
			}
			if st.Phase == fetcher.Failure {
				return errCardFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&copyURL, "copy", false, "copy the URL to the clipboard after rendering")
	return cmd
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Render a card for each URL read from stdin",
		Long: `Reads repository URLs from stdin, one per line. Each line replaces the
current URL; a response for a URL that is no longer current is discarded.
Blank lines and lines starting with # are ignored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer closeService(svc)

			out := cmd.OutOrStdout()
			return svc.Watch(cmd.Context(), cmd.InOrStdin(), out, renderOptions(opts, out))
		},
	}
}

func newCopyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "copy <url>",
		Short: "Copy a repository URL to the clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer closeService(svc)

			// best effort: an unsupported terminal is not an error
			svc.Copy(cmd.Context(), args[0])
			return nil
		},
	}
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve repository cards over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cfg, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer closeService(svc)

			if addr != "" {
				cfg.ServerAddr = addr
			}
			return svc.Serve(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides SERVER_ADDR)")
	return cmd
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		page     int
		pageSize int
		latest   bool
	)

	cmd := &cobra.Command{
		Use:   "history <url>",
		Short: "List recorded snapshots of a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer closeService(svc)

			var snapshots []models.Snapshot
			if latest {
				s, err := svc.Latest(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				snapshots = []models.Snapshot{*s}
			} else {
				snapshots, err = svc.History(cmd.Context(), args[0], models.NewPaginationParams(page, pageSize))
				if err != nil {
					return err
				}
			}

			writeSnapshots(cmd.OutOrStdout(), snapshots)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "snapshots per page")
	cmd.Flags().BoolVar(&latest, "latest", false, "show only the most recent snapshot")
	return cmd
}

func writeSnapshots(w io.Writer, snapshots []models.Snapshot) {
	if len(snapshots) == 0 {
		fmt.Fprintln(w, "no snapshots recorded")
		return
	}
	for _, s := range snapshots {
		lang := s.Language
		if lang == "" {
			lang = "-"
		}
		fmt.Fprintf(w, "%s  %s/%s  ★ %d  ⑂ %d  %s\n",
			s.FetchedAt.Format("2006-01-02 15:04:05"), s.Owner, s.Name, s.Stars, s.Forks, lang)
	}
}
