package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/recallkb/recall/internal/config"
	"github.com/recallkb/recall/internal/logging"
	"github.com/recallkb/recall/internal/ui"
)

// logsOptions holds CLI flags for logs.
type logsOptions struct {
	follow  bool
	lines   int
	level   string
	filter  string
	noColor bool
	file    string
}

func newLogsCmd() *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs [path]",
		Short: "View engine logs",
		Long: `View and tail the structured log the engine writes while indexing,
watching, and searching.

Shows the project log under .recall/logs/ when one exists, otherwise
the global one under ~/.recall/logs/. Commands run with --debug log at
debug level.

Examples:
  recall logs                    # Show last 50 lines
  recall logs -n 100             # Show last 100 lines
  recall logs -f                 # Follow new entries in real time
  recall logs --level error      # Show only errors
  recall logs --filter "encode"  # Filter by regex`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runLogs(ctx, cmd, path, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Follow log output (like tail -f)")
	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&opts.level, "level", "", "Filter by log level (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "Filter by pattern (regex)")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().StringVar(&opts.file, "file", "", "Path to a log file (overrides discovery)")

	return cmd
}

func runLogs(ctx context.Context, cmd *cobra.Command, path string, opts logsOptions) error {
	logPath, err := locateLogFile(path, opts.file)
	if err != nil {
		return err
	}

	var pattern *regexp.Regexp
	if opts.filter != "" {
		pattern, err = regexp.Compile(opts.filter)
		if err != nil {
			return fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:   opts.level,
		Pattern: pattern,
		NoColor: opts.noColor || ui.DetectNoColor(),
	}, cmd.OutOrStdout())

	errOut := cmd.ErrOrStderr()
	_, _ = fmt.Fprintf(errOut, "Log file: %s\n", logPath)
	if opts.follow {
		_, _ = fmt.Fprintln(errOut, "Following... (Ctrl-C to stop)")
	}
	_, _ = fmt.Fprintln(errOut, "---")

	if opts.follow {
		return followLog(ctx, viewer, logPath, cmd.OutOrStdout())
	}

	entries, err := viewer.Tail(logPath, opts.lines)
	if err != nil {
		return err
	}
	viewer.Print(entries)
	return nil
}

// locateLogFile resolves which log file to view. Config problems are not
// fatal here; the log may be the only way to diagnose them.
func locateLogFile(path, explicit string) (string, error) {
	if explicit != "" {
		return logging.FindLogFile(explicit, "")
	}

	root, err := resolveRoot(path)
	if err != nil {
		return "", err
	}

	dataDir := ""
	if cfg, err := config.Load(root); err == nil {
		dataDir = resolveDataDir(cfg, root)
	}
	return logging.FindLogFile("", dataDir)
}

// followLog streams new entries until the context is cancelled.
func followLog(ctx context.Context, viewer *logging.Viewer, path string, out io.Writer) error {
	entries := make(chan logging.Entry, 100)
	errCh := make(chan error, 1)

	go func() {
		errCh <- viewer.Follow(ctx, path, entries)
	}()

	for {
		select {
		case e := <-entries:
			_, _ = fmt.Fprintln(out, viewer.FormatEntry(e))
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return nil
		}
	}
}
