package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/recallkb/recall/internal/output"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Index a directory tree and keep the index synchronized",
		Long: `Index a directory tree, then watch it for changes until interrupted.

Runs a full indexing pass first, then keeps the index synchronized
with creates, modifications, and deletions as they happen. Rapid
repeated changes to the same file are debounced. Stop with Ctrl-C;
pending state is persisted on the way out.

Examples:
  recall watch
  recall watch ~/projects/myapp`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runWatch(ctx, cmd, path)
		},
	}

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, path string) error {
	out := output.New(cmd.OutOrStdout())

	root, err := resolveRoot(path)
	if err != nil {
		return err
	}

	cleanup := setupFileLogging(root)
	defer cleanup()

	eng, err := openEngine(root)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	out.Statusf("📊", "Indexing %s...", root)
	if err := eng.Start(ctx); err != nil {
		return err
	}

	st := eng.Stats()
	out.Successf("Indexed %d documents", st.DocumentsIndexed)
	out.Statusf("👀", "Watching %s (Ctrl-C to stop)", root)
	out.Newline()

	<-ctx.Done()

	out.Newline()
	out.Status("🛑", "Stopping...")
	uptime := eng.Stats().UptimeSeconds
	if err := eng.Stop(context.Background()); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	final := eng.Stats()
	out.Successf("Stopped after %s", formatUptime(uptime))
	out.Stat("Changes detected", final.ChangesDetected)
	out.Stat("Events processed", final.DocumentsProcessed)
	if final.DebounceSuppressed > 0 {
		out.Stat("Debounce-collapsed", final.DebounceSuppressed)
	}
	if final.QueueDropped > 0 {
		out.Warningf("Queue overflow dropped %d events", final.QueueDropped)
	}
	if final.DiscardedOnStop > 0 {
		out.Stat("Discarded on stop", final.DiscardedOnStop)
	}
	if final.Errors > 0 {
		out.Warningf("%d events failed; see the log for details", final.Errors)
	}

	return nil
}

// formatUptime renders seconds of uptime in the most natural unit.
func formatUptime(seconds float64) string {
	switch {
	case seconds >= 3600:
		return fmt.Sprintf("%.1fh", seconds/3600)
	case seconds >= 60:
		return fmt.Sprintf("%.1fm", seconds/60)
	default:
		return fmt.Sprintf("%.0fs", seconds)
	}
}
