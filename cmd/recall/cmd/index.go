package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/recallkb/recall/internal/ui"
)

// indexOptions holds CLI flags for index.
type indexOptions struct {
	rebuild bool
	noTUI   bool
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Index a directory tree",
		Long: `Index a directory tree into the local .recall/ data directory.

The first pass scans the corpus, builds the vocabulary and embedding
model, encodes every eligible file, and persists the result. Later
passes only touch files whose content hash changed.

Examples:
  recall index
  recall index ~/projects/myapp
  recall index --rebuild`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runIndex(ctx, cmd, path, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.rebuild, "rebuild", false, "Rebuild the vocabulary and re-encode every document")
	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "Use plain text output instead of the interactive UI")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, path string, opts indexOptions) error {
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

	uiCfg := ui.NewConfig(cmd.OutOrStdout(),
		ui.WithForcePlain(opts.noTUI),
		ui.WithProjectDir(root))
	renderer := ui.NewRenderer(uiCfg)
	if err := renderer.Start(ctx); err != nil {
		// Rendering is best effort; indexing proceeds without it.
		renderer = ui.NewPlainRenderer(uiCfg)
		_ = renderer.Start(ctx)
	}
	defer func() { _ = renderer.Stop() }()

	clock := &stageClock{}
	progress := func(phase string, done, total int) {
		stage := ui.StageFromPhase(phase)
		clock.observe(stage)
		renderer.UpdateProgress(ui.ProgressEvent{
			Stage:   stage,
			Current: done,
			Total:   total,
		})
	}

	report, err := eng.IndexAll(ctx, opts.rebuild, progress)
	if err != nil {
		return err
	}

	stats := ui.CompletionStats{
		Files:     report.Files,
		Indexed:   report.Indexed,
		Unchanged: report.Unchanged,
		Removed:   report.Removed,
		Duration:  report.Duration,
		Errors:    report.Failed,
		Stages:    clock.finish(),
	}
	if info, ok := eng.Model(); ok {
		stats.Model = ui.ModelInfo{
			Dimension:   info.Dimension,
			VocabSize:   info.VocabSize,
			Fingerprint: info.Fingerprint,
		}
	}
	renderer.Complete(stats)
	return nil
}

// stageClock accumulates wall time per indexing stage as progress events
// arrive.
type stageClock struct {
	stage   ui.Stage
	started time.Time
	timings ui.StageTimings
	active  bool
}

func (c *stageClock) observe(stage ui.Stage) {
	now := time.Now()
	if c.active && stage == c.stage {
		return
	}
	if c.active {
		c.record(c.stage, now.Sub(c.started))
	}
	c.stage = stage
	c.started = now
	c.active = true
}

func (c *stageClock) finish() ui.StageTimings {
	if c.active {
		c.record(c.stage, time.Since(c.started))
		c.active = false
	}
	return c.timings
}

func (c *stageClock) record(stage ui.Stage, d time.Duration) {
	switch stage {
	case ui.StageScanning:
		c.timings.Scan += d
	case ui.StageVocabulary:
		c.timings.Vocabulary += d
	case ui.StageIndexing:
		c.timings.Index += d
	case ui.StagePersisting:
		c.timings.Persist += d
	}
}
