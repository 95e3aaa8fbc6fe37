package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// PlainRenderer outputs plain text progress (for CI/pipes).
type PlainRenderer struct {
	mu     sync.Mutex
	out    io.Writer
	stage  Stage
	errors []ErrorEvent
}

// NewPlainRenderer creates a plain text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{out: cfg.Output}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(ctx context.Context) error {
	return nil
}

// UpdateProgress implements Renderer. Each update is one line:
// [STAGE] current/total - message or file.
func (r *PlainRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stage = event.Stage

	msg := event.Message
	if msg == "" {
		msg = event.CurrentFile
	}

	if event.Total > 0 {
		_, _ = fmt.Fprintf(r.out, "[%s] %d/%d - %s\n", event.Stage.Icon(), event.Current, event.Total, msg)
	} else if msg != "" {
		_, _ = fmt.Fprintf(r.out, "[%s] %s\n", event.Stage.Icon(), msg)
	}
}

// AddError implements Renderer.
func (r *PlainRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors = append(r.errors, event)

	prefix := "ERROR"
	if event.IsWarn {
		prefix = "WARN"
	}

	if event.File != "" {
		_, _ = fmt.Fprintf(r.out, "%s: %s: %v\n", prefix, event.File, event.Err)
	} else {
		_, _ = fmt.Fprintf(r.out, "%s: %v\n", prefix, event.Err)
	}
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.out, "Complete: %d files, %d indexed, %d unchanged", stats.Files, stats.Indexed, stats.Unchanged)
	if stats.Removed > 0 {
		_, _ = fmt.Fprintf(r.out, ", %d removed", stats.Removed)
	}
	_, _ = fmt.Fprintf(r.out, " in %s", stats.Duration.Round(100*time.Millisecond))

	if stats.Errors > 0 || stats.Warnings > 0 {
		_, _ = fmt.Fprintf(r.out, " (%d errors, %d warnings)", stats.Errors, stats.Warnings)
	}
	_, _ = fmt.Fprintln(r.out)

	if stats.Stages.Scan > 0 || stats.Stages.Index > 0 {
		_, _ = fmt.Fprintln(r.out)
		_, _ = fmt.Fprintln(r.out, "Stage Breakdown:")
		_, _ = fmt.Fprintf(r.out, "  Scan:       %s\n", stats.Stages.Scan.Round(100*time.Millisecond))
		if stats.Stages.Vocabulary > 0 {
			_, _ = fmt.Fprintf(r.out, "  Vocabulary: %s\n", stats.Stages.Vocabulary.Round(100*time.Millisecond))
		}
		if stats.Stages.Index > 0 && stats.Indexed > 0 {
			docsPerSec := float64(stats.Indexed) / stats.Stages.Index.Seconds()
			_, _ = fmt.Fprintf(r.out, "  Index:      %s (%d documents @ %.1f/sec)\n",
				stats.Stages.Index.Round(100*time.Millisecond), stats.Indexed, docsPerSec)
		} else {
			_, _ = fmt.Fprintf(r.out, "  Index:      %s\n", stats.Stages.Index.Round(100*time.Millisecond))
		}
		_, _ = fmt.Fprintf(r.out, "  Persist:    %s\n", stats.Stages.Persist.Round(100*time.Millisecond))
	}

	if stats.Model.Dimension > 0 {
		_, _ = fmt.Fprintln(r.out)
		_, _ = fmt.Fprintf(r.out, "Model: %d dims, %d tokens (%s)\n",
			stats.Model.Dimension, stats.Model.VocabSize, shortFingerprint(stats.Model.Fingerprint))
	}
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error {
	return nil
}

// shortFingerprint abbreviates a model fingerprint for display.
func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
