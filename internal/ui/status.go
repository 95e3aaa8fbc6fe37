package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// StatusInfo contains index health information for the stats command.
type StatusInfo struct {
	ProjectRoot   string    `json:"project_root"`
	Documents     int       `json:"documents"`
	VectorEntries int       `json:"vector_entries"`
	LastIndexed   time.Time `json:"last_indexed,omitempty"`

	// Storage sizes in bytes.
	DocumentsSize int64 `json:"documents_size"`
	KeywordSize   int64 `json:"keyword_size"`
	VectorsSize   int64 `json:"vectors_size"`
	TotalSize     int64 `json:"total_size"`

	// Model identity; Dimension is zero when no model has been built.
	ModelDimension   int    `json:"model_dimension,omitempty"`
	ModelVocabSize   int    `json:"model_vocab_size,omitempty"`
	ModelFingerprint string `json:"model_fingerprint,omitempty"`

	// Pipeline activity. WatcherStatus is "running" when this process
	// watches, "external" when another process holds the data directory,
	// "stopped" otherwise.
	WatcherStatus      string `json:"watcher_status"`
	ChangesDetected    uint64 `json:"changes_detected"`
	DebounceSuppressed uint64 `json:"debounce_suppressed"`
	QueueDepth         int    `json:"queue_depth"`
	QueueDropped       uint64 `json:"queue_dropped"`
	Errors             uint64 `json:"errors"`
}

// StatusRenderer displays index status.
type StatusRenderer struct {
	out     io.Writer
	styles  Styles
	noColor bool
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{
		out:     out,
		styles:  GetStyles(noColor),
		noColor: noColor,
	}
}

// Render displays status info to the terminal.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Index Status: "+info.ProjectRoot))

	_, _ = fmt.Fprintf(r.out, "  Documents: %d\n", info.Documents)
	_, _ = fmt.Fprintf(r.out, "  Vectors:   %d\n", info.VectorEntries)
	if !info.LastIndexed.IsZero() {
		_, _ = fmt.Fprintf(r.out, "  Last indexed: %s\n", formatTime(info.LastIndexed))
	}
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintln(r.out, "  Storage:")
	_, _ = fmt.Fprintf(r.out, "    Documents: %s\n", FormatBytes(info.DocumentsSize))
	if info.KeywordSize > 0 {
		_, _ = fmt.Fprintf(r.out, "    Keyword:   %s\n", FormatBytes(info.KeywordSize))
	}
	_, _ = fmt.Fprintf(r.out, "    Vectors:   %s\n", FormatBytes(info.VectorsSize))
	_, _ = fmt.Fprintf(r.out, "    Total:     %s\n", FormatBytes(info.TotalSize))
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintln(r.out, "  Model:")
	if info.ModelDimension > 0 {
		_, _ = fmt.Fprintf(r.out, "    Status:      %s\n", r.renderStatus("ready"))
		_, _ = fmt.Fprintf(r.out, "    Dimension:   %d\n", info.ModelDimension)
		_, _ = fmt.Fprintf(r.out, "    Vocabulary:  %d tokens\n", info.ModelVocabSize)
		_, _ = fmt.Fprintf(r.out, "    Fingerprint: %s\n", shortFingerprint(info.ModelFingerprint))
	} else {
		_, _ = fmt.Fprintf(r.out, "    Status: %s\n", r.renderStatus("missing"))
	}
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintf(r.out, "  Watcher: %s\n", r.renderStatus(info.WatcherStatus))
	switch info.WatcherStatus {
	case "running":
		_, _ = fmt.Fprintf(r.out, "    Detected:   %d\n", info.ChangesDetected)
		_, _ = fmt.Fprintf(r.out, "    Suppressed: %d\n", info.DebounceSuppressed)
		_, _ = fmt.Fprintf(r.out, "    Queued:     %d\n", info.QueueDepth)
		if info.QueueDropped > 0 {
			_, _ = fmt.Fprintf(r.out, "    Dropped:    %d\n", info.QueueDropped)
		}
	case "external":
		_, _ = fmt.Fprintln(r.out, "    Another process is working on this directory")
	}
	if info.Errors > 0 {
		_, _ = fmt.Fprintf(r.out, "  Errors: %s\n", r.styles.Error.Render(fmt.Sprintf("%d", info.Errors)))
	}

	return nil
}

// RenderJSON outputs status as JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

// renderStatus formats a status string with color.
func (r *StatusRenderer) renderStatus(status string) string {
	switch status {
	case "ready", "running", "external":
		return r.styles.Success.Render(status)
	case "missing", "stopped":
		return r.styles.Warning.Render(status)
	case "error":
		return r.styles.Error.Render(status)
	default:
		return status
	}
}

// formatTime formats a time for display.
func formatTime(t time.Time) string {
	now := time.Now()
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02 15:04")
	}
}

// FormatBytes formats bytes to a human-readable string.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
