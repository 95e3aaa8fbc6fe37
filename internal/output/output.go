// Package output renders plain-text command output: status lines, ranked
// search hits, and aligned stat rows. It is the fallback surface for piped
// or --no-color runs; interactive rendering lives in internal/ui.
package output

import (
	"fmt"
	"io"
)

// Writer prints command output to a single destination. Write errors are
// ignored throughout: a broken console is not a condition commands can
// recover from.
type Writer struct {
	out io.Writer
}

// New creates a Writer over out.
func New(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Status prints one icon-prefixed line. With an empty icon the line is
// indented to stay aligned under its iconed neighbors.
func (w *Writer) Status(icon, msg string) {
	if icon == "" {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
		return
	}
	_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
}

// Statusf is Status with fmt formatting.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a checkmarked line.
func (w *Writer) Success(msg string) {
	w.Status("✅", msg)
}

// Successf is Success with fmt formatting.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning line.
func (w *Writer) Warning(msg string) {
	w.Status("⚠️ ", msg)
}

// Warningf is Warning with fmt formatting.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error line.
func (w *Writer) Error(msg string) {
	w.Status("❌", msg)
}

// Errorf is Error with fmt formatting.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Result prints one ranked search hit.
func (w *Writer) Result(rank int, docID string, score float64) {
	w.Statusf("", "%d. %s (score: %.3f)", rank, docID, score)
}

// Detail prints a continuation line indented under the preceding result
// or status, used for snippet lines and secondary context.
func (w *Writer) Detail(msg string) {
	_, _ = fmt.Fprintf(w.out, "      %s\n", msg)
}

// Stat prints one aligned "label: value" row. Labels up to 18 characters
// keep their values in a single column.
func (w *Writer) Stat(label string, value any) {
	_, _ = fmt.Fprintf(w.out, "   %-19s %v\n", label+":", value)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}
