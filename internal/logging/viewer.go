package logging

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Log lines carry full attr payloads; allow long ones.
const maxLogLine = 1 << 20

// followPollInterval is how often Follow checks the file for new lines.
const followPollInterval = 100 * time.Millisecond

// Entry is one parsed line of the JSON log stream.
type Entry struct {
	Time    time.Time
	Level   string
	Msg     string
	Attrs   map[string]any
	Raw     string
	IsValid bool
}

// ViewerConfig narrows what Tail and Follow emit.
type ViewerConfig struct {
	Level   string         // minimum level to show, empty shows everything
	Pattern *regexp.Regexp // applied to the raw line, nil shows everything
	NoColor bool
}

// Viewer reads the rotating log file back for display.
type Viewer struct {
	cfg ViewerConfig
	out io.Writer
}

// NewViewer creates a viewer writing formatted entries to out.
func NewViewer(cfg ViewerConfig, out io.Writer) *Viewer {
	return &Viewer{cfg: cfg, out: out}
}

// Tail returns the matching entries among the last n lines of the log
// file.
func (v *Viewer) Tail(path string, n int) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, maxLogLine), maxLogLine)

	// Rotation caps the file size, but only the tail has to stay
	// resident; compact the window whenever it doubles.
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if n > 0 && len(lines) >= 2*n {
			copy(lines, lines[len(lines)-n:])
			lines = lines[:n]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log file: %w", err)
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}

	var entries []Entry
	for _, line := range lines {
		e := parseEntry(line)
		if v.matches(e) {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// Follow streams entries appended to the log file into the channel until
// the context is cancelled. Content already in the file is skipped.
func (v *Viewer) Follow(ctx context.Context, path string, entries chan<- Entry) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReader(f)
	ticker := time.NewTicker(followPollInterval)
	defer ticker.Stop()

	// A poll can catch a line mid-write; carry the torn prefix into the
	// next round instead of emitting garbage.
	var partial strings.Builder

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for {
				chunk, err := reader.ReadString('\n')
				if err != nil {
					partial.WriteString(chunk)
					break
				}
				line := strings.TrimSuffix(chunk, "\n")
				if partial.Len() > 0 {
					line = partial.String() + line
					partial.Reset()
				}
				if line == "" {
					continue
				}
				e := parseEntry(line)
				if !v.matches(e) {
					continue
				}
				select {
				case entries <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
}

// FormatEntry renders one entry as a display line. Lines that never
// parsed come back verbatim so the viewer hides nothing.
func (v *Viewer) FormatEntry(e Entry) string {
	if !e.IsValid {
		return e.Raw
	}

	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(e.Time.Format("15:04:05.000"))
	b.WriteByte(' ')
	b.WriteString(v.formatLevel(e.Level))
	b.WriteByte(' ')
	b.WriteString(e.Msg)
	for _, k := range keys {
		_, _ = fmt.Fprintf(&b, " %s=%v", k, e.Attrs[k])
	}
	return b.String()
}

// Print writes entries to the viewer's output, one line each.
func (v *Viewer) Print(entries []Entry) {
	for _, e := range entries {
		_, _ = fmt.Fprintln(v.out, v.FormatEntry(e))
	}
}

// parseEntry decodes one slog JSON line.
func parseEntry(line string) Entry {
	e := Entry{Raw: line}

	var data map[string]any
	if err := json.Unmarshal([]byte(line), &data); err != nil {
		return e
	}
	e.IsValid = true

	if t, ok := data["time"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			e.Time = parsed
		}
	}
	if l, ok := data["level"].(string); ok {
		e.Level = l
	}
	if m, ok := data["msg"].(string); ok {
		e.Msg = m
	}

	e.Attrs = make(map[string]any)
	for k, val := range data {
		switch k {
		case "time", "level", "msg":
		default:
			e.Attrs[k] = val
		}
	}
	return e
}

// matches reports whether an entry passes the configured filters.
// Unparsed lines have no level and rank as info.
func (v *Viewer) matches(e Entry) bool {
	if v.cfg.Level != "" && LevelFromString(e.Level) < LevelFromString(v.cfg.Level) {
		return false
	}
	if v.cfg.Pattern != nil && !v.cfg.Pattern.MatchString(e.Raw) {
		return false
	}
	return true
}

const (
	ansiReset  = "\033[0m"
	ansiGray   = "\033[90m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiRed    = "\033[31m"
)

// formatLevel pads the level to a fixed width and colors it unless
// NoColor is set.
func (v *Viewer) formatLevel(level string) string {
	s := strings.ToUpper(level)
	if len(s) > 5 {
		s = s[:5]
	}
	s = fmt.Sprintf("%-5s", s)

	if v.cfg.NoColor {
		return s
	}
	switch strings.ToLower(level) {
	case "debug":
		return ansiGray + s + ansiReset
	case "info":
		return ansiGreen + s + ansiReset
	case "warn", "warning":
		return ansiYellow + s + ansiReset
	case "error":
		return ansiRed + s + ansiReset
	default:
		return s
	}
}
