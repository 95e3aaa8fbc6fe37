package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// RotatingWriter is an append-only log file with size-based rotation.
// When a write would push the file past maxSize the live file becomes
// recall.log.1, each existing recall.log.N shifts to N+1, the oldest
// suffix is dropped, and a fresh file is opened. Writes fsync by default
// so `recall logs -f`, which polls the file, sees lines as they land.
type RotatingWriter struct {
	path     string
	maxSize  int64
	maxFiles int

	mu       sync.Mutex
	file     *os.File
	size     int64
	buffered bool
}

// NewRotatingWriter opens (or creates) the log file at path, creating the
// parent directory as needed. maxSizeMB bounds each file; maxFiles bounds
// how many rotated suffixes are kept.
func NewRotatingWriter(path string, maxSizeMB, maxFiles int) (*RotatingWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	w := &RotatingWriter{
		path:     path,
		maxSize:  int64(maxSizeMB) << 20,
		maxFiles: maxFiles,
	}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

// SetBuffered turns off the per-write fsync, trading live tail visibility
// for throughput. Buffered data still reaches disk on Sync and Close.
func (w *RotatingWriter) SetBuffered(buffered bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buffered = buffered
}

// Write appends p, rotating first if the file would exceed its limit.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.size+int64(len(p)) > w.maxSize {
		if err := w.rotate(); err != nil {
			// A failed rotation must not lose the line; keep appending
			// to the oversized file.
			_, _ = fmt.Fprintf(os.Stderr, "log rotation failed: %v\n", err)
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	if err == nil && !w.buffered {
		_ = w.file.Sync()
	}
	return n, err
}

// Sync flushes buffered data to disk.
func (w *RotatingWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

// Close closes the underlying file.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	return w.file.Close()
}

func (w *RotatingWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	w.file = f
	w.size = info.Size()
	return nil
}

// rotate shifts the suffix chain down by one, renaming from the oldest
// end so nothing is overwritten. A missing link in the chain just means
// less history, so the per-suffix renames are best effort.
func (w *RotatingWriter) rotate() error {
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			return fmt.Errorf("failed to close log file: %w", err)
		}
		w.file = nil
	}

	_ = os.Remove(w.suffixed(w.maxFiles))
	for n := w.maxFiles - 1; n >= 1; n-- {
		_ = os.Rename(w.suffixed(n), w.suffixed(n+1))
	}
	if err := os.Rename(w.path, w.suffixed(1)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}

	w.size = 0
	return w.open()
}

func (w *RotatingWriter) suffixed(n int) string {
	return fmt.Sprintf("%s.%d", w.path, n)
}
