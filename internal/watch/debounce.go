package watch

import (
	"sync"
	"sync/atomic"
	"time"
)

// pruneCheckInterval controls how often Accept sweeps expired entries out
// of the last-emitted map, counted in Accept calls.
const pruneCheckInterval = 1024

// Debouncer rate-limits events per path: the first event for a path passes
// through immediately, repeats within the window are suppressed and
// counted. It never delays an event, so a single change reaches the index
// without added latency. The window applies per path across all event
// kinds.
type Debouncer struct {
	mu       sync.Mutex
	window   time.Duration
	lastEmit map[string]time.Time
	accepts  int

	suppressed atomic.Uint64
}

// NewDebouncer creates a debouncer with the given window. A zero or
// negative window disables suppression entirely.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window:   window,
		lastEmit: make(map[string]time.Time),
	}
}

// Accept reports whether an event for path observed at now should be
// emitted. A false return means the event fell inside the window and was
// suppressed.
func (d *Debouncer) Accept(path string, now time.Time) bool {
	if d.window <= 0 {
		return true
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.lastEmit[path]; ok && now.Sub(last) < d.window {
		d.suppressed.Add(1)
		return false
	}

	d.lastEmit[path] = now
	d.accepts++
	if d.accepts%pruneCheckInterval == 0 {
		d.prune(now)
	}
	return true
}

// prune drops entries whose window has long passed. Caller holds the lock.
func (d *Debouncer) prune(now time.Time) {
	for path, last := range d.lastEmit {
		if now.Sub(last) >= d.window {
			delete(d.lastEmit, path)
		}
	}
}

// Suppressed returns the total number of suppressed events.
func (d *Debouncer) Suppressed() uint64 {
	return d.suppressed.Load()
}

// Window returns the configured debounce window.
func (d *Debouncer) Window() time.Duration {
	return d.window
}

// Len returns the number of tracked paths. Exposed for tests.
func (d *Debouncer) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.lastEmit)
}
