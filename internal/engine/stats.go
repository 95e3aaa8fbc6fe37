package engine

import "sync/atomic"

// counters are the engine's observable activity counters. Every drop,
// suppression, and recovered error lands in one of these so tests and
// stats can assert on them.
type counters struct {
	processed atomic.Uint64
	indexed   atomic.Uint64
	removed   atomic.Uint64
	errors    atomic.Uint64
	discarded atomic.Uint64

	// detected and suppressed accumulate watcher-lifetime counts at Stop,
	// so stats survive a restart of the watch loop.
	detected   atomic.Uint64
	suppressed atomic.Uint64
}

// Stats is a point-in-time snapshot of engine activity. Counter fields are
// cumulative since construction; gauges (QueueDepth, VectorEntries,
// DocumentsIndexed) reflect the moment of the call.
type Stats struct {
	// DocumentsIndexed is the number of documents currently in the store.
	DocumentsIndexed int `json:"documents_indexed"`

	// DocumentsProcessed counts change events the worker has consumed.
	DocumentsProcessed uint64 `json:"documents_processed"`

	// ChangesDetected counts filesystem changes the watcher emitted.
	ChangesDetected uint64 `json:"changes_detected"`

	// Errors counts recovered per-event errors plus queue drops.
	Errors uint64 `json:"errors"`

	// QueueDepth is the number of events waiting right now.
	QueueDepth int `json:"queue_depth"`

	// QueueDropped counts events discarded by queue overflow.
	QueueDropped uint64 `json:"queue_dropped"`

	// DebounceSuppressed counts raw notifications collapsed by the
	// debounce window.
	DebounceSuppressed uint64 `json:"debounce_suppressed"`

	// DiscardedOnStop counts events still queued when Stop drained them.
	DiscardedOnStop uint64 `json:"discarded_on_stop"`

	// UptimeSeconds is the time since Start; zero when not running.
	UptimeSeconds float64 `json:"uptime_seconds"`

	// Watching reports whether the watcher and worker are running.
	Watching bool `json:"watching"`

	// VectorEntries is the number of vectors in the index.
	VectorEntries int `json:"vector_entries"`
}
