// Package watch detects filesystem changes under a project root and turns
// them into normalized change events. Raw notifications are rate-limited
// per path before they reach the change queue; the queue, not the watcher,
// decides what to drop under load.
package watch

import (
	"fmt"
	"time"
)

// ChangeKind classifies a change event.
type ChangeKind int

const (
	// Created indicates a new file appeared.
	Created ChangeKind = iota
	// Modified indicates an existing file's content changed.
	Modified
	// Deleted indicates a file was removed or renamed away.
	Deleted
)

// String returns the human-readable kind name.
func (k ChangeKind) String() string {
	switch k {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// SizeUnknown marks an event whose size could not be observed.
const SizeUnknown int64 = -1

// ChangeEvent is one normalized filesystem change. Path is relative to the
// watched root and doubles as the document identity downstream.
type ChangeEvent struct {
	Kind       ChangeKind
	Path       string
	ObservedAt time.Time

	// ContentHash is optionally filled by the producer. The watcher leaves
	// it empty and the processor hashes at read time, so the bytes that
	// get hashed are the bytes that get indexed.
	ContentHash string

	// Size is the file size at observation time, or SizeUnknown when the
	// stat failed or the event is a deletion.
	Size int64
}

// String renders the event for logs.
func (e ChangeEvent) String() string {
	return fmt.Sprintf("%s %s", e.Kind, e.Path)
}
