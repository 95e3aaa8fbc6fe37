// Package engine owns the indexing pipeline: the bounded change queue, the
// single worker that is the sole writer to every store, the corpus model
// build, and the public search surface. One Engine object holds everything;
// nothing in here is global.
package engine

import (
	"sync/atomic"

	"github.com/recallkb/recall/internal/watch"
)

// ChangeQueue is the bounded buffer between the watcher and the worker.
// When the queue is full the incoming event is dropped and counted; the
// watcher must never block, because filesystem notifications cannot be
// replayed on demand.
type ChangeQueue struct {
	ch      chan watch.ChangeEvent
	dropped atomic.Uint64
}

// NewChangeQueue creates a queue holding at most capacity events.
func NewChangeQueue(capacity int) *ChangeQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &ChangeQueue{ch: make(chan watch.ChangeEvent, capacity)}
}

// Offer enqueues without blocking. A false return means the queue was full
// and the event is gone; the drop counter has already recorded it.
func (q *ChangeQueue) Offer(ev watch.ChangeEvent) bool {
	select {
	case q.ch <- ev:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Events returns the receive side consumed by the worker.
func (q *ChangeQueue) Events() <-chan watch.ChangeEvent {
	return q.ch
}

// Depth returns the number of queued events right now.
func (q *ChangeQueue) Depth() int {
	return len(q.ch)
}

// Dropped returns how many events overflow has discarded.
func (q *ChangeQueue) Dropped() uint64 {
	return q.dropped.Load()
}

// Drain empties the queue and returns how many events were thrown away.
// Only called after the worker has stopped.
func (q *ChangeQueue) Drain() int {
	n := 0
	for {
		select {
		case <-q.ch:
			n++
		default:
			return n
		}
	}
}
