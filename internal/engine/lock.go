package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	rcerrors "github.com/recallkb/recall/internal/errors"
)

// lockFileName lives inside the data directory for the lifetime of
// Start…Stop.
const lockFileName = "recall.lock"

// DirLock is the cross-process single-writer guard on a data directory.
// Exactly one engine may hold it; a second engine targeting the same data
// directory fails fast at Start instead of corrupting the stores.
type DirLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewDirLock creates a lock for the given data directory.
func NewDirLock(dataDir string) *DirLock {
	path := filepath.Join(dataDir, lockFileName)
	return &DirLock{path: path, flock: flock.New(path)}
}

// Acquire takes the lock without blocking. A held lock is reported as
// ErrCodeDataDirLocked, not waited on: the second process should tell its
// user, not hang.
func (l *DirLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return rcerrors.New(rcerrors.ErrCodeDataDirLocked,
			fmt.Sprintf("data directory is locked by another process: %s", l.path), nil).
			WithSuggestion("stop the other recall instance or point paths.data_dir elsewhere")
	}

	l.locked = true
	return nil
}

// Release drops the lock. Safe to call on an unheld lock.
func (l *DirLock) Release() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file location.
func (l *DirLock) Path() string {
	return l.path
}

// Held reports whether this process holds the lock.
func (l *DirLock) Held() bool {
	return l.locked
}

// HeldElsewhere reports whether another process holds the lock. It probes
// with a try-lock and releases immediately, so it never blocks and never
// keeps the lock.
func (l *DirLock) HeldElsewhere() bool {
	if l.locked {
		return false
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false
	}
	if acquired {
		_ = l.flock.Unlock()
		return false
	}
	return true
}

// acquirePassLock takes the data directory lock for one mutating pass when
// no longer-lived holder already has it. Start holds the lock across the
// whole watch session; everything else locks per pass. Caller holds
// writeMu, which keeps Held stable. The returned release is a no-op when
// the lock was already held.
func (e *Engine) acquirePassLock() (release func(), err error) {
	if e.lock.Held() {
		return func() {}, nil
	}
	if err := e.lock.Acquire(); err != nil {
		return nil, err
	}
	return func() { _ = e.lock.Release() }, nil
}
