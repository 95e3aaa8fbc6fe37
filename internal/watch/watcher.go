package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	rcerrors "github.com/recallkb/recall/internal/errors"
	"github.com/recallkb/recall/internal/scan"
)

// Config configures a Watcher.
type Config struct {
	// Root is the directory to watch, recursively.
	Root string

	// DebounceWindow is the per-path suppression window.
	DebounceWindow time.Duration

	// Policy filters which paths produce events and which directories are
	// watched at all. Required.
	Policy *scan.Policy

	// Logger receives watcher diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// EnqueueFunc hands a normalized event to the change queue. It must never
// block; a false return means the event was dropped.
type EnqueueFunc func(ChangeEvent) bool

// Watcher watches a directory tree via fsnotify and pushes normalized,
// debounced events into the change queue. It blocks on nothing downstream:
// when the queue is full the event is dropped there and counted there.
type Watcher struct {
	fsw       *fsnotify.Watcher
	debouncer *Debouncer
	root      string
	policy    *scan.Policy
	enqueue   EnqueueFunc
	log       *slog.Logger

	detected atomic.Uint64

	mu      sync.Mutex
	stopped bool
	stopCh  chan struct{}
}

// New creates a watcher rooted at cfg.Root. Run starts it.
func New(cfg Config, enqueue EnqueueFunc) (*Watcher, error) {
	if cfg.Policy == nil {
		return nil, rcerrors.ConfigError("watcher requires an inclusion policy", nil)
	}
	if enqueue == nil {
		return nil, rcerrors.ConfigError("watcher requires an enqueue function", nil)
	}

	absRoot, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, rcerrors.ConfigError("invalid watch root", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, rcerrors.New(rcerrors.ErrCodeWatcherFailed, "failed to create filesystem watcher", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		fsw:       fsw,
		debouncer: NewDebouncer(cfg.DebounceWindow),
		root:      absRoot,
		policy:    cfg.Policy,
		enqueue:   enqueue,
		log:       logger,
		stopCh:    make(chan struct{}),
	}, nil
}

// Root returns the absolute watched root.
func (w *Watcher) Root() string {
	return w.root
}

// Run registers watches for the whole tree and processes notifications
// until the context is canceled or Stop is called. It blocks; callers run
// it on its own goroutine.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.addRecursive(w.root); err != nil {
		return rcerrors.New(rcerrors.ErrCodeWatcherFailed, "failed to register directory watches", err).
			WithDetail("root", w.root)
	}

	w.log.Info("watcher_started", slog.String("root", w.root),
		slog.Duration("debounce_window", w.debouncer.Window()))

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher_error", slog.String("error", err.Error()))
		}
	}
}

// Stop stops event processing and releases the underlying watcher. It is
// idempotent.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	return w.fsw.Close()
}

// Detected returns the number of events emitted downstream, including any
// the queue subsequently dropped.
func (w *Watcher) Detected() uint64 {
	return w.detected.Load()
}

// Suppressed returns the number of events absorbed by the debounce window.
func (w *Watcher) Suppressed() uint64 {
	return w.debouncer.Suppressed()
}

// handleEvent normalizes one raw fsnotify event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || rel == "." || rel == "" {
		return
	}
	rel = filepath.ToSlash(rel)

	// Chmod carries no content change.
	if event.Op&fsnotify.Chmod != 0 && event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	// One stat serves both the directory check and the size probe. For
	// removes and renames it fails, which is expected: deletions carry no
	// size.
	info, statErr := os.Lstat(event.Name)
	isDir := statErr == nil && info.IsDir()

	if isDir {
		// New directories join the watch set; their existing contents are
		// synthesized as creations since they may predate the watch.
		if event.Op&fsnotify.Create != 0 && !w.policy.IgnoresDir(rel) {
			w.addTree(event.Name)
		}
		return
	}

	var kind ChangeKind
	switch {
	case event.Op&fsnotify.Create != 0:
		kind = Created
	case event.Op&fsnotify.Write != 0:
		kind = Modified
	case event.Op&fsnotify.Remove != 0, event.Op&fsnotify.Rename != 0:
		// A rename away is a deletion here; the destination produces its
		// own create event if it lands inside the root.
		kind = Deleted
	default:
		return
	}

	if kind == Deleted {
		// The path is gone, so file and directory deletions are
		// indistinguishable. Only component-level ignores filter them;
		// the processor resolves what was actually indexed underneath.
		if w.policy.Ignores(rel) {
			return
		}
	} else if !w.policy.AllowsFile(rel) {
		return
	}

	size := SizeUnknown
	if kind != Deleted && statErr == nil {
		size = info.Size()
	}

	w.emit(ChangeEvent{
		Kind:       kind,
		Path:       rel,
		ObservedAt: time.Now(),
		Size:       size,
	})
}

// emit runs an event through the debouncer and hands it to the queue.
func (w *Watcher) emit(ev ChangeEvent) {
	if !w.debouncer.Accept(ev.Path, ev.ObservedAt) {
		w.log.Debug("event_suppressed", slog.String("path", ev.Path),
			slog.String("kind", ev.Kind.String()))
		return
	}

	w.detected.Add(1)
	if !w.enqueue(ev) {
		w.log.Warn("change_queue_full",
			slog.String("path", ev.Path),
			slog.String("kind", ev.Kind.String()))
	}
}

// addRecursive registers watches for root and every non-ignored directory
// below it. Files are not touched; the initial corpus pass owns existing
// content.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped
		}
		if !d.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if rel != "." && w.policy.IgnoresDir(rel) {
			return filepath.SkipDir
		}
		w.loadGitignore(path, rel)
		return w.fsw.Add(path)
	})
}

// loadGitignore feeds a directory's .gitignore into the shared policy so
// the watcher prunes the same subtrees the scanner does.
func (w *Watcher) loadGitignore(dir, rel string) {
	base := rel
	if base == "." {
		base = ""
	}
	w.policy.LoadGitignoreFile(filepath.Join(dir, ".gitignore"), base)
}

// addTree registers watches for a directory created while watching and
// synthesizes creation events for files already inside it. A directory
// moved into the root arrives populated; without the synthesis those files
// would never reach the index.
func (w *Watcher) addTree(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if w.policy.IgnoresDir(rel) {
				return filepath.SkipDir
			}
			w.loadGitignore(path, rel)
			if addErr := w.fsw.Add(path); addErr != nil {
				w.log.Warn("watch_add_failed", slog.String("path", path),
					slog.String("error", addErr.Error()))
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 || !w.policy.AllowsFile(rel) {
			return nil
		}

		size := SizeUnknown
		if info, infoErr := d.Info(); infoErr == nil {
			size = info.Size()
		}
		w.emit(ChangeEvent{
			Kind:       Created,
			Path:       rel,
			ObservedAt: time.Now(),
			Size:       size,
		})
		return nil
	})
}
