package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/recallkb/recall/internal/embed"
	rcerrors "github.com/recallkb/recall/internal/errors"
	"github.com/recallkb/recall/internal/feature"
	"github.com/recallkb/recall/internal/retrieve"
	"github.com/recallkb/recall/internal/scan"
	"github.com/recallkb/recall/internal/store"
	"github.com/recallkb/recall/internal/watch"
)

// Indexing phases reported to a ProgressFunc, in order.
const (
	PhaseScan       = "scan"
	PhaseVocabulary = "vocabulary"
	PhaseIndex      = "index"
	PhasePersist    = "persist"
)

// ProgressFunc observes indexing progress; done and total count within the
// named phase. Calls are serialized.
type ProgressFunc func(phase string, done, total int)

// IndexReport summarizes one full indexing pass.
type IndexReport struct {
	Files     int
	Indexed   int
	Unchanged int
	Removed   int
	Failed    int
	Duration  time.Duration
}

// IndexAll runs a full corpus pass: scan, build the model if needed (or
// when rebuild forces it), apply every file through the processor path,
// remove store entries whose files are gone, persist. Unchanged documents
// cost one read and a hash.
func (e *Engine) IndexAll(ctx context.Context, rebuild bool, progress ProgressFunc) (*IndexReport, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	release, err := e.acquirePassLock()
	if err != nil {
		return nil, err
	}
	defer release()

	var notifyMu sync.Mutex
	notify := func(phase string, done, total int) {
		if progress == nil {
			return
		}
		notifyMu.Lock()
		progress(phase, done, total)
		notifyMu.Unlock()
	}

	start := time.Now()
	report := &IndexReport{}

	notify(PhaseScan, 0, 0)
	files, err := e.scanner.Scan(ctx)
	if err != nil {
		return nil, err
	}
	report.Files = len(files)
	notify(PhaseScan, len(files), len(files))

	if err := e.ensureModel(ctx, files, rebuild, notify); err != nil {
		return nil, err
	}

	// One code path for "apply this document": every scanned file becomes
	// a synthesized Created event.
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, _ := e.applyEvent(ctx, watch.ChangeEvent{
			Kind:       watch.Created,
			Path:       f.Path,
			ObservedAt: time.Now(),
			Size:       f.Size,
		})
		switch out {
		case outcomeIndexed:
			report.Indexed++
		case outcomeUnchanged:
			report.Unchanged++
		case outcomeFailed:
			report.Failed++
		}
		notify(PhaseIndex, i+1, len(files))
	}

	removed, err := e.reconcile(ctx, files)
	if err != nil {
		return nil, err
	}
	report.Removed = removed

	notify(PhasePersist, 0, 1)
	if err := e.persist(); err != nil {
		return nil, err
	}
	notify(PhasePersist, 1, 1)

	report.Duration = time.Since(start)
	e.log.Info("index_pass_complete",
		slog.Int("files", report.Files),
		slog.Int("indexed", report.Indexed),
		slog.Int("unchanged", report.Unchanged),
		slog.Int("removed", report.Removed),
		slog.Int("failed", report.Failed),
		slog.Duration("duration", report.Duration))
	return report, nil
}

// IndexNow synchronously (re)indexes one file or directory through the
// same apply path the worker uses. The path may be absolute or relative to
// the indexed root; a vanished path is applied as a deletion. Requires a
// built model.
func (e *Engine) IndexNow(ctx context.Context, path string) error {
	if e.currentModel() == nil {
		return rcerrors.NotInitialized("no embedding model built; run a full index first")
	}

	id, err := e.relativeID(path)
	if err != nil {
		return err
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	release, err := e.acquirePassLock()
	if err != nil {
		return err
	}
	defer release()

	abs := filepath.Join(e.root, filepath.FromSlash(id))
	info, err := os.Lstat(abs)
	switch {
	case os.IsNotExist(err):
		_, aerr := e.applyEvent(ctx, watch.ChangeEvent{
			Kind:       watch.Deleted,
			Path:       id,
			ObservedAt: time.Now(),
			Size:       watch.SizeUnknown,
		})
		return aerr
	case err != nil:
		return rcerrors.IOError(fmt.Sprintf("failed to stat %s", path), err)
	}

	if info.IsDir() {
		return e.indexSubtree(ctx, id)
	}

	_, aerr := e.applyEvent(ctx, watch.ChangeEvent{
		Kind:       watch.Modified,
		Path:       id,
		ObservedAt: time.Now(),
		Size:       info.Size(),
	})
	return aerr
}

// indexSubtree applies every eligible file under rel and removes entries
// the scan no longer sees, so indexing a directory converges it exactly.
// Caller holds writeMu.
func (e *Engine) indexSubtree(ctx context.Context, rel string) error {
	files, err := e.scanner.ScanSubtree(ctx, rel)
	if err != nil {
		return err
	}

	present := make(map[string]struct{}, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		present[f.Path] = struct{}{}
		_, _ = e.applyEvent(ctx, watch.ChangeEvent{
			Kind:       watch.Modified,
			Path:       f.Path,
			ObservedAt: time.Now(),
			Size:       f.Size,
		})
	}

	prefix := ""
	if rel != "." {
		prefix = rel + "/"
	}
	stale, err := e.docs.IDsWithPrefix(ctx, prefix)
	if err != nil {
		return err
	}
	for _, id := range stale {
		if _, ok := present[id]; ok {
			continue
		}
		if _, err := e.removeDocument(ctx, id); err != nil {
			e.counters.errors.Add(1)
			e.log.Warn("reconcile_remove_failed",
				slog.String("path", id), slog.String("error", err.Error()))
		}
	}
	return nil
}

// ensureModel builds the vocabulary model when none exists or a rebuild is
// forced. Caller holds writeMu.
func (e *Engine) ensureModel(ctx context.Context, files []scan.FileInfo, rebuild bool, notify ProgressFunc) error {
	if e.currentModel() != nil && !rebuild {
		return nil
	}

	model, err := e.buildModel(ctx, files, notify)
	if err != nil {
		return err
	}
	return e.installModel(model)
}

// buildModel reads and extracts the scanned corpus in parallel, then
// builds the deterministic embedding model. Extraction order does not
// matter: vocabulary index assignment sorts lexicographically after the
// parallel phase.
func (e *Engine) buildModel(ctx context.Context, files []scan.FileInfo, notify ProgressFunc) (*embed.Model, error) {
	sets := make([]feature.Set, len(files))
	var done atomic.Int64

	workers := runtime.NumCPU()
	if workers > len(files) {
		workers = len(files)
	}
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	indexes := make(chan int)
	g.Go(func() error {
		defer close(indexes)
		for i := range files {
			select {
			case indexes <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range indexes {
				f := files[i]
				content, err := os.ReadFile(f.AbsPath)
				if err != nil || looksBinary(content) {
					// Unreadable and binary files contribute no tokens;
					// the indexing pass deals with them individually.
					done.Add(1)
					continue
				}
				sets[i] = feature.Extract(content, f.Path)
				notify(PhaseVocabulary, int(done.Add(1)), len(files))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	vocab := embed.BuildVocabulary(sets)
	model, err := embed.NewModel(vocab, embed.Options{
		Dimension: e.cfg.Embedding.Dimension,
		Seed:      e.cfg.Embedding.Seed,
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("model_built",
		slog.Int("vocabulary", vocab.Size()),
		slog.Int("dimension", model.Dimension()),
		slog.String("fingerprint", model.Fingerprint()[:12]))
	return model, nil
}

// installModel swaps in a model and the read surface built around it. A
// changed fingerprint restarts the vector index empty, which forces the
// next pass to re-encode every document; an identical fingerprint keeps
// the existing vectors, they are still valid.
func (e *Engine) installModel(model *embed.Model) error {
	// Extraction is path-dependent, so documents must encode through the
	// model directly: the content-keyed cache would serve one media type's
	// vector for another's identical bytes. Only the retriever gets the
	// cache; every query encodes under the same empty path.
	var queryEnc embed.Encoder = model
	if e.cfg.Embedding.CacheSize > 0 {
		queryEnc = embed.NewCachedEncoder(model, e.cfg.Embedding.CacheSize)
	}

	e.modelMu.Lock()
	defer e.modelMu.Unlock()

	if e.vectors.ModelID() != model.Fingerprint() {
		vectors, err := store.NewVectorIndex(e.cfg.Vector.Kind, model.Dimension(), storeHNSWConfig(e.cfg))
		if err != nil {
			return err
		}
		vectors.SetModelID(model.Fingerprint())
		e.vectors = vectors
	}

	retriever, err := retrieve.New(queryEnc, e.vectors, e.docs, retrieve.Options{
		DefaultLimit:    e.cfg.Search.DefaultLimit,
		PreviewChars:    e.cfg.Search.PreviewChars,
		MaxContextChars: e.cfg.Search.MaxContextChars,
	})
	if err != nil {
		return err
	}

	e.model = model
	e.retriever = retriever
	return nil
}

// reconcile removes store entries whose files the scan no longer sees, so
// a full pass converges to the filesystem even for deletions that happened
// while nothing was watching. Caller holds writeMu.
func (e *Engine) reconcile(ctx context.Context, files []scan.FileInfo) (int, error) {
	present := make(map[string]struct{}, len(files))
	for _, f := range files {
		present[f.Path] = struct{}{}
	}

	ids, err := e.docs.IDs(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, id := range ids {
		if _, ok := present[id]; ok {
			continue
		}
		out, err := e.removeDocument(ctx, id)
		if err != nil {
			e.counters.errors.Add(1)
			e.log.Warn("reconcile_remove_failed",
				slog.String("path", id), slog.String("error", err.Error()))
			continue
		}
		if out == outcomeRemoved {
			removed++
		}
	}
	return removed, nil
}

// persist writes the model spec and vector snapshot into the data
// directory. The document store is durable on its own; the WAL checkpoint
// just folds the log into the main file.
func (e *Engine) persist() error {
	e.modelMu.RLock()
	model, vectors := e.model, e.vectors
	e.modelMu.RUnlock()

	if model == nil {
		return nil
	}
	if err := embed.SaveModel(model, filepath.Join(e.dataDir, modelFileName)); err != nil {
		return err
	}
	if err := store.SaveIndex(vectors, filepath.Join(e.dataDir, vectorsFileName)); err != nil {
		return err
	}
	if err := e.docs.Checkpoint(); err != nil {
		e.log.Warn("checkpoint_failed", slog.String("error", err.Error()))
	}
	return nil
}

// relativeID normalizes a caller-supplied path to the document identity:
// slash-separated, relative to the indexed root.
func (e *Engine) relativeID(path string) (string, error) {
	if path == "" || path == "." {
		return ".", nil
	}
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(e.root, path)
	}
	rel, err := filepath.Rel(e.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", rcerrors.New(rcerrors.ErrCodeInvalidPath,
			fmt.Sprintf("path is outside the indexed root: %s", path), err).
			WithDetail("root", e.root)
	}
	return filepath.ToSlash(rel), nil
}
