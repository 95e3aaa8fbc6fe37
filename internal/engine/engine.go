package engine

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/recallkb/recall/internal/config"
	"github.com/recallkb/recall/internal/embed"
	rcerrors "github.com/recallkb/recall/internal/errors"
	"github.com/recallkb/recall/internal/retrieve"
	"github.com/recallkb/recall/internal/scan"
	"github.com/recallkb/recall/internal/store"
	"github.com/recallkb/recall/internal/watch"
)

// Data directory layout, all under <root>/<paths.data_dir>.
const (
	documentsFileName = "documents.db"
	vectorsFileName   = "vectors.bin"
	modelFileName     = "model.json"
	keywordDirName    = "keyword.bleve"
)

// SearchResult is a ranked hit with preview, returned by Search and
// KeywordSearch.
type SearchResult = retrieve.Result

// Engine owns the whole pipeline: watcher, change queue, worker, stores,
// model, and the query surface. Construct with New, run with Start/Stop;
// the read operations work without Start on a previously indexed corpus.
//
// Locking: writeMu serializes every store mutation (worker, IndexNow,
// IndexAll, ImportIndex). modelMu guards the read surface that a model
// rebuild swaps out (model, vector index, retriever). mu guards
// lifecycle state only.
type Engine struct {
	cfg     *config.Config
	root    string
	dataDir string
	log     *slog.Logger

	docs    *store.DocumentStore
	keyword store.KeywordIndex
	scanner *scan.Scanner
	policy  *scan.Policy
	queue   *ChangeQueue
	lock    *DirLock

	modelMu   sync.RWMutex
	model     *embed.Model
	vectors   store.VectorIndex
	retriever *retrieve.Retriever

	writeMu sync.Mutex

	mu        sync.Mutex
	started   bool
	startedAt time.Time
	watcher   *watch.Watcher
	stopCh    chan struct{}
	wg        sync.WaitGroup

	counters counters
}

// New opens an engine over root. The stores open immediately and any
// persisted model and vector snapshot are restored, so Search works right
// away on a previously indexed corpus; Start is only needed for watching.
func New(cfg *config.Config, root string, log *slog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}

	policy := scan.NewPolicy(cfg.Index.AllowedExtensions, cfg.Index.IgnoredPatterns, cfg.Index.MaxFileSizeBytes)
	scanner, err := scan.New(root, policy)
	if err != nil {
		return nil, err
	}
	if !cfg.Index.NoGitignore {
		// Root rules are in force before the first walk; scans and the
		// watcher feed nested .gitignore files as they meet them.
		policy.UseGitignore(scan.LoadGitignore(scanner.Root()))
	}

	dataDir := cfg.Paths.DataDir
	if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(scanner.Root(), dataDir)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, rcerrors.IOError("failed to create data directory", err).WithDetail("path", dataDir)
	}

	docs, err := store.NewDocumentStore(filepath.Join(dataDir, documentsFileName))
	if err != nil {
		return nil, err
	}
	keyword, err := store.NewKeywordIndex(cfg.Search.KeywordBackend, docs, filepath.Join(dataDir, keywordDirName))
	if err != nil {
		_ = docs.Close()
		return nil, err
	}
	vectors, err := store.NewVectorIndex(cfg.Vector.Kind, cfg.Embedding.Dimension, storeHNSWConfig(cfg))
	if err != nil {
		_ = keyword.Close()
		_ = docs.Close()
		return nil, err
	}

	e := &Engine{
		cfg:     cfg,
		root:    scanner.Root(),
		dataDir: dataDir,
		log:     log,
		docs:    docs,
		keyword: keyword,
		vectors: vectors,
		scanner: scanner,
		policy:  policy,
		queue:   NewChangeQueue(cfg.Watch.QueueCapacity),
		lock:    NewDirLock(dataDir),
	}
	e.loadPersisted()
	return e, nil
}

// loadPersisted restores the model spec and vector snapshot from a
// previous run. Anything missing, corrupt, or built under different
// options is skipped with a warning; the next full pass rebuilds it.
func (e *Engine) loadPersisted() {
	model, ok, err := embed.LoadModel(filepath.Join(e.dataDir, modelFileName))
	if err != nil {
		e.log.Warn("persisted_model_unreadable", slog.String("error", err.Error()))
		return
	}
	if !ok {
		return
	}
	if model.Dimension() != e.cfg.Embedding.Dimension || model.Seed() != e.cfg.Embedding.Seed {
		e.log.Warn("persisted_model_ignored",
			slog.Int("model_dimension", model.Dimension()),
			slog.Int("config_dimension", e.cfg.Embedding.Dimension))
		return
	}
	if err := e.installModel(model); err != nil {
		e.log.Warn("persisted_model_rejected", slog.String("error", err.Error()))
		return
	}

	loaded, err := store.LoadIndex(e.vectors, filepath.Join(e.dataDir, vectorsFileName))
	if err != nil {
		// Fingerprint or dimension mismatch; the pass after Start
		// re-encodes everything.
		e.log.Warn("vector_snapshot_rejected", slog.String("error", err.Error()))
		return
	}
	if loaded {
		e.log.Info("vector_snapshot_loaded", slog.Int("entries", e.vectors.Len()))
	}
}

// Start acquires the data directory lock, runs a full indexing pass, and
// launches the watcher and worker goroutines.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return rcerrors.InternalError("engine already started", nil)
	}
	e.started = true
	e.mu.Unlock()

	fail := func(err error) error {
		e.mu.Lock()
		e.started = false
		e.mu.Unlock()
		_ = e.lock.Release()
		return err
	}

	if err := e.lock.Acquire(); err != nil {
		e.mu.Lock()
		e.started = false
		e.mu.Unlock()
		return err
	}

	if _, err := e.IndexAll(ctx, false, nil); err != nil {
		return fail(err)
	}

	watcher, err := watch.New(watch.Config{
		Root:           e.root,
		DebounceWindow: e.cfg.Watch.DebounceWindow(),
		Policy:         e.policy,
		Logger:         e.log,
	}, e.queue.Offer)
	if err != nil {
		return fail(err)
	}

	e.mu.Lock()
	e.watcher = watcher
	e.stopCh = make(chan struct{})
	e.startedAt = time.Now()
	e.mu.Unlock()

	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		// Stop() ends the watcher through its own stop channel; the
		// context here would tie its life to the caller of Start.
		if err := watcher.Run(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
			e.counters.errors.Add(1)
			e.log.Error("watcher_failed", slog.String("error", err.Error()))
		}
	}()
	go e.worker()

	e.log.Info("engine_started",
		slog.String("root", e.root),
		slog.String("data_dir", e.dataDir))
	return nil
}

// worker drains the change queue one event at a time; it is the sole
// writer while running. In-flight events always finish: Stop signals
// between events, never through the apply context.
func (e *Engine) worker() {
	defer e.wg.Done()
	for {
		select {
		case <-e.stopCh:
			return
		default:
		}
		select {
		case <-e.stopCh:
			return
		case ev := <-e.queue.Events():
			e.writeMu.Lock()
			_, _ = e.applyEvent(context.Background(), ev)
			e.writeMu.Unlock()
		}
	}
}

// Stop shuts the pipeline down: the watcher stops emitting, the worker
// finishes its in-flight event, still-queued events are counted and
// discarded, state is persisted, and the directory lock is released.
// Stopping a stopped engine is a no-op.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = false
	watcher := e.watcher
	e.watcher = nil
	stopCh := e.stopCh
	e.mu.Unlock()

	if watcher != nil {
		watcher.Stop()
	}
	close(stopCh)
	e.wg.Wait()

	if watcher != nil {
		e.counters.detected.Add(watcher.Detected())
		e.counters.suppressed.Add(watcher.Suppressed())
	}
	if n := e.queue.Drain(); n > 0 {
		e.counters.discarded.Add(uint64(n))
		e.log.Info("queued_events_discarded", slog.Int("count", n))
	}

	err := e.persist()
	if lerr := e.lock.Release(); lerr != nil && err == nil {
		err = lerr
	}
	e.log.Info("engine_stopped")
	return err
}

// Close stops the engine if it is running and closes the stores.
func (e *Engine) Close() error {
	stopErr := e.Stop(context.Background())
	kwErr := e.keyword.Close()
	docErr := e.docs.Close()
	return errors.Join(stopErr, kwErr, docErr)
}

// Search returns the k most similar documents to the query. The index may
// be mid-update; results are consistent, at worst slightly stale.
func (e *Engine) Search(ctx context.Context, query string, k int, filter func(store.Meta) bool) ([]SearchResult, error) {
	r := e.currentRetriever()
	if r == nil {
		return nil, rcerrors.NotInitialized("no index built yet; run an indexing pass first")
	}
	return r.Search(ctx, query, k, filter)
}

// Retrieve packs the best matches for the query into context blocks under
// maxChars. A maxChars <= 0 uses the configured default budget.
func (e *Engine) Retrieve(ctx context.Context, query string, k, maxChars int) ([]retrieve.ContextBlock, error) {
	r := e.currentRetriever()
	if r == nil {
		return nil, rcerrors.NotInitialized("no index built yet; run an indexing pass first")
	}
	return r.Retrieve(ctx, query, k, maxChars)
}

// KeywordSearch answers the query from the keyword backend instead of the
// vector index. Results take the same shape as Search; scores are BM25
// values comparable only within one result set.
func (e *Engine) KeywordSearch(ctx context.Context, query string, k int, filter func(store.Meta) bool) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, rcerrors.ValidationError("query is empty", nil)
	}
	if k <= 0 {
		k = e.cfg.Search.DefaultLimit
	}
	limit := k
	if filter != nil {
		// The backend cannot evaluate the filter; fetch everything and
		// filter here.
		limit = 0
	}

	hits, err := e.keyword.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, k)
	for _, hit := range hits {
		rec, err := e.docs.Get(ctx, hit.DocID)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			continue
		}
		meta := store.Meta{Path: rec.ID, MediaType: rec.MediaType, Size: rec.Size}
		if filter != nil && !filter(meta) {
			continue
		}
		preview, _ := retrieve.Preview(string(rec.Content), e.cfg.Search.PreviewChars)
		results = append(results, SearchResult{
			DocID:   hit.DocID,
			Score:   hit.Score,
			Meta:    meta,
			Preview: preview,
		})
		if len(results) == k {
			break
		}
	}
	return results, nil
}

// ExportIndex serializes the vector index to an opaque blob that carries
// the model fingerprint and dimension.
func (e *Engine) ExportIndex() ([]byte, error) {
	e.modelMu.RLock()
	model, vectors := e.model, e.vectors
	e.modelMu.RUnlock()

	if model == nil {
		return nil, rcerrors.NotInitialized("no index built yet; nothing to export")
	}
	return vectors.Export()
}

// ImportIndex replaces the vector index contents from an exported blob.
// A blob from a different model or dimension is rejected before anything
// is touched. The imported state is persisted immediately.
func (e *Engine) ImportIndex(data []byte) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	release, err := e.acquirePassLock()
	if err != nil {
		return err
	}
	defer release()

	e.modelMu.RLock()
	model, vectors := e.model, e.vectors
	e.modelMu.RUnlock()

	if model == nil {
		return rcerrors.NotInitialized("no model built yet; index a corpus before importing")
	}
	if err := vectors.Import(data); err != nil {
		return err
	}
	e.log.Info("index_imported", slog.Int("entries", vectors.Len()))
	return e.persist()
}

// Stats snapshots engine activity. Callable from any goroutine at any
// point in the lifecycle.
func (e *Engine) Stats() Stats {
	e.modelMu.RLock()
	vectors := e.vectors
	e.modelMu.RUnlock()

	e.mu.Lock()
	started := e.started
	startedAt := e.startedAt
	watcher := e.watcher
	e.mu.Unlock()

	st := Stats{
		DocumentsProcessed: e.counters.processed.Load(),
		Errors:             e.counters.errors.Load() + e.queue.Dropped(),
		QueueDepth:         e.queue.Depth(),
		QueueDropped:       e.queue.Dropped(),
		ChangesDetected:    e.counters.detected.Load(),
		DebounceSuppressed: e.counters.suppressed.Load(),
		DiscardedOnStop:    e.counters.discarded.Load(),
		Watching:           started && watcher != nil,
		VectorEntries:      vectors.Len(),
	}
	if watcher != nil {
		st.ChangesDetected += watcher.Detected()
		st.DebounceSuppressed += watcher.Suppressed()
	}
	if count, err := e.docs.Count(context.Background()); err == nil {
		st.DocumentsIndexed = count
	}
	if started {
		st.UptimeSeconds = time.Since(startedAt).Seconds()
	}
	return st
}

// Root returns the absolute indexed root directory.
func (e *Engine) Root() string {
	return e.root
}

// DataDir returns the absolute data directory.
func (e *Engine) DataDir() string {
	return e.dataDir
}

// LockedElsewhere reports whether another process holds this data
// directory's lock, meaning a watch session or indexing pass is active
// there.
func (e *Engine) LockedElsewhere() bool {
	return e.lock.HeldElsewhere()
}

// ModelInfo identifies the installed embedding model.
type ModelInfo struct {
	Dimension   int    `json:"dimension"`
	VocabSize   int    `json:"vocab_size"`
	Fingerprint string `json:"fingerprint"`
}

// Model returns the installed model's identity. ok is false before any
// build.
func (e *Engine) Model() (info ModelInfo, ok bool) {
	m := e.currentModel()
	if m == nil {
		return ModelInfo{}, false
	}
	return ModelInfo{
		Dimension:   m.Dimension(),
		VocabSize:   m.Vocab().Size(),
		Fingerprint: m.Fingerprint(),
	}, true
}

func (e *Engine) currentModel() *embed.Model {
	e.modelMu.RLock()
	defer e.modelMu.RUnlock()
	return e.model
}

// encoder returns the document encoder: always the model itself, never
// the query cache, because document extraction depends on the path.
func (e *Engine) encoder() embed.Encoder {
	e.modelMu.RLock()
	defer e.modelMu.RUnlock()
	if e.model == nil {
		return nil
	}
	return e.model
}

func (e *Engine) currentRetriever() *retrieve.Retriever {
	e.modelMu.RLock()
	defer e.modelMu.RUnlock()
	return e.retriever
}

func storeHNSWConfig(cfg *config.Config) store.HNSWConfig {
	return store.HNSWConfig{
		M:              cfg.Vector.HNSW.M,
		EfConstruction: cfg.Vector.HNSW.EfConstruction,
		EfSearch:       cfg.Vector.HNSW.EfSearch,
	}
}
