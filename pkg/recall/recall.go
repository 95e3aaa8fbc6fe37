package recall

import (
	"context"
	"log/slog"
	"time"

	"github.com/recallkb/recall/internal/config"
	"github.com/recallkb/recall/internal/engine"
	"github.com/recallkb/recall/internal/retrieve"
)

// Index is an open index over a directory tree. Create one with Open and
// release it with Close.
type Index struct {
	eng *engine.Engine
}

type options struct {
	logger *slog.Logger
	mutate []func(*config.Config)
}

// Option adjusts how Open configures the index.
type Option func(*options)

// WithLogger routes engine logs to log instead of slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.logger = log }
}

// WithDataDir overrides where index state is kept. Relative paths are
// resolved against the root.
func WithDataDir(dir string) Option {
	return func(o *options) {
		o.mutate = append(o.mutate, func(c *config.Config) { c.Paths.DataDir = dir })
	}
}

// WithDimension overrides the embedding vector width. Changing it on an
// existing index forces a model rebuild on the next pass.
func WithDimension(dim int) Option {
	return func(o *options) {
		o.mutate = append(o.mutate, func(c *config.Config) { c.Embedding.Dimension = dim })
	}
}

// WithMaxFileSize overrides the per-file size cap in bytes. Larger files
// are skipped during indexing.
func WithMaxFileSize(n int64) Option {
	return func(o *options) {
		o.mutate = append(o.mutate, func(c *config.Config) { c.Index.MaxFileSizeBytes = n })
	}
}

// Open loads the configuration for root and opens its index, creating the
// data directory when missing. Previously persisted state is loaded, so
// queries work immediately after a restart.
func Open(root string, opts ...Option) (*Index, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	for _, m := range o.mutate {
		m(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	eng, err := engine.New(cfg, root, logger)
	if err != nil {
		return nil, err
	}
	return &Index{eng: eng}, nil
}

// Report summarizes one indexing pass.
type Report struct {
	Files     int
	Indexed   int
	Unchanged int
	Removed   int
	Failed    int
	Duration  time.Duration
}

// Update brings the index in sync with the tree in one pass. Unchanged
// files cost one read and a hash; new and modified files are re-encoded;
// store entries for deleted files are removed.
func (ix *Index) Update(ctx context.Context) (Report, error) {
	return ix.runPass(ctx, false)
}

// Rebuild re-derives the vocabulary from the current corpus and re-encodes
// every document. Needed after changing the embedding configuration; an
// Update suffices otherwise.
func (ix *Index) Rebuild(ctx context.Context) (Report, error) {
	return ix.runPass(ctx, true)
}

func (ix *Index) runPass(ctx context.Context, rebuild bool) (Report, error) {
	rep, err := ix.eng.IndexAll(ctx, rebuild, nil)
	if err != nil {
		return Report{}, err
	}
	return Report(*rep), nil
}

// IndexFile pushes one file through the indexing path immediately,
// bypassing the watcher. The path may be absolute or relative to the
// root.
func (ix *Index) IndexFile(ctx context.Context, path string) error {
	return ix.eng.IndexNow(ctx, path)
}

// Watch runs an indexing pass and then keeps the index synchronized with
// filesystem changes until Stop or Close. Only one watcher may run per
// data directory; a second Watch on the same directory fails to acquire
// the lock.
func (ix *Index) Watch(ctx context.Context) error {
	return ix.eng.Start(ctx)
}

// Stop halts watching and persists pending state. The index stays open
// for queries; Stop on an index that is not watching is a no-op.
func (ix *Index) Stop(ctx context.Context) error {
	return ix.eng.Stop(ctx)
}

// Result is a scored search hit.
type Result struct {
	DocID     string
	Path      string
	MediaType string
	Size      int64
	Score     float64
	Preview   string
}

// Search returns the limit most similar documents to the query. A limit
// <= 0 uses the configured default.
func (ix *Index) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	hits, err := ix.eng.Search(ctx, query, limit, nil)
	if err != nil {
		return nil, err
	}
	return toResults(hits), nil
}

// KeywordSearch matches query terms directly instead of going through the
// embedding model. Scores are BM25 values comparable only within one
// result set.
func (ix *Index) KeywordSearch(ctx context.Context, query string, limit int) ([]Result, error) {
	hits, err := ix.eng.KeywordSearch(ctx, query, limit, nil)
	if err != nil {
		return nil, err
	}
	return toResults(hits), nil
}

func toResults(hits []engine.SearchResult) []Result {
	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{
			DocID:     h.DocID,
			Path:      h.Meta.Path,
			MediaType: string(h.Meta.MediaType),
			Size:      h.Meta.Size,
			Score:     h.Score,
			Preview:   h.Preview,
		}
	}
	return results
}

// ContextBlock is one document packed into an assembled context.
type ContextBlock struct {
	DocID     string
	Score     float64
	Content   string
	Truncated bool
}

// Retrieve packs the best matches for the query into blocks under
// maxChars. Zero limit or maxChars uses the configured defaults.
func (ix *Index) Retrieve(ctx context.Context, query string, limit, maxChars int) ([]ContextBlock, error) {
	blocks, err := ix.eng.Retrieve(ctx, query, limit, maxChars)
	if err != nil {
		return nil, err
	}
	out := make([]ContextBlock, len(blocks))
	for i, b := range blocks {
		out[i] = ContextBlock(b)
	}
	return out, nil
}

// Context retrieves and assembles the best matches into one prompt-ready
// string. Empty when nothing matches.
func (ix *Index) Context(ctx context.Context, query string, limit, maxChars int) (string, error) {
	blocks, err := ix.eng.Retrieve(ctx, query, limit, maxChars)
	if err != nil {
		return "", err
	}
	return retrieve.AssembleContext(blocks), nil
}

// Stats is a snapshot of index size and pipeline activity.
type Stats struct {
	Documents          int
	VectorEntries      int
	DocumentsProcessed uint64
	ChangesDetected    uint64
	DebounceSuppressed uint64
	QueueDepth         int
	QueueDropped       uint64
	DiscardedOnStop    uint64
	Errors             uint64
	Watching           bool
	UptimeSeconds      float64
}

// Stats snapshots the index. Callable from any goroutine at any point in
// the lifecycle.
func (ix *Index) Stats() Stats {
	st := ix.eng.Stats()
	return Stats{
		Documents:          st.DocumentsIndexed,
		VectorEntries:      st.VectorEntries,
		DocumentsProcessed: st.DocumentsProcessed,
		ChangesDetected:    st.ChangesDetected,
		DebounceSuppressed: st.DebounceSuppressed,
		QueueDepth:         st.QueueDepth,
		QueueDropped:       st.QueueDropped,
		DiscardedOnStop:    st.DiscardedOnStop,
		Errors:             st.Errors,
		Watching:           st.Watching,
		UptimeSeconds:      st.UptimeSeconds,
	}
}

// ModelInfo identifies the embedding model.
type ModelInfo struct {
	Dimension   int
	VocabSize   int
	Fingerprint string
}

// Model returns the installed model's identity. ok is false before the
// first indexing pass.
func (ix *Index) Model() (info ModelInfo, ok bool) {
	m, ok := ix.eng.Model()
	if !ok {
		return ModelInfo{}, false
	}
	return ModelInfo(m), true
}

// Export serializes the vector index to a portable blob. The blob carries
// the model fingerprint, so an Import into a mismatched index is rejected.
func (ix *Index) Export() ([]byte, error) {
	return ix.eng.ExportIndex()
}

// Import replaces the vector index contents from an exported blob and
// persists immediately.
func (ix *Index) Import(data []byte) error {
	return ix.eng.ImportIndex(data)
}

// Root returns the absolute indexed root directory.
func (ix *Index) Root() string {
	return ix.eng.Root()
}

// DataDir returns the absolute data directory.
func (ix *Index) DataDir() string {
	return ix.eng.DataDir()
}

// Close stops watching if active and releases the underlying stores.
// Pending state is persisted first.
func (ix *Index) Close() error {
	return ix.eng.Close()
}
