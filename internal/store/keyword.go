package store

import (
	"context"
	"fmt"
)

// Keyword backend names accepted by NewKeywordIndex.
const (
	KeywordBackendFTS5  = "fts5"
	KeywordBackendBleve = "bleve"
)

// FTS5KeywordIndex serves keyword search from the document store's FTS5
// mirror. The mirror rows ride the store's own transactions, so Index and
// Remove are no-ops here; the store has already done the work by the time
// the processor calls them.
type FTS5KeywordIndex struct {
	store *DocumentStore
}

// NewFTS5KeywordIndex wraps an open document store.
func NewFTS5KeywordIndex(store *DocumentStore) *FTS5KeywordIndex {
	return &FTS5KeywordIndex{store: store}
}

// Index is a no-op: the mirror row was written by DocumentStore.Upsert.
func (f *FTS5KeywordIndex) Index(ctx context.Context, docID string, content []byte) error {
	return nil
}

// Remove is a no-op: the mirror row was deleted by DocumentStore.Remove.
func (f *FTS5KeywordIndex) Remove(ctx context.Context, docID string) error {
	return nil
}

// Search runs a bm25-ranked query against the FTS5 mirror.
func (f *FTS5KeywordIndex) Search(ctx context.Context, query string, limit int) ([]KeywordResult, error) {
	return f.store.KeywordSearch(ctx, query, limit)
}

// Close is a no-op; the document store owns the connection.
func (f *FTS5KeywordIndex) Close() error {
	return nil
}

// NewKeywordIndex builds the configured keyword backend. The FTS5 backend
// reads the document store's mirror table; the bleve backend maintains its
// own index at path (in-memory when path is empty).
func NewKeywordIndex(backend string, store *DocumentStore, path string) (KeywordIndex, error) {
	switch backend {
	case KeywordBackendFTS5, "":
		return NewFTS5KeywordIndex(store), nil
	case KeywordBackendBleve:
		return NewBleveKeywordIndex(path)
	default:
		return nil, fmt.Errorf("unknown keyword backend %q (want %s or %s)",
			backend, KeywordBackendFTS5, KeywordBackendBleve)
	}
}

var (
	_ KeywordIndex = (*FTS5KeywordIndex)(nil)
	_ KeywordIndex = (*BleveKeywordIndex)(nil)
)
