// Package store is the persistence layer: the SQLite document store with
// its FTS5 keyword mirror, and the vector indexes (exhaustive exact scan by
// default, HNSW for large corpora).
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/recallkb/recall/internal/feature"
)

// CurrentSchemaVersion is the document database schema version.
const CurrentSchemaVersion = 1

// DocumentRecord is one indexed document. The stored ContentHash always
// equals the SHA-256 of the stored Content as of the last successful index;
// the latest processed change wins.
type DocumentRecord struct {
	// ID is the document identity: the path relative to the indexed root.
	ID string

	// Path is the absolute path the content was read from.
	Path string

	// Content is the document text. Empty for metadata-only records
	// (binary files).
	Content []byte

	// ContentHash is the lowercase SHA-256 hex of Content.
	ContentHash string

	// Size is the content length in bytes at read time.
	Size int64

	// MediaType classifies the document.
	MediaType feature.MediaType

	// SourceTimestamp is the file modification time, when known.
	SourceTimestamp time.Time

	// IndexedAt is when the record was last written.
	IndexedAt time.Time
}

// DocumentInfo is the content-free subset of a DocumentRecord.
type DocumentInfo struct {
	ID          string
	ContentHash string
	Size        int64
	MediaType   feature.MediaType
}

// Meta is the per-entry metadata carried by the vector index, enough to
// filter results without a store lookup.
type Meta struct {
	Path      string
	MediaType feature.MediaType
	Size      int64
}

// Result is a scored search hit.
type Result struct {
	DocID string
	Score float64
	Meta  Meta
}

// VectorIndex holds document vectors and answers similarity queries.
// Implementations are safe for concurrent readers with a single writer.
type VectorIndex interface {
	// Put inserts or replaces the entry for docID.
	Put(docID string, vector []float32, meta Meta) error

	// Remove deletes the entry for docID; removing an absent ID is a no-op.
	Remove(docID string) error

	// Contains reports whether docID has an entry.
	Contains(docID string) bool

	// Search returns up to k results in strictly descending score order,
	// ties broken by ascending docID. A non-nil filter is applied before
	// truncation to k.
	Search(query []float32, k int, filter func(Meta) bool) ([]Result, error)

	// Len returns the number of entries.
	Len() int

	// SetModelID records the fingerprint of the model whose vectors the
	// index holds; ModelID returns it.
	SetModelID(id string)
	ModelID() string

	// Export serializes the index to an opaque blob; Import replaces the
	// contents from a blob. Vector values round-trip exactly. Import
	// rejects blobs from a different model or dimension.
	Export() ([]byte, error)
	Import(data []byte) error
}

// KeywordResult is a keyword-search hit. Scores are backend-specific BM25
// values comparable only within one result set.
type KeywordResult struct {
	DocID        string
	Score        float64
	MatchedTerms []string
}

// KeywordIndex answers keyword queries. The FTS5 backend reads the
// document store's mirror table and needs no feeding; the bleve backend
// maintains its own index and is fed by the processor through Index and
// Remove.
type KeywordIndex interface {
	// Index adds or replaces the keyword entry for a document.
	Index(ctx context.Context, docID string, content []byte) error

	// Remove deletes the keyword entry; absent IDs are a no-op.
	Remove(ctx context.Context, docID string) error

	// Search returns hits best-first. A non-positive limit means no limit.
	Search(ctx context.Context, query string, limit int) ([]KeywordResult, error)

	// Close releases backend resources.
	Close() error
}

// ErrDimensionMismatch indicates a vector of the wrong length for an index.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

// Vector backend names accepted by NewVectorIndex.
const (
	VectorBackendExact = "exact"
	VectorBackendHNSW  = "hnsw"
)

// NewVectorIndex builds the configured vector backend for vectors of the
// given dimension. The exact backend scans every vector and is the
// default; the hnsw backend approximates for large corpora.
func NewVectorIndex(backend string, dim int, cfg HNSWConfig) (VectorIndex, error) {
	switch backend {
	case VectorBackendExact, "":
		return NewExactIndex(dim), nil
	case VectorBackendHNSW:
		return NewHNSWIndex(dim, cfg), nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q (want %s or %s)",
			backend, VectorBackendExact, VectorBackendHNSW)
	}
}

var (
	_ VectorIndex = (*ExactIndex)(nil)
	_ VectorIndex = (*HNSWIndex)(nil)
)
