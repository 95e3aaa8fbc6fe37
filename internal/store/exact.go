package store

import (
	"sort"
	"sync"

	"github.com/recallkb/recall/internal/embed"
)

// entry is one stored vector with its filterable metadata.
type entry struct {
	vector []float32
	meta   Meta
}

// ExactIndex scores every stored vector against the query. Results are
// exact and deterministic: descending score, ascending document ID on
// ties. Suitable for corpora up to the tens of thousands of documents;
// beyond that HNSWIndex trades exactness for speed.
type ExactIndex struct {
	mu      sync.RWMutex
	dim     int
	modelID string
	entries map[string]entry
}

// NewExactIndex creates an empty index for vectors of the given dimension.
func NewExactIndex(dim int) *ExactIndex {
	return &ExactIndex{
		dim:     dim,
		entries: make(map[string]entry),
	}
}

// Put stores or replaces the vector for docID. The vector is copied, so
// callers may reuse the slice.
func (idx *ExactIndex) Put(docID string, vector []float32, meta Meta) error {
	if len(vector) != idx.dim {
		return ErrDimensionMismatch{Expected: idx.dim, Got: len(vector)}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	stored := make([]float32, len(vector))
	copy(stored, vector)
	idx.entries[docID] = entry{vector: stored, meta: meta}
	return nil
}

// Remove deletes docID from the index. Removing an absent ID is a no-op.
func (idx *ExactIndex) Remove(docID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	delete(idx.entries, docID)
	return nil
}

// Contains reports whether docID has a stored vector.
func (idx *ExactIndex) Contains(docID string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	_, ok := idx.entries[docID]
	return ok
}

// Search returns the k entries most similar to query. The filter runs
// before truncation, so k survivors come back even when earlier candidates
// were filtered out. A nil filter admits everything.
func (idx *ExactIndex) Search(query []float32, k int, filter func(Meta) bool) ([]Result, error) {
	if len(query) != idx.dim {
		return nil, ErrDimensionMismatch{Expected: idx.dim, Got: len(query)}
	}
	if k <= 0 {
		return []Result{}, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	results := make([]Result, 0, len(idx.entries))
	for docID, e := range idx.entries {
		if filter != nil && !filter(e.meta) {
			continue
		}
		results = append(results, Result{
			DocID: docID,
			Score: embed.Score(query, e.vector),
			Meta:  e.meta,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Len returns the number of stored vectors.
func (idx *ExactIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.entries)
}

// SetModelID records the fingerprint of the model that produced the
// stored vectors.
func (idx *ExactIndex) SetModelID(id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.modelID = id
}

// ModelID returns the recorded model fingerprint.
func (idx *ExactIndex) ModelID() string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.modelID
}

// Export serializes the index contents. See snapshot.go for the format.
func (idx *ExactIndex) Export() ([]byte, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return encodeSnapshot(idx.dim, idx.modelID, idx.entries)
}

// Import replaces the index contents with a previously exported snapshot.
// The snapshot must match the index dimension and model fingerprint.
func (idx *ExactIndex) Import(data []byte) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	snap, err := decodeSnapshot(data, idx.dim, idx.modelID)
	if err != nil {
		return err
	}

	idx.entries = make(map[string]entry, len(snap.Entries))
	for _, se := range snap.Entries {
		idx.entries[se.DocID] = entry{vector: se.Vector, meta: se.Meta}
	}
	return nil
}
