package store

import (
	"math"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	"github.com/recallkb/recall/internal/embed"
)

// HNSWConfig tunes the approximate index.
type HNSWConfig struct {
	// M is the maximum number of neighbors per node.
	M int
	// EfConstruction is the candidate list size during insertion. The
	// underlying library manages construction breadth internally, so this
	// is recorded but not applied.
	EfConstruction int
	// EfSearch is the candidate list size during search.
	EfSearch int
}

// DefaultHNSWConfig returns the recommended parameters for code corpora.
func DefaultHNSWConfig() HNSWConfig {
	return HNSWConfig{M: 16, EfConstruction: 200, EfSearch: 50}
}

// HNSWIndex finds nearest neighbors through an HNSW graph instead of a
// full scan. The graph holds normalized copies for cosine distance; the
// original vectors stay in entries, so reported scores are identical to
// ExactIndex's and snapshots port between the two backends.
//
// Deletion is lazy: the node stays in the graph and its key is orphaned,
// because removing nodes can break the graph when the last one goes.
// Orphans are skipped during search and dropped entirely on Import.
type HNSWIndex struct {
	mu      sync.RWMutex
	dim     int
	modelID string
	cfg     HNSWConfig

	graph   *hnsw.Graph[uint64]
	entries map[string]entry
	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64
}

// NewHNSWIndex creates an empty approximate index for vectors of the
// given dimension.
func NewHNSWIndex(dim int, cfg HNSWConfig) *HNSWIndex {
	def := DefaultHNSWConfig()
	if cfg.M <= 0 {
		cfg.M = def.M
	}
	if cfg.EfConstruction <= 0 {
		cfg.EfConstruction = def.EfConstruction
	}
	if cfg.EfSearch <= 0 {
		cfg.EfSearch = def.EfSearch
	}

	return &HNSWIndex{
		dim:     dim,
		cfg:     cfg,
		graph:   newGraph(cfg),
		entries: make(map[string]entry),
		idMap:   make(map[string]uint64),
		keyMap:  make(map[uint64]string),
	}
}

func newGraph(cfg HNSWConfig) *hnsw.Graph[uint64] {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25
	return graph
}

// Put stores or replaces the vector for docID.
func (idx *HNSWIndex) Put(docID string, vector []float32, meta Meta) error {
	if len(vector) != idx.dim {
		return ErrDimensionMismatch{Expected: idx.dim, Got: len(vector)}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.orphan(docID)

	stored := make([]float32, len(vector))
	copy(stored, vector)
	idx.entries[docID] = entry{vector: stored, meta: meta}

	normalized := make([]float32, len(vector))
	copy(normalized, vector)
	normalizeInPlace(normalized)

	key := idx.nextKey
	idx.nextKey++
	idx.graph.Add(hnsw.MakeNode(key, normalized))
	idx.idMap[docID] = key
	idx.keyMap[key] = docID
	return nil
}

// Remove deletes docID from the index. Removing an absent ID is a no-op.
func (idx *HNSWIndex) Remove(docID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.orphan(docID)
	delete(idx.entries, docID)
	return nil
}

// orphan detaches docID's graph node without removing it. Callers hold
// the write lock.
func (idx *HNSWIndex) orphan(docID string) {
	if key, ok := idx.idMap[docID]; ok {
		delete(idx.keyMap, key)
		delete(idx.idMap, docID)
	}
}

// Contains reports whether docID has a stored vector.
func (idx *HNSWIndex) Contains(docID string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	_, ok := idx.entries[docID]
	return ok
}

// Search returns the k entries most similar to query. Candidates are
// overfetched from the graph so that orphans and filtered entries do not
// eat into k; scores come from the original vectors, matching ExactIndex.
func (idx *HNSWIndex) Search(query []float32, k int, filter func(Meta) bool) ([]Result, error) {
	if len(query) != idx.dim {
		return nil, ErrDimensionMismatch{Expected: idx.dim, Got: len(query)}
	}
	if k <= 0 {
		return []Result{}, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.graph.Len() == 0 {
		return []Result{}, nil
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	normalizeInPlace(normalized)

	fetch := k * 4
	if fetch < k+16 {
		fetch = k + 16
	}

	nodes := idx.graph.Search(normalized, fetch)

	results := make([]Result, 0, len(nodes))
	for _, node := range nodes {
		docID, ok := idx.keyMap[node.Key]
		if !ok {
			continue // lazy-deleted
		}
		e := idx.entries[docID]
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

// Len returns the number of live vectors, excluding lazy-deleted orphans.
func (idx *HNSWIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.entries)
}

// Orphans returns how many lazy-deleted nodes remain in the graph. An
// export/import cycle compacts them away.
func (idx *HNSWIndex) Orphans() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.graph.Len() - len(idx.idMap)
}

// SetModelID records the fingerprint of the model that produced the
// stored vectors.
func (idx *HNSWIndex) SetModelID(id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.modelID = id
}

// ModelID returns the recorded model fingerprint.
func (idx *HNSWIndex) ModelID() string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.modelID
}

// Export serializes the live entries. Orphaned graph nodes are not part
// of the snapshot, so importing it elsewhere yields a compact graph.
func (idx *HNSWIndex) Export() ([]byte, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return encodeSnapshot(idx.dim, idx.modelID, idx.entries)
}

// Import replaces the index contents with a previously exported snapshot,
// rebuilding the graph from scratch. The snapshot must match the index
// dimension and model fingerprint.
func (idx *HNSWIndex) Import(data []byte) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	snap, err := decodeSnapshot(data, idx.dim, idx.modelID)
	if err != nil {
		return err
	}

	graph := newGraph(idx.cfg)
	entries := make(map[string]entry, len(snap.Entries))
	idMap := make(map[string]uint64, len(snap.Entries))
	keyMap := make(map[uint64]string, len(snap.Entries))

	var key uint64
	for _, se := range snap.Entries {
		entries[se.DocID] = entry{vector: se.Vector, meta: se.Meta}

		normalized := make([]float32, len(se.Vector))
		copy(normalized, se.Vector)
		normalizeInPlace(normalized)

		graph.Add(hnsw.MakeNode(key, normalized))
		idMap[se.DocID] = key
		keyMap[key] = se.DocID
		key++
	}

	idx.graph = graph
	idx.entries = entries
	idx.idMap = idMap
	idx.keyMap = keyMap
	idx.nextKey = key
	return nil
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}
