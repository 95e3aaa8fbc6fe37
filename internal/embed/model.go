package embed

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"math/rand"

	rcerrors "github.com/recallkb/recall/internal/errors"
	"github.com/recallkb/recall/internal/feature"
)

// Dimension bounds for the embedding table.
const (
	MinDimension     = 64
	MaxDimension     = 1024
	DefaultDimension = 256

	// DefaultSeed is the default seed for table initialization.
	DefaultSeed = 42
)

// Per-bucket weights applied during encoding. Declarations carry the
// strongest signal, comments the weakest.
const (
	WeightDeclarations = 2.0
	WeightImports      = 1.5
	WeightCalls        = 1.2
	WeightVariables    = 1.0
	WeightWords        = 0.5
	WeightComments     = 0.3
)

// similaritySteepness controls the logistic squash applied to raw cosine
// similarity; 5 spreads the useful cosine range [0.3, 0.7] across most of
// the [0,1] output range.
const similaritySteepness = 5.0

// Encoder turns document content into a fixed-dimension vector.
type Encoder interface {
	// Encode extracts features from content and returns its vector.
	Encode(content []byte, path string) ([]float32, error)

	// Dimension returns the vector dimension.
	Dimension() int

	// Fingerprint identifies the model; vectors from models with different
	// fingerprints are not comparable.
	Fingerprint() string
}

// Options configure model construction. A zero Dimension means
// DefaultDimension; the seed is used as given.
type Options struct {
	Dimension int
	Seed      int64
}

// Model is a deterministic vocabulary embedding model. The table is
// initialized Xavier-uniform from a seeded math/rand stream in index
// order, so an identical vocabulary, dimension, and seed reproduce the
// table bit for bit.
type Model struct {
	vocab       *Vocabulary
	dimension   int
	seed        int64
	table       [][]float32
	fingerprint string
}

var _ Encoder = (*Model)(nil)

// NewModel builds the embedding table for a vocabulary.
func NewModel(vocab *Vocabulary, opts Options) (*Model, error) {
	if vocab == nil {
		return nil, fmt.Errorf("vocabulary is required")
	}

	dim := opts.Dimension
	if dim == 0 {
		dim = DefaultDimension
	}
	if dim < MinDimension || dim > MaxDimension {
		return nil, rcerrors.ConfigError(
			fmt.Sprintf("embedding dimension %d outside [%d, %d]", dim, MinDimension, MaxDimension), nil)
	}

	return &Model{
		vocab:       vocab,
		dimension:   dim,
		seed:        opts.Seed,
		table:       buildTable(vocab.Size(), dim, opts.Seed),
		fingerprint: computeFingerprint(dim, opts.Seed, vocab),
	}, nil
}

// buildTable draws vocabSize*dim values Xavier-uniform in [-limit, limit)
// with limit = sqrt(6/(vocabSize+dim)), in index order from a single
// seeded source.
func buildTable(vocabSize, dim int, seed int64) [][]float32 {
	limit := math.Sqrt(6.0 / float64(vocabSize+dim))
	rng := rand.New(rand.NewSource(seed))

	table := make([][]float32, vocabSize)
	for i := range table {
		row := make([]float32, dim)
		for j := range row {
			row[j] = float32((rng.Float64()*2 - 1) * limit)
		}
		table[i] = row
	}
	return table
}

// computeFingerprint hashes everything the table derives from. Two models
// agree on every vector exactly when their fingerprints match.
func computeFingerprint(dim int, seed int64, vocab *Vocabulary) string {
	h := sha256.New()
	fmt.Fprintf(h, "dim=%d;seed=%d;", dim, seed)
	for _, tok := range vocab.indexToToken {
		h.Write([]byte(tok))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Encode extracts features from content and encodes them.
func (m *Model) Encode(content []byte, path string) ([]float32, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	return m.EncodeSet(feature.Extract(content, path))
}

// EncodeSet encodes an already-extracted feature set: each token
// contributes its table vector scaled by the bucket weight, and the result
// is the element-wise mean over all contributions. Unknown tokens
// contribute the <UNK> vector. An empty set yields the zero vector, which
// callers must treat as "no signal" rather than a valid embedding.
func (m *Model) EncodeSet(set feature.Set) ([]float32, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}

	sum := make([]float64, m.dimension)
	count := 0

	accumulate := func(tokens []string, weight float64) {
		for _, tok := range tokens {
			row := m.table[m.vocab.Lookup(tok)]
			for i, v := range row {
				sum[i] += float64(v) * weight
			}
			count++
		}
	}

	accumulate(set.Declarations, WeightDeclarations)
	accumulate(set.Imports, WeightImports)
	accumulate(set.Calls, WeightCalls)
	accumulate(set.Variables, WeightVariables)
	accumulate(set.Words, WeightWords)
	accumulate(set.Comments, WeightComments)

	vector := make([]float32, m.dimension)
	if count == 0 {
		return vector, nil
	}
	for i, v := range sum {
		vector[i] = float32(v / float64(count))
	}
	return vector, nil
}

// Similarity returns the squashed cosine similarity of two vectors.
func (m *Model) Similarity(a, b []float32) (float64, error) {
	if err := m.ready(); err != nil {
		return 0, err
	}
	return Score(a, b), nil
}

// Dimension returns the vector dimension.
func (m *Model) Dimension() int {
	return m.dimension
}

// Seed returns the table initialization seed.
func (m *Model) Seed() int64 {
	return m.seed
}

// Fingerprint returns the model identity hash.
func (m *Model) Fingerprint() string {
	return m.fingerprint
}

// Vocab returns the model's vocabulary.
func (m *Model) Vocab() *Vocabulary {
	return m.vocab
}

func (m *Model) ready() error {
	if m == nil || m.vocab == nil || len(m.table) == 0 {
		return rcerrors.NotInitialized("embedding model has no vocabulary")
	}
	return nil
}

// Score maps cosine similarity to [0,1] through a logistic squash,
// 1/(1+exp(-steepness*(cos-0.5))). It is exactly 0 when either vector has
// zero magnitude or the lengths differ, so "no signal" vectors never rank.
func Score(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		magA += av * av
		magB += bv * bv
	}
	if magA == 0 || magB == 0 {
		return 0
	}

	cos := dot / (math.Sqrt(magA) * math.Sqrt(magB))
	return 1.0 / (1.0 + math.Exp(-similaritySteepness*(cos-0.5)))
}
