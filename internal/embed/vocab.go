// Package embed implements the vocabulary embedding model: a deterministic
// token→vector table built from the indexed corpus itself. There is no
// external model and no network; the same corpus and options always produce
// a bit-identical table.
package embed

import (
	"sort"

	"github.com/recallkb/recall/internal/feature"
)

// Reserved vocabulary entries. Real tokens are assigned indices from 2
// upward in lexicographic order.
const (
	UNKToken = "<UNK>"
	PADToken = "<PAD>"

	UNKIndex = 0
	PADIndex = 1
)

// minTokenLength filters out single-character tokens, which carry no
// retrieval signal and bloat the table.
const minTokenLength = 2

// Vocabulary maps corpus tokens to embedding-table indices. It is built
// once per indexing pass and immutable afterwards; a changed corpus means
// a new Vocabulary and a new Model.
type Vocabulary struct {
	tokenToIndex map[string]int
	indexToToken []string
	frequency    map[string]int
}

// BuildVocabulary flattens the feature sets of an entire corpus into one
// vocabulary. Structural tokens enter verbatim; words are already
// lowercased by extraction. Index assignment is lexicographic, so the
// result is independent of document order.
func BuildVocabulary(sets []feature.Set) *Vocabulary {
	frequency := make(map[string]int)

	count := func(tokens []string) {
		for _, tok := range tokens {
			if len(tok) >= minTokenLength {
				frequency[tok]++
			}
		}
	}
	for _, set := range sets {
		count(set.Structural())
		count(set.Words)
	}

	tokens := make([]string, 0, len(frequency))
	for tok := range frequency {
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)

	indexToToken := make([]string, 0, len(tokens)+2)
	indexToToken = append(indexToToken, UNKToken, PADToken)
	indexToToken = append(indexToToken, tokens...)

	tokenToIndex := make(map[string]int, len(indexToToken))
	for i, tok := range indexToToken {
		tokenToIndex[tok] = i
	}

	return &Vocabulary{
		tokenToIndex: tokenToIndex,
		indexToToken: indexToToken,
		frequency:    frequency,
	}
}

// Size returns the number of vocabulary entries including the reserved ones.
func (v *Vocabulary) Size() int {
	return len(v.indexToToken)
}

// Lookup returns the index for a token, or UNKIndex when the token is not
// in the vocabulary.
func (v *Vocabulary) Lookup(token string) int {
	if idx, ok := v.tokenToIndex[token]; ok {
		return idx
	}
	return UNKIndex
}

// Contains reports whether the token is in the vocabulary.
func (v *Vocabulary) Contains(token string) bool {
	_, ok := v.tokenToIndex[token]
	return ok
}

// Frequency returns how many times the token occurred across the corpus.
func (v *Vocabulary) Frequency(token string) int {
	return v.frequency[token]
}

// Tokens returns the vocabulary in index order, reserved entries first.
func (v *Vocabulary) Tokens() []string {
	out := make([]string, len(v.indexToToken))
	copy(out, v.indexToToken)
	return out
}
