package embed

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/recallkb/recall/internal/feature"
)

func TestBuildVocabulary_ReservedAndLexicographic(t *testing.T) {
	// Given feature sets with structural tokens, words, and a short token
	sets := []feature.Set{
		{Declarations: []string{"Greet", "x"}, Words: []string{"hello", "hello"}},
		{Imports: []string{"fmt"}, Comments: []string{"// greet users"}},
	}

	// When the vocabulary is built
	v := BuildVocabulary(sets)

	// Then reserved tokens occupy 0 and 1 and real tokens follow sorted
	assert.Equal(t, []string{
		UNKToken, PADToken,
		"// greet users", "Greet", "fmt", "hello",
	}, v.Tokens())
	assert.Equal(t, 6, v.Size())

	// Then single-character tokens are filtered out
	assert.False(t, v.Contains("x"))
	assert.Equal(t, UNKIndex, v.Lookup("x"))

	// Then lookups resolve to stable indices
	assert.Equal(t, 3, v.Lookup("Greet"))
	assert.Equal(t, 5, v.Lookup("hello"))
	assert.Equal(t, UNKIndex, v.Lookup("never-seen"))
}

func TestBuildVocabulary_CountsFrequency(t *testing.T) {
	sets := []feature.Set{
		{Words: []string{"hello", "hello", "world"}},
		{Words: []string{"hello"}},
	}

	v := BuildVocabulary(sets)

	assert.Equal(t, 3, v.Frequency("hello"))
	assert.Equal(t, 1, v.Frequency("world"))
	assert.Equal(t, 0, v.Frequency("absent"))
}

func TestBuildVocabulary_IndependentOfDocumentOrder(t *testing.T) {
	// Given the same corpus in two different orders
	a := []feature.Set{
		{Declarations: []string{"Open"}, Words: []string{"file"}},
		{Declarations: []string{"Close"}, Words: []string{"handle"}},
	}
	b := []feature.Set{a[1], a[0]}

	// Then both produce the identical vocabulary
	assert.Equal(t, BuildVocabulary(a).Tokens(), BuildVocabulary(b).Tokens())
}

func TestBuildVocabulary_Empty(t *testing.T) {
	v := BuildVocabulary(nil)

	assert.Equal(t, 2, v.Size())
	assert.Equal(t, []string{UNKToken, PADToken}, v.Tokens())
}
