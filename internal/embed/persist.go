package embed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// modelSpec is the JSON form of a model on disk. The table itself is never
// stored; dimension, seed, and the index-ordered token list are enough to
// rebuild it bit for bit.
type modelSpec struct {
	Dimension int      `json:"dimension"`
	Seed      int64    `json:"seed"`
	Tokens    []string `json:"tokens"`
}

// SaveModel writes the model spec to path atomically: the data goes to a
// temp file in the same directory, then renames over the target, so a crash
// mid-write never leaves a truncated spec behind.
func SaveModel(m *Model, path string) error {
	if err := m.ready(); err != nil {
		return err
	}

	spec := modelSpec{
		Dimension: m.dimension,
		Seed:      m.seed,
		Tokens:    m.vocab.Tokens(),
	}
	data, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("failed to encode model spec: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write model spec: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close model spec: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace model spec: %w", err)
	}
	return nil
}

// LoadModel reads a model spec from path and rebuilds the model. A missing
// file is not an error; ok reports whether a model was loaded. The rebuilt
// vocabulary carries no corpus frequencies; only the token→index mapping
// survives persistence, which is all encoding needs.
func LoadModel(path string) (m *Model, ok bool, err error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read model spec: %w", err)
	}

	var spec modelSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, false, fmt.Errorf("failed to decode model spec: %w", err)
	}

	vocab, err := vocabularyFromTokens(spec.Tokens)
	if err != nil {
		return nil, false, err
	}

	m, err = NewModel(vocab, Options{Dimension: spec.Dimension, Seed: spec.Seed})
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}

// vocabularyFromTokens rebuilds a vocabulary from an index-ordered token
// list as produced by Tokens. The reserved entries must be in their fixed
// slots or the rebuilt table would assign every token a different row.
func vocabularyFromTokens(tokens []string) (*Vocabulary, error) {
	if len(tokens) < 2 || tokens[UNKIndex] != UNKToken || tokens[PADIndex] != PADToken {
		return nil, fmt.Errorf("model spec token list missing reserved entries")
	}

	indexToToken := make([]string, len(tokens))
	copy(indexToToken, tokens)

	tokenToIndex := make(map[string]int, len(indexToToken))
	for i, tok := range indexToToken {
		if _, dup := tokenToIndex[tok]; dup {
			return nil, fmt.Errorf("model spec token list has duplicate entry %q", tok)
		}
		tokenToIndex[tok] = i
	}

	return &Vocabulary{
		tokenToIndex: tokenToIndex,
		indexToToken: indexToToken,
		frequency:    make(map[string]int),
	}, nil
}
