package store

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	rcerrors "github.com/recallkb/recall/internal/errors"
)

// snapshot is the portable serialized form of a vector index. Both
// ExactIndex and HNSWIndex export this shape, so a snapshot taken from one
// backend imports into the other.
type snapshot struct {
	Dimension int
	ModelID   string
	Entries   []snapshotEntry
}

type snapshotEntry struct {
	DocID  string
	Vector []float32
	Meta   Meta
}

// encodeSnapshot serializes entries sorted by document ID so identical
// index contents always produce identical bytes.
func encodeSnapshot(dim int, modelID string, entries map[string]entry) ([]byte, error) {
	snap := snapshot{
		Dimension: dim,
		ModelID:   modelID,
		Entries:   make([]snapshotEntry, 0, len(entries)),
	}
	for docID, e := range entries {
		snap.Entries = append(snap.Entries, snapshotEntry{
			DocID:  docID,
			Vector: e.vector,
			Meta:   e.meta,
		})
	}
	sort.Slice(snap.Entries, func(i, j int) bool {
		return snap.Entries[i].DocID < snap.Entries[j].DocID
	})

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeSnapshot parses data and validates it against the importing
// index's dimension and model fingerprint before anything is applied.
func decodeSnapshot(data []byte, dim int, modelID string) (*snapshot, error) {
	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	if snap.ModelID != modelID {
		return nil, rcerrors.VocabularyMismatch(snap.ModelID, modelID)
	}
	if snap.Dimension != dim {
		return nil, ErrDimensionMismatch{Expected: dim, Got: snap.Dimension}
	}
	for _, se := range snap.Entries {
		if len(se.Vector) != dim {
			return nil, ErrDimensionMismatch{Expected: dim, Got: len(se.Vector)}
		}
	}

	return &snap, nil
}

// SaveIndex writes an index snapshot to path atomically: the data goes to
// a temp file in the same directory, then renames over the target, so a
// crash mid-write never leaves a truncated snapshot behind.
func SaveIndex(idx VectorIndex, path string) error {
	data, err := idx.Export()
	if err != nil {
		return err
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
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// LoadIndex reads a snapshot file into idx. A missing file is not an
// error; ok reports whether anything was loaded.
func LoadIndex(idx VectorIndex, path string) (ok bool, err error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read snapshot: %w", err)
	}

	if err := idx.Import(data); err != nil {
		return false, err
	}
	return true, nil
}
