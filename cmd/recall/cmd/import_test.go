package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportCmd_MissingFile(t *testing.T) {
	isolateHome(t)
	tmpDir := t.TempDir()
	seedCorpus(t, tmpDir)
	indexCorpus(t, tmpDir)

	_, err := runIn(t, tmpDir, newImportCmd(), "absent.snapshot")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot read")
}

func TestImportCmd_RejectsGarbage(t *testing.T) {
	// Given: an indexed corpus and a file that is not a snapshot
	isolateHome(t)
	tmpDir := t.TempDir()
	seedCorpus(t, tmpDir)
	indexCorpus(t, tmpDir)
	writeCorpusFile(t, tmpDir, "junk.snapshot", "this is not a snapshot")

	// When: importing it
	_, err := runIn(t, tmpDir, newImportCmd(), "junk.snapshot")

	// Then: the import is rejected before the index is touched
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestImportCmd_RejectsDifferentModel(t *testing.T) {
	// Given: two indexes built from different corpora
	isolateHome(t)
	dirA := t.TempDir()
	seedCorpus(t, dirA)
	indexCorpus(t, dirA)

	dirB := t.TempDir()
	writeCorpusFile(t, dirB, "notes.txt", "entirely unrelated corpus words here\n")
	indexCorpus(t, dirB)

	_, err := runIn(t, dirA, newExportCmd(), "a.snapshot")
	require.NoError(t, err)

	// When: importing A's snapshot into B
	_, err = runIn(t, dirB, newImportCmd(), filepath.Join(dirA, "a.snapshot"))

	// Then: the model fingerprints disagree and the import is refused
	require.Error(t, err)
	assert.Contains(t, err.Error(), "different vocabulary")
}
