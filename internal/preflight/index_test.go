package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecker_CheckConfig_Defaults(t *testing.T) {
	// Given: a project with no config file anywhere
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	root := t.TempDir()

	// When: checking the configuration
	result := New().CheckConfig(root)

	// Then: defaults load and the summary names the backends
	assert.Equal(t, "config", result.Name)
	assert.Equal(t, StatusPass, result.Status)
	assert.Contains(t, result.Message, "fts5 keyword backend")
	assert.Contains(t, result.Message, "exact vectors")
	assert.True(t, result.Required)
}

func TestChecker_CheckConfig_MalformedYAML(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	root := t.TempDir()
	err := os.WriteFile(filepath.Join(root, "recall.yaml"), []byte("version: [1\n  broken"), 0o644)
	require.NoError(t, err)

	result := New().CheckConfig(root)

	assert.Equal(t, StatusFail, result.Status)
	assert.NotEmpty(t, result.Message)
}

func TestChecker_CheckConfig_InvalidValues(t *testing.T) {
	// Given: a config that parses but fails validation
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	root := t.TempDir()
	content := "version: 1\nembedding:\n  dimension: -5\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "recall.yaml"), []byte(content), 0o644))

	result := New().CheckConfig(root)

	assert.Equal(t, StatusFail, result.Status)
	assert.Contains(t, result.Message, "dimension")
}

func TestChecker_CheckIndexState_NoDataDir(t *testing.T) {
	result := New().CheckIndexState(filepath.Join(t.TempDir(), ".recall"))

	assert.Equal(t, "index_state", result.Name)
	assert.Equal(t, StatusWarn, result.Status)
	assert.Equal(t, "no index", result.Message)
	assert.Contains(t, result.Details, "recall index")
	assert.False(t, result.Required)
}

func TestChecker_CheckIndexState_EmptyDataDir(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), ".recall")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))

	result := New().CheckIndexState(dataDir)

	assert.Equal(t, StatusWarn, result.Status)
	assert.Contains(t, result.Message, "holds no index")
}

func TestChecker_CheckIndexState_WithArtifacts(t *testing.T) {
	// Given: a data directory holding two of the three artifacts
	dataDir := filepath.Join(t.TempDir(), ".recall")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "documents.db"), make([]byte, 2048), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "model.json"), []byte("{}"), 0o644))

	// When: checking the index state
	result := New().CheckIndexState(dataDir)

	// Then: the count and combined size are reported
	assert.Equal(t, StatusPass, result.Status)
	assert.Contains(t, result.Message, "2/3 artifacts")
	assert.Contains(t, result.Message, "2.0 KB")
}

func TestChecker_CheckIndexLock_NoLockFile(t *testing.T) {
	result := New().CheckIndexLock(filepath.Join(t.TempDir(), "recall.lock"))

	assert.Equal(t, "index_lock", result.Name)
	assert.Equal(t, StatusPass, result.Status)
	assert.Equal(t, "free", result.Message)
}

func TestChecker_CheckIndexLock_Released(t *testing.T) {
	// Given: a lock file left behind by a finished session
	lockPath := filepath.Join(t.TempDir(), "recall.lock")
	stale := flock.New(lockPath)
	locked, err := stale.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	require.NoError(t, stale.Unlock())

	// When: probing the lock
	result := New().CheckIndexLock(lockPath)

	// Then: the stale file does not count as held
	assert.Equal(t, StatusPass, result.Status)
	assert.Equal(t, "free", result.Message)
}

func TestChecker_CheckIndexLock_Held(t *testing.T) {
	// Given: another flock handle holding the lock
	lockPath := filepath.Join(t.TempDir(), "recall.lock")
	holder := flock.New(lockPath)
	locked, err := holder.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer func() { _ = holder.Unlock() }()

	// When: probing the lock
	result := New().CheckIndexLock(lockPath)

	// Then: the probe reports it held without stealing it
	assert.Equal(t, StatusWarn, result.Status)
	assert.Equal(t, "held by another process", result.Message)
	assert.Contains(t, result.Details, "recall watch")
}
