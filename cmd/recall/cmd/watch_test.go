package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runWatchFor runs the watch command until the deadline expires.
func runWatchFor(t *testing.T, dir string, d time.Duration) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	cmd := newWatchCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{dir})
	require.NoError(t, cmd.ExecuteContext(ctx))
	return buf.String()
}

func TestWatchCmd_IndexesThenStops(t *testing.T) {
	// Given: a corpus
	isolateHome(t)
	tmpDir := t.TempDir()
	seedCorpus(t, tmpDir)

	// When: watching until the context expires
	out := runWatchFor(t, tmpDir, 2*time.Second)

	// Then: the initial pass ran and shutdown stats were printed
	assert.Contains(t, out, "Indexed 3 documents")
	assert.Contains(t, out, "Watching")
	assert.Contains(t, out, "Stopped after")
	assert.Contains(t, out, "Changes detected:")
	assert.Contains(t, out, "Events processed:")
}

func TestWatchCmd_PicksUpNewFiles(t *testing.T) {
	// Given: a watched corpus
	isolateHome(t)
	tmpDir := t.TempDir()
	seedCorpus(t, tmpDir)

	// When: a file appears while watching
	go func() {
		time.Sleep(1200 * time.Millisecond)
		path := filepath.Join(tmpDir, "notes", "new.md")
		_ = os.MkdirAll(filepath.Dir(path), 0o755)
		_ = os.WriteFile(path, []byte("# Login notes\n\nThe login button renders the billing guide.\n"), 0o644)
	}()
	out := runWatchFor(t, tmpDir, 3*time.Second)

	// Then: the change was detected
	assert.Regexp(t, `Changes detected:\s+[1-9]`, out)

	// And: the new file is searchable after shutdown
	searchOut, err := runSearchIn(t, tmpDir, "login")
	require.NoError(t, err)
	assert.Contains(t, searchOut, "notes/new.md")
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		want    string
	}{
		{"zero", 0, "0s"},
		{"seconds", 42, "42s"},
		{"minutes", 90, "1.5m"},
		{"hours", 5400, "1.5h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatUptime(tt.seconds))
		})
	}
}
