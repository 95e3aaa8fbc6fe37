package recall

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newCorpus creates a small project tree and isolates the user config.
func newCorpus(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))

	root := t.TempDir()
	writeFile(t, root, "auth/login.py",
		"def login_button():\n    \"\"\"Render the login button.\"\"\"\n    return render(\"login\")\n")
	writeFile(t, root, "auth/form.py",
		"class LoginForm:\n    def validate_login(self):\n        return check_credentials(self.user)\n")
	writeFile(t, root, "docs/guide.md",
		"# Billing Guide\n\nHow invoices are generated and paid.\n")
	return root
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestOpenUpdateSearch(t *testing.T) {
	// Given: a project tree
	root := newCorpus(t)
	ctx := context.Background()

	ix, err := Open(root, WithLogger(discardLogger()))
	require.NoError(t, err)
	defer func() { _ = ix.Close() }()

	// When: updating the index
	report, err := ix.Update(ctx)
	require.NoError(t, err)

	// Then: every file was indexed
	assert.Equal(t, 3, report.Files)
	assert.Equal(t, 3, report.Indexed)
	assert.Equal(t, 0, report.Failed)
	assert.Greater(t, report.Duration, time.Duration(0))

	// And: search finds the relevant files
	results, err := ix.Search(ctx, "login", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	paths := make([]string, len(results))
	for i, r := range results {
		paths[i] = r.DocID
	}
	assert.Contains(t, paths, "auth/login.py")

	// And: the model identity is available
	model, ok := ix.Model()
	require.True(t, ok)
	assert.Equal(t, 256, model.Dimension)
	assert.NotEmpty(t, model.Fingerprint)

	st := ix.Stats()
	assert.Equal(t, 3, st.Documents)
	assert.Equal(t, 3, st.VectorEntries)
	assert.False(t, st.Watching)
}

func TestOpenOptions(t *testing.T) {
	// Given: an index opened with overrides
	root := newCorpus(t)
	ctx := context.Background()

	ix, err := Open(root,
		WithLogger(discardLogger()),
		WithDimension(64),
		WithDataDir("idx"))
	require.NoError(t, err)
	defer func() { _ = ix.Close() }()

	// Then: the data directory override took effect
	assert.Equal(t, "idx", filepath.Base(ix.DataDir()))
	assert.DirExists(t, ix.DataDir())

	// And: the dimension override shapes the model
	_, err = ix.Update(ctx)
	require.NoError(t, err)
	model, ok := ix.Model()
	require.True(t, ok)
	assert.Equal(t, 64, model.Dimension)
}

func TestOpenRejectsInvalidOptions(t *testing.T) {
	root := newCorpus(t)

	_, err := Open(root, WithDimension(7)) // below the valid range
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension")
}

func TestPersistenceAcrossReopen(t *testing.T) {
	// Given: an indexed and closed project
	root := newCorpus(t)
	ctx := context.Background()

	ix, err := Open(root, WithLogger(discardLogger()))
	require.NoError(t, err)
	_, err = ix.Update(ctx)
	require.NoError(t, err)
	require.NoError(t, ix.Close())

	// When: reopening without another pass
	reopened, err := Open(root, WithLogger(discardLogger()))
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	// Then: queries are served from persisted state
	results, err := reopened.Search(ctx, "login", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, results)
	assert.Equal(t, 3, reopened.Stats().VectorEntries)

	// And: an update pass finds nothing to redo
	report, err := reopened.Update(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Indexed)
	assert.Equal(t, 3, report.Unchanged)
}

func TestRetrieveAndContext(t *testing.T) {
	// Given: an indexed project
	root := newCorpus(t)
	ctx := context.Background()

	ix, err := Open(root, WithLogger(discardLogger()))
	require.NoError(t, err)
	defer func() { _ = ix.Close() }()
	_, err = ix.Update(ctx)
	require.NoError(t, err)

	// When: retrieving context blocks
	blocks, err := ix.Retrieve(ctx, "login", 2, 0)
	require.NoError(t, err)
	require.NotEmpty(t, blocks)
	assert.LessOrEqual(t, len(blocks), 2)
	for _, b := range blocks {
		assert.NotEmpty(t, b.DocID)
		assert.NotEmpty(t, b.Content)
	}

	// And: the assembled form carries source headers
	text, err := ix.Context(ctx, "login", 2, 0)
	require.NoError(t, err)
	assert.Contains(t, text, "Source: ")
	assert.Contains(t, text, "(relevance:")
}

func TestKeywordSearch(t *testing.T) {
	root := newCorpus(t)
	ctx := context.Background()

	ix, err := Open(root, WithLogger(discardLogger()))
	require.NoError(t, err)
	defer func() { _ = ix.Close() }()
	_, err = ix.Update(ctx)
	require.NoError(t, err)

	results, err := ix.KeywordSearch(ctx, "billing", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "docs/guide.md", results[0].DocID)
	assert.Equal(t, "markdown", results[0].MediaType)
}

func TestWatchLifecycle(t *testing.T) {
	// Given: a watched project
	root := newCorpus(t)
	ctx := context.Background()

	ix, err := Open(root, WithLogger(discardLogger()))
	require.NoError(t, err)
	defer func() { _ = ix.Close() }()

	require.NoError(t, ix.Watch(ctx))
	assert.True(t, ix.Stats().Watching)

	// When: a file appears while watching
	writeFile(t, root, "notes/new.md", "# Login notes\n\nThe login button renders the billing guide.\n")

	// Then: it becomes searchable without an explicit pass
	require.Eventually(t, func() bool {
		results, err := ix.Search(ctx, "login", 10)
		if err != nil {
			return false
		}
		for _, r := range results {
			if r.DocID == "notes/new.md" {
				return true
			}
		}
		return false
	}, 5*time.Second, 50*time.Millisecond)

	// And: stopping leaves the index open for queries
	require.NoError(t, ix.Stop(context.Background()))
	assert.False(t, ix.Stats().Watching)

	results, err := ix.Search(ctx, "billing", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestIndexFile(t *testing.T) {
	// Given: an indexed project
	root := newCorpus(t)
	ctx := context.Background()

	ix, err := Open(root, WithLogger(discardLogger()))
	require.NoError(t, err)
	defer func() { _ = ix.Close() }()
	_, err = ix.Update(ctx)
	require.NoError(t, err)

	// When: pushing a new file through directly
	writeFile(t, root, "auth/reset.py", "def reset_login():\n    return send_reset_email()\n")
	require.NoError(t, ix.IndexFile(ctx, "auth/reset.py"))

	// Then: it is searchable immediately
	results, err := ix.Search(ctx, "login", 10)
	require.NoError(t, err)
	paths := make([]string, len(results))
	for i, r := range results {
		paths[i] = r.DocID
	}
	assert.Contains(t, paths, "auth/reset.py")
}

func TestExportImport(t *testing.T) {
	// Given: an indexed project
	root := newCorpus(t)
	ctx := context.Background()

	ix, err := Open(root, WithLogger(discardLogger()))
	require.NoError(t, err)
	defer func() { _ = ix.Close() }()
	_, err = ix.Update(ctx)
	require.NoError(t, err)

	// When: exporting and importing the vector index
	blob, err := ix.Export()
	require.NoError(t, err)
	require.NotEmpty(t, blob)
	require.NoError(t, ix.Import(blob))

	// Then: the entries survive the round trip
	assert.Equal(t, 3, ix.Stats().VectorEntries)
}
