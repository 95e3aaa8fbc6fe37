package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBleve(t *testing.T) *BleveKeywordIndex {
	t.Helper()
	idx, err := NewBleveKeywordIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestBleveKeywordIndex_IndexAndSearch(t *testing.T) {
	idx := newTestBleve(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, "auth/login.go", []byte("func Login(user string) error")))
	require.NoError(t, idx.Index(ctx, "billing/invoice.go", []byte("func RenderInvoice(total int) string")))

	results, err := idx.Search(ctx, "login", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "auth/login.go", results[0].DocID)
	assert.Greater(t, results[0].Score, 0.0)
	assert.Contains(t, results[0].MatchedTerms, "login")
}

func TestBleveKeywordIndex_SplitsIdentifiers(t *testing.T) {
	idx := newTestBleve(t)
	ctx := context.Background()

	// The code analyzer splits getUserName into get/user/name, so a plain
	// word query reaches inside identifiers.
	require.NoError(t, idx.Index(ctx, "user.go", []byte("func getUserName() string")))

	results, err := idx.Search(ctx, "user", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "user.go", results[0].DocID)
}

func TestBleveKeywordIndex_Remove(t *testing.T) {
	idx := newTestBleve(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, "a.go", []byte("func Alpha()")))
	require.NoError(t, idx.Remove(ctx, "a.go"))

	results, err := idx.Search(ctx, "alpha", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	// Absent IDs are a no-op.
	require.NoError(t, idx.Remove(ctx, "missing.go"))
}

func TestBleveKeywordIndex_ReindexReplaces(t *testing.T) {
	idx := newTestBleve(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, "a.go", []byte("func Alpha()")))
	require.NoError(t, idx.Index(ctx, "a.go", []byte("func Omega()")))

	results, err := idx.Search(ctx, "alpha", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = idx.Search(ctx, "omega", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestBleveKeywordIndex_EmptyQuery(t *testing.T) {
	idx := newTestBleve(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, "a.go", []byte("func Alpha()")))

	results, err := idx.Search(ctx, "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBleveKeywordIndex_LimitTruncates(t *testing.T) {
	idx := newTestBleve(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, "a.go", []byte("widget factory")))
	require.NoError(t, idx.Index(ctx, "b.go", []byte("widget assembly")))
	require.NoError(t, idx.Index(ctx, "c.go", []byte("widget catalog")))

	results, err := idx.Search(ctx, "widget", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	// Non-positive limit means no limit.
	results, err = idx.Search(ctx, "widget", 0)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestBleveKeywordIndex_PersistsOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyword.bleve")
	ctx := context.Background()

	idx, err := NewBleveKeywordIndex(path)
	require.NoError(t, err)
	require.NoError(t, idx.Index(ctx, "a.go", []byte("func Alpha()")))
	require.NoError(t, idx.Close())

	reopened, err := NewBleveKeywordIndex(path)
	require.NoError(t, err)
	defer reopened.Close()

	results, err := reopened.Search(ctx, "alpha", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.go", results[0].DocID)
}

func TestBleveKeywordIndex_ClosedIndexErrors(t *testing.T) {
	idx := newTestBleve(t)
	ctx := context.Background()

	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close()) // idempotent

	assert.Error(t, idx.Index(ctx, "a.go", []byte("x")))
	assert.Error(t, idx.Remove(ctx, "a.go"))
	_, err := idx.Search(ctx, "x", 1)
	assert.Error(t, err)
}

func TestNewKeywordIndex_Backends(t *testing.T) {
	s := newTestStore(t)

	idx, err := NewKeywordIndex("", s, "")
	require.NoError(t, err)
	assert.IsType(t, &FTS5KeywordIndex{}, idx)

	idx, err = NewKeywordIndex(KeywordBackendBleve, s, "")
	require.NoError(t, err)
	assert.IsType(t, &BleveKeywordIndex{}, idx)
	_ = idx.Close()

	_, err = NewKeywordIndex("lucene", s, "")
	require.Error(t, err)
}
