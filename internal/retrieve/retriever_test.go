package retrieve

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallkb/recall/internal/embed"
	rcerrors "github.com/recallkb/recall/internal/errors"
	"github.com/recallkb/recall/internal/feature"
	"github.com/recallkb/recall/internal/store"
)

// corpusDoc is one seeded document for retriever tests.
type corpusDoc struct {
	id      string
	content string
}

var loginCorpus = []corpusDoc{
	{"auth/button.py", "def login_button():\n    # render the login button\n    show_login()\n"},
	{"auth/form.py", "class LoginForm:\n    def submit(self):\n        validate_login(self)\n"},
	{"auth/logout.py", "def logout():\n    # clear the session\n    session_clear()\n"},
}

// buildRetriever indexes the corpus into an in-memory store and exact index
// and returns a retriever over them.
func buildRetriever(t *testing.T, opts Options) (*Retriever, *store.DocumentStore) {
	t.Helper()

	sets := make([]feature.Set, 0, len(loginCorpus))
	for _, doc := range loginCorpus {
		sets = append(sets, feature.Extract([]byte(doc.content), doc.id))
	}
	model, err := embed.NewModel(embed.BuildVocabulary(sets), embed.Options{
		Dimension: embed.MinDimension,
		Seed:      embed.DefaultSeed,
	})
	require.NoError(t, err)

	docs, err := store.NewDocumentStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = docs.Close() })

	index := store.NewExactIndex(model.Dimension())
	index.SetModelID(model.Fingerprint())

	ctx := context.Background()
	for _, doc := range loginCorpus {
		_, err := docs.Upsert(ctx, &store.DocumentRecord{
			ID:        doc.id,
			Path:      "/repo/" + doc.id,
			Content:   []byte(doc.content),
			Size:      int64(len(doc.content)),
			MediaType: feature.DetectMediaType(doc.id),
		})
		require.NoError(t, err)

		vector, err := model.Encode([]byte(doc.content), doc.id)
		require.NoError(t, err)
		require.NoError(t, index.Put(doc.id, vector, store.Meta{
			Path:      doc.id,
			MediaType: feature.DetectMediaType(doc.id),
			Size:      int64(len(doc.content)),
		}))
	}

	r, err := New(model, index, docs, opts)
	require.NoError(t, err)
	return r, docs
}

func TestNew_RequiresDependencies(t *testing.T) {
	docs, err := store.NewDocumentStore("")
	require.NoError(t, err)
	defer docs.Close()
	index := store.NewExactIndex(embed.MinDimension)

	_, err = New(nil, index, docs, Options{})
	assert.Error(t, err)

	model, err := embed.NewModel(embed.BuildVocabulary([]feature.Set{{Words: []string{"alpha"}}}), embed.Options{Dimension: embed.MinDimension})
	require.NoError(t, err)

	_, err = New(model, nil, docs, Options{})
	assert.Error(t, err)

	_, err = New(model, index, nil, Options{})
	assert.Error(t, err)
}

func TestSearch_RanksRelevantDocumentsFirst(t *testing.T) {
	r, _ := buildRetriever(t, Options{})

	results, err := r.Search(context.Background(), "login", 3, nil)

	require.NoError(t, err)
	require.Len(t, results, 3)

	// Both login documents outrank the logout document.
	logoutRank := -1
	for i, res := range results {
		assert.Positive(t, res.Score, "result %d", i)
		if res.DocID == "auth/logout.py" {
			logoutRank = i
		}
	}
	assert.Equal(t, 2, logoutRank, "logout should rank last for a login query")

	// Scores are descending.
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestSearch_IncludesPreviewAndMeta(t *testing.T) {
	r, _ := buildRetriever(t, Options{})

	results, err := r.Search(context.Background(), "login button", 1, nil)

	require.NoError(t, err)
	require.NotEmpty(t, results)
	top := results[0]
	assert.NotEmpty(t, top.Preview)
	assert.Contains(t, top.Preview, "login")
	assert.Equal(t, feature.MediaTypePython, top.Meta.MediaType)
}

func TestSearch_RejectsEmptyQuery(t *testing.T) {
	r, _ := buildRetriever(t, Options{})

	_, err := r.Search(context.Background(), "   ", 5, nil)

	require.Error(t, err)
	assert.Equal(t, rcerrors.ErrCodeInvalidQuery, rcerrors.GetCode(err))
}

func TestSearch_ZeroSignalQueryReturnsNothing(t *testing.T) {
	r, _ := buildRetriever(t, Options{})

	// Punctuation only: no tokens survive extraction, so the query encodes
	// to the zero vector.
	results, err := r.Search(context.Background(), "!!! ???", 5, nil)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_AppliesFilter(t *testing.T) {
	r, _ := buildRetriever(t, Options{})

	results, err := r.Search(context.Background(), "login", 10, func(m store.Meta) bool {
		return m.Path == "auth/form.py"
	})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "auth/form.py", results[0].DocID)
}

func TestSearch_DefaultLimitWhenKNotPositive(t *testing.T) {
	r, _ := buildRetriever(t, Options{DefaultLimit: 2})

	results, err := r.Search(context.Background(), "login", 0, nil)

	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRetrieve_PacksBlocksInRankOrder(t *testing.T) {
	r, _ := buildRetriever(t, Options{})

	blocks, err := r.Retrieve(context.Background(), "login", 3, 10_000)

	require.NoError(t, err)
	require.Len(t, blocks, 3)
	assert.Equal(t, "auth/logout.py", blocks[2].DocID)
	for _, b := range blocks {
		assert.NotEmpty(t, b.Content)
		assert.False(t, b.Truncated)
	}
}

func TestRetrieve_StopsBeforeBudgetOverflow(t *testing.T) {
	r, _ := buildRetriever(t, Options{})

	all, err := r.Retrieve(context.Background(), "login", 3, 10_000)
	require.NoError(t, err)
	require.Len(t, all, 3)

	// A budget that fits exactly the first block packs exactly one.
	firstCost := len(fmt.Sprintf("Source: %s (relevance: %.3f)\n%s", all[0].DocID, all[0].Score, all[0].Content))
	blocks, err := r.Retrieve(context.Background(), "login", 3, firstCost)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, all[0].DocID, blocks[0].DocID)
}

func TestRetrieve_NeverSplitsADocument(t *testing.T) {
	r, _ := buildRetriever(t, Options{})

	// Budget too small for even one block: nothing is packed, nothing is
	// partially emitted.
	blocks, err := r.Retrieve(context.Background(), "login", 3, 5)

	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestRetrieve_CapsOversizedContentAtPreviewLength(t *testing.T) {
	r, _ := buildRetriever(t, Options{PreviewChars: 20})

	blocks, err := r.Retrieve(context.Background(), "login", 1, 10_000)

	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.True(t, blocks[0].Truncated)
	assert.LessOrEqual(t, len([]rune(blocks[0].Content)), 21, "20 runes plus ellipsis")
	assert.True(t, strings.HasSuffix(blocks[0].Content, "…"))
}

func TestAssembleContext_Format(t *testing.T) {
	blocks := []ContextBlock{
		{DocID: "a.py", Score: 0.91237, Content: "def a(): pass"},
		{DocID: "b.py", Score: 0.5, Content: "def b(): pass"},
	}

	out := AssembleContext(blocks)

	assert.Contains(t, out, "Source: a.py (relevance: 0.912)\ndef a(): pass")
	assert.Contains(t, out, "Source: b.py (relevance: 0.500)\ndef b(): pass")
	assert.Equal(t, 1, strings.Count(out, "\n\n---\n\n"))
}

func TestAssembleContext_EmptyBlocks(t *testing.T) {
	assert.Equal(t, "", AssembleContext(nil))
}

func TestPreview_RuneSafe(t *testing.T) {
	content := "héllo wörld, this is multibyte"

	preview, truncated := Preview(content, 10)

	assert.True(t, truncated)
	assert.Equal(t, "héllo wörl…", preview)

	full, truncated := Preview("short", 10)
	assert.False(t, truncated)
	assert.Equal(t, "short", full)
}
