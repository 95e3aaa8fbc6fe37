// Package retrieve answers queries against a built index: it encodes query
// text with the same model that encoded the documents, ranks hits by vector
// similarity, and packs the winners into a bounded context blob for
// downstream consumption.
package retrieve

import (
	"context"
	"fmt"
	"strings"

	"github.com/recallkb/recall/internal/embed"
	rcerrors "github.com/recallkb/recall/internal/errors"
	"github.com/recallkb/recall/internal/store"
)

// Defaults applied when Options fields are zero.
const (
	DefaultLimit           = 10
	DefaultPreviewChars    = 300
	DefaultMaxContextChars = 1000
)

// blockSeparator joins rendered context blocks. It is not counted against
// the context budget.
const blockSeparator = "\n\n---\n\n"

// Options tune result shaping. Zero values take the package defaults.
type Options struct {
	// DefaultLimit is the result count used when a caller passes k <= 0.
	DefaultLimit int

	// PreviewChars caps previews and context block contents, in runes.
	PreviewChars int

	// MaxContextChars is the default context budget for Retrieve when the
	// caller passes maxChars <= 0.
	MaxContextChars int
}

func (o Options) withDefaults() Options {
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = DefaultLimit
	}
	if o.PreviewChars <= 0 {
		o.PreviewChars = DefaultPreviewChars
	}
	if o.MaxContextChars <= 0 {
		o.MaxContextChars = DefaultMaxContextChars
	}
	return o
}

// Result is one ranked search hit with a content preview.
type Result struct {
	DocID   string
	Score   float64
	Meta    store.Meta
	Preview string
}

// ContextBlock is one document packed into an assembled context. Content is
// already capped at the preview length; Truncated reports whether the cap
// was applied.
type ContextBlock struct {
	DocID     string
	Score     float64
	Content   string
	Truncated bool
}

// Retriever executes queries. It only reads: the vector index and document
// store tolerate a concurrent writer, so searches never block indexing.
type Retriever struct {
	enc   embed.Encoder
	index store.VectorIndex
	docs  *store.DocumentStore
	opts  Options
}

// New wires a retriever over an encoder, vector index, and document store.
func New(enc embed.Encoder, index store.VectorIndex, docs *store.DocumentStore, opts Options) (*Retriever, error) {
	if enc == nil {
		return nil, rcerrors.ConfigError("retriever requires an encoder", nil)
	}
	if index == nil {
		return nil, rcerrors.ConfigError("retriever requires a vector index", nil)
	}
	if docs == nil {
		return nil, rcerrors.ConfigError("retriever requires a document store", nil)
	}
	return &Retriever{enc: enc, index: index, docs: docs, opts: opts.withDefaults()}, nil
}

// Search encodes the query and returns up to k hits best-first, each with a
// preview of the stored content. A k <= 0 uses the configured default. A
// query whose tokens are all unknown encodes to the zero vector, which
// carries no signal; it returns no results rather than arbitrary ones.
func (r *Retriever) Search(ctx context.Context, query string, k int, filter func(store.Meta) bool) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, rcerrors.ValidationError("query is empty", nil)
	}
	if k <= 0 {
		k = r.opts.DefaultLimit
	}

	vector, err := r.enc.Encode([]byte(query), "")
	if err != nil {
		return nil, err
	}
	if isZero(vector) {
		return nil, nil
	}

	hits, err := r.index.Search(vector, k, filter)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		res := Result{DocID: hit.DocID, Score: hit.Score, Meta: hit.Meta}
		if rec, err := r.docs.Get(ctx, hit.DocID); err == nil && rec != nil {
			res.Preview, _ = Preview(string(rec.Content), r.opts.PreviewChars)
		}
		results = append(results, res)
	}
	return results, nil
}

// Retrieve searches and greedily packs the hits in rank order into context
// blocks. Each block's content is capped at the preview length first; the
// first block whose rendered size would push the total past maxChars stops
// the packing, so a document is never split mid-block. A maxChars <= 0 uses
// the configured default budget.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, maxChars int) ([]ContextBlock, error) {
	if maxChars <= 0 {
		maxChars = r.opts.MaxContextChars
	}

	hits, err := r.Search(ctx, query, k, nil)
	if err != nil {
		return nil, err
	}

	blocks := make([]ContextBlock, 0, len(hits))
	used := 0
	for _, hit := range hits {
		rec, err := r.docs.Get(ctx, hit.DocID)
		if err != nil {
			return nil, err
		}
		if rec == nil || len(rec.Content) == 0 {
			// Removed since the search, or a metadata-only record.
			continue
		}

		content, truncated := Preview(string(rec.Content), r.opts.PreviewChars)
		block := ContextBlock{
			DocID:     hit.DocID,
			Score:     hit.Score,
			Content:   content,
			Truncated: truncated,
		}

		cost := len(renderBlock(block))
		if used+cost > maxChars {
			break
		}
		used += cost
		blocks = append(blocks, block)
	}
	return blocks, nil
}

// AssembleContext renders packed blocks into one context string: a source
// header per block, blocks separated by a horizontal rule.
func AssembleContext(blocks []ContextBlock) string {
	if len(blocks) == 0 {
		return ""
	}

	rendered := make([]string, len(blocks))
	for i, b := range blocks {
		rendered[i] = renderBlock(b)
	}
	return strings.Join(rendered, blockSeparator)
}

// renderBlock produces the budgeted text of one block. Retrieve counts
// exactly these bytes, so the assembled output never exceeds the budget by
// more than the uncounted separators.
func renderBlock(b ContextBlock) string {
	return fmt.Sprintf("Source: %s (relevance: %.3f)\n%s", b.DocID, b.Score, b.Content)
}

// Preview truncates content to limit runes, appending an ellipsis when
// anything was cut. Truncation is rune-safe: multibyte characters are never
// split.
func Preview(content string, limit int) (string, bool) {
	if limit <= 0 {
		return "", content != ""
	}
	runes := []rune(content)
	if len(runes) <= limit {
		return content, false
	}
	return string(runes[:limit]) + "…", true
}

// isZero reports whether every component is exactly zero.
func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
