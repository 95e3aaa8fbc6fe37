package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/recallkb/recall/internal/engine"
	"github.com/recallkb/recall/internal/feature"
	"github.com/recallkb/recall/internal/output"
	"github.com/recallkb/recall/internal/store"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit     int
	mediaType string // "all" or a media type name
	mode      string // "semantic", "keyword"
	format    string // "text", "json"
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed corpus",
		Long: `Search the indexed corpus by content similarity.

The query is encoded with the same deterministic model that indexed
the corpus and matched against every document vector. Keyword mode
skips the model and matches terms directly.

Examples:
  recall search "login form validation"
  recall search "invoice total" --limit 5 --type python
  recall search "setup instructions" --mode keyword
  recall search "error handling" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (0 = configured default)")
	cmd.Flags().StringVarP(&opts.mediaType, "type", "t", "all", "Filter by media type: all, python, javascript, typescript, go, markdown, text, data, config")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "semantic", "Search mode: semantic, keyword")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	filter, err := mediaTypeFilter(opts.mediaType)
	if err != nil {
		return err
	}

	root, err := resolveRoot(".")
	if err != nil {
		return err
	}
	if err := requireIndex(root); err != nil {
		return err
	}

	cleanup := setupFileLogging(root)
	defer cleanup()

	eng, err := openEngine(root)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	var results []engine.SearchResult
	switch opts.mode {
	case "semantic", "":
		results, err = eng.Search(ctx, query, opts.limit, filter)
	case "keyword":
		results, err = eng.KeywordSearch(ctx, query, opts.limit, filter)
	default:
		return fmt.Errorf("unknown search mode %q (expected semantic or keyword)", opts.mode)
	}
	if err != nil {
		return err
	}

	switch opts.format {
	case "json":
		return printResultsJSON(cmd, results)
	case "text", "":
		printResultsText(output.New(cmd.OutOrStdout()), query, results)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (expected text or json)", opts.format)
	}
}

// mediaTypeFilter builds a metadata filter from the --type flag. "all" (or
// empty) means no filter.
func mediaTypeFilter(name string) (func(store.Meta) bool, error) {
	if name == "" || name == "all" {
		return nil, nil
	}

	mt := feature.MediaType(strings.ToLower(name))
	if !feature.Valid(mt) {
		return nil, fmt.Errorf("unknown media type %q", name)
	}
	return func(m store.Meta) bool { return m.MediaType == mt }, nil
}

// printResultsText renders results for humans: rank, path, score, preview.
func printResultsText(out *output.Writer, query string, results []engine.SearchResult) {
	if len(results) == 0 {
		out.Statusf("", "No results found for %q", query)
		return
	}

	out.Statusf("🔍", "Found %d results for %q:", len(results), query)
	out.Newline()

	for i, r := range results {
		out.Result(i+1, r.DocID, r.Score)
		for _, line := range previewLines(r.Preview, 3) {
			out.Detail(line)
		}
		out.Newline()
	}
}

// printResultsJSON renders results machine-readable.
func printResultsJSON(cmd *cobra.Command, results []engine.SearchResult) error {
	type jsonResult struct {
		DocID     string  `json:"doc_id"`
		Path      string  `json:"path"`
		MediaType string  `json:"media_type"`
		Size      int64   `json:"size"`
		Score     float64 `json:"score"`
		Preview   string  `json:"preview,omitempty"`
	}

	rows := make([]jsonResult, 0, len(results))
	for _, r := range results {
		rows = append(rows, jsonResult{
			DocID:     r.DocID,
			Path:      r.Meta.Path,
			MediaType: string(r.Meta.MediaType),
			Size:      r.Meta.Size,
			Score:     r.Score,
			Preview:   r.Preview,
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// previewLines returns the first n non-empty-tail lines of a preview.
func previewLines(preview string, n int) []string {
	lines := strings.Split(preview, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
