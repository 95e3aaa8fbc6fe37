package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/recallkb/recall/internal/retrieve"
)

// contextOptions holds CLI flags for context.
type contextOptions struct {
	limit    int
	maxChars int
	format   string // "text", "json"
}

func newContextCmd() *cobra.Command {
	var opts contextOptions

	cmd := &cobra.Command{
		Use:   "context <query>",
		Short: "Assemble a context window from the best matches",
		Long: `Search the indexed corpus and assemble the best matches into one
context string.

Results are packed greedily in rank order under a character budget;
each block carries a source header with the document path and its
relevance score. Useful for feeding retrieval results to another
tool.

Examples:
  recall context "how is authentication handled"
  recall context "queue overflow" --limit 3 --max-chars 2000
  recall context "login" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runContext(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of documents to consider (0 = configured default)")
	cmd.Flags().IntVar(&opts.maxChars, "max-chars", 0, "Context character budget (0 = configured default)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runContext(ctx context.Context, cmd *cobra.Command, query string, opts contextOptions) error {
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

	blocks, err := eng.Retrieve(ctx, query, opts.limit, opts.maxChars)
	if err != nil {
		return err
	}

	switch opts.format {
	case "json":
		type jsonBlock struct {
			DocID     string  `json:"doc_id"`
			Score     float64 `json:"score"`
			Content   string  `json:"content"`
			Truncated bool    `json:"truncated"`
		}
		rows := make([]jsonBlock, 0, len(blocks))
		for _, b := range blocks {
			rows = append(rows, jsonBlock(b))
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "text", "":
		if len(blocks) == 0 {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "No results found for %q\n", query)
			return err
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), retrieve.AssembleContext(blocks))
		return err
	default:
		return fmt.Errorf("unknown output format %q (expected text or json)", opts.format)
	}
}
