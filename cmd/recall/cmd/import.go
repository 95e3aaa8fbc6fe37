package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/recallkb/recall/internal/output"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a vector index exported with 'recall export'",
		Long: `Replace the vector index contents from an exported blob.

The blob must have been produced by an index with the same embedding
model fingerprint and dimension; anything else is rejected before the
index is touched. The imported state is persisted immediately.

Examples:
  recall import index.snapshot`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0])
		},
	}

	return cmd
}

func runImport(cmd *cobra.Command, source string) error {
	out := output.New(cmd.OutOrStdout())

	blob, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", source, err)
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

	if err := eng.ImportIndex(blob); err != nil {
		return err
	}

	out.Successf("Imported %d vectors from %s", eng.Stats().VectorEntries, source)
	return nil
}
