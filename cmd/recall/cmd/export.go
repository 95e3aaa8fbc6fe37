package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/recallkb/recall/internal/output"
	"github.com/recallkb/recall/internal/ui"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export the vector index to a file",
		Long: `Serialize the vector index to a portable blob.

The blob carries the embedding model fingerprint and dimension, so an
import into an index built from a different corpus or configuration
is rejected rather than silently mixed.

Examples:
  recall export index.snapshot`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args[0])
		},
	}

	return cmd
}

func runExport(cmd *cobra.Command, target string) error {
	out := output.New(cmd.OutOrStdout())

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

	blob, err := eng.ExportIndex()
	if err != nil {
		return err
	}

	if err := os.WriteFile(target, blob, 0o644); err != nil {
		return err
	}

	st := eng.Stats()
	out.Successf("Exported %d vectors to %s (%s)",
		st.VectorEntries, target, ui.FormatBytes(int64(len(blob))))
	return nil
}
