package cmd

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/recallkb/recall/internal/engine"
	"github.com/recallkb/recall/internal/ui"
)

func newStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index status and activity counters",
		Long: `Display the state of the index: document and vector counts, storage
sizes, the embedding model identity, and pipeline activity counters.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runStats(cmd *cobra.Command, jsonOutput bool) error {
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

	info := collectStatus(eng)

	renderer := ui.NewStatusRenderer(cmd.OutOrStdout(), ui.DetectNoColor())
	if jsonOutput {
		return renderer.RenderJSON(info)
	}
	return renderer.Render(info)
}

// collectStatus assembles the status view from engine counters and the
// on-disk footprint of the data directory.
func collectStatus(eng *engine.Engine) ui.StatusInfo {
	st := eng.Stats()
	dataDir := eng.DataDir()

	info := ui.StatusInfo{
		ProjectRoot:        eng.Root(),
		Documents:          st.DocumentsIndexed,
		VectorEntries:      st.VectorEntries,
		ChangesDetected:    st.ChangesDetected,
		DebounceSuppressed: st.DebounceSuppressed,
		QueueDepth:         st.QueueDepth,
		QueueDropped:       st.QueueDropped,
		Errors:             st.Errors,
		WatcherStatus:      "stopped",
	}
	switch {
	case st.Watching:
		info.WatcherStatus = "running"
	case eng.LockedElsewhere():
		info.WatcherStatus = "external"
	}

	info.DocumentsSize = fileSize(filepath.Join(dataDir, "documents.db")) +
		fileSize(filepath.Join(dataDir, "documents.db-wal"))
	info.VectorsSize = fileSize(filepath.Join(dataDir, "vectors.bin"))
	info.KeywordSize = dirSize(filepath.Join(dataDir, "keyword.bleve"))
	info.TotalSize = dirSize(dataDir)

	info.LastIndexed = lastIndexedAt(dataDir)

	if model, ok := eng.Model(); ok {
		info.ModelDimension = model.Dimension
		info.ModelVocabSize = model.VocabSize
		info.ModelFingerprint = model.Fingerprint
	}

	return info
}

// lastIndexedAt reads the persist time off the vector snapshot, falling
// back to the model spec. Zero when neither exists.
func lastIndexedAt(dataDir string) time.Time {
	for _, name := range []string{"vectors.bin", "model.json"} {
		if fi, err := os.Stat(filepath.Join(dataDir, name)); err == nil {
			return fi.ModTime()
		}
	}
	return time.Time{}
}

// fileSize returns the size of a file, or 0 when it does not exist.
func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return 0
	}
	return fi.Size()
}

// dirSize returns the recursive size of a directory tree, or 0 when it
// does not exist.
func dirSize(path string) int64 {
	var total int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			total += fi.Size()
		}
		return nil
	})
	return total
}
