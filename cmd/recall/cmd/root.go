// Package cmd provides the CLI commands for Recall.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/recallkb/recall/internal/config"
	"github.com/recallkb/recall/internal/engine"
	"github.com/recallkb/recall/internal/logging"
	"github.com/recallkb/recall/internal/profiling"
	"github.com/recallkb/recall/pkg/version"
)

// Profiling flags
var (
	profileCPU   string
	profileMem   string
	profileTrace string
	cpuCleanup   func()
	traceCleanup func()
)

// Debug logging flag
var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the recall CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recall",
		Short: "Incremental indexing and vector retrieval for a directory tree",
		Long: `Recall keeps a derived index synchronized with a directory tree and
answers nearest-neighbor content queries over it.

It watches for file changes, debounces them, and feeds every change
through one processing pipeline into a content-addressed document
store, a deterministic embedding model, and a similarity index.
Everything runs locally; the index lives in .recall/ next to your
files.

Start with 'recall index' to build the index, then 'recall search'
or 'recall watch'.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("recall version {{.Version}}\n")

	// Profiling flags
	cmd.PersistentFlags().StringVar(&profileCPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileMem, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileTrace, "profile-trace", "", "Write execution trace to file")

	// Debug logging flag
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging (view with 'recall logs')")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newContextCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startProfilingAndLogging starts CPU/trace profiling and debug logging if flags are set.
func startProfilingAndLogging(_ *cobra.Command, _ []string) error {
	var err error

	if debugMode {
		logger, cleanup, err := logging.Setup(logging.DebugConfig())
		if err != nil {
			return fmt.Errorf("failed to setup debug logging: %w", err)
		}
		loggingCleanup = cleanup
		slog.SetDefault(logger)
		slog.Info("debug_logging_enabled",
			slog.String("log_file", logging.DefaultLogPath()),
			slog.String("version", version.Version))
	}

	if profileCPU != "" {
		cpuCleanup, err = profiling.StartCPU(profileCPU)
		if err != nil {
			return fmt.Errorf("failed to start CPU profile: %w", err)
		}
	}

	if profileTrace != "" {
		traceCleanup, err = profiling.StartTrace(profileTrace)
		if err != nil {
			if cpuCleanup != nil {
				cpuCleanup()
			}
			return fmt.Errorf("failed to start trace: %w", err)
		}
	}

	return nil
}

// stopProfilingAndLogging stops profiling and logging, writes memory profile if requested.
func stopProfilingAndLogging(_ *cobra.Command, _ []string) error {
	if cpuCleanup != nil {
		cpuCleanup()
		cpuCleanup = nil
	}

	if traceCleanup != nil {
		traceCleanup()
		traceCleanup = nil
	}

	if profileMem != "" {
		if err := profiling.WriteHeap(profileMem); err != nil {
			return fmt.Errorf("failed to write memory profile: %w", err)
		}
	}

	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}

	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// setupFileLogging routes slog to the project's log file, keeping stdout
// clean for command output. Logging failures are not fatal to the command.
func setupFileLogging(root string) func() {
	cfg, err := config.Load(root)
	if err != nil {
		// A broken config still deserves a log trail; the command
		// itself will report the config error when it loads it.
		cfg = config.NewConfig()
	}

	logCfg := fileLoggingConfig(cfg, root)
	if debugMode {
		logCfg.Level = "debug"
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return func() {}
	}
	slog.SetDefault(logger)
	return cleanup
}

// fileLoggingConfig maps the logging section of the project config onto
// the file logger. An empty file_path lands in <data_dir>/logs/recall.log.
func fileLoggingConfig(cfg *config.Config, root string) logging.Config {
	out := logging.Config{
		Level:         cfg.Logging.Level,
		FilePath:      cfg.Logging.FilePath,
		MaxSizeMB:     cfg.Logging.MaxSizeMB,
		MaxFiles:      cfg.Logging.MaxFiles,
		WriteToStderr: cfg.Logging.Stderr,
	}
	if out.FilePath == "" {
		out.FilePath = logging.ProjectLogPath(resolveDataDir(cfg, root))
	} else if !filepath.IsAbs(out.FilePath) {
		out.FilePath = filepath.Join(root, out.FilePath)
	}
	return out
}

// resolveDataDir resolves the configured data directory against the
// project root.
func resolveDataDir(cfg *config.Config, root string) string {
	dataDir := cfg.Paths.DataDir
	if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(root, dataDir)
	}
	return dataDir
}

// resolveRoot resolves the directory argument to the project root: an
// explicit path is used as-is, "." walks up to the nearest .git or
// recall.yaml marker.
func resolveRoot(path string) (string, error) {
	if path == "" {
		path = "."
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("cannot access %s: %w", path, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", path)
	}

	if path == "." {
		if root, err := config.FindProjectRoot("."); err == nil {
			return root, nil
		}
	}
	return filepath.Abs(path)
}

// openEngine loads configuration for root and constructs the engine over
// it. The caller owns Close.
func openEngine(root string) (*engine.Engine, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	return engine.New(cfg, root, slog.Default())
}

// requireIndex fails fast when root has no data directory yet, before
// opening the engine creates one as a side effect.
func requireIndex(root string) error {
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	if !fileExists(resolveDataDir(cfg, root)) {
		return fmt.Errorf("no index found in %s\nRun 'recall index' first", root)
	}
	return nil
}

// fileExists checks if a file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
