package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/recallkb/recall/internal/config"
	"github.com/recallkb/recall/internal/engine"
	"github.com/recallkb/recall/internal/preflight"
)

func newDoctorCmd() *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "doctor [path]",
		Short: "Check the environment and diagnose index problems",
		Long: `Run diagnostics against a project and its index.

Checks:
  - Write permissions on the project root
  - Disk space (100MB minimum)
  - File descriptor limits (1024 minimum)
  - Configuration validity
  - Index artifacts in the data directory
  - Whether another process holds the watch lock

A missing index is a warning, not a failure; run 'recall index' to
build one. Use --json for machine-readable output.`,
		Example: `  # Diagnose the current project
  recall doctor

  # Verbose output with fix hints
  recall doctor --verbose

  # JSON output for scripting
  recall doctor --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			return runDoctor(cmd, path, verbose, jsonOutput)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show details under each check")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runDoctor(cmd *cobra.Command, path string, verbose, jsonOutput bool) error {
	root, err := resolveRoot(path)
	if err != nil {
		return err
	}

	// Doctor only reads. A broken config falls back to defaults just to
	// locate the data directory; CheckConfig reports the load error.
	cfg, err := config.Load(root)
	if err != nil {
		cfg = config.NewConfig()
	}
	dataDir := resolveDataDir(cfg, root)

	checker := preflight.New(
		preflight.WithVerbose(verbose),
		preflight.WithOutput(cmd.OutOrStdout()),
	)
	results := checker.RunAll(preflight.Target{
		Root:     root,
		DataDir:  dataDir,
		LockPath: engine.NewDirLock(dataDir).Path(),
	})

	if jsonOutput {
		if err := printDoctorJSON(cmd, checker, results); err != nil {
			return err
		}
	} else {
		checker.PrintResults(results)
	}

	if checker.HasCriticalFailures(results) {
		return fmt.Errorf("environment checks failed")
	}
	return nil
}

// doctorReport is the JSON shape of a doctor run.
type doctorReport struct {
	Status   string                  `json:"status"`
	Checks   []preflight.CheckResult `json:"checks"`
	Warnings []string                `json:"warnings,omitempty"`
	Errors   []string                `json:"errors,omitempty"`
}

func printDoctorJSON(cmd *cobra.Command, checker *preflight.Checker, results []preflight.CheckResult) error {
	report := doctorReport{
		Status: checker.SummaryStatus(results),
		Checks: results,
	}
	for _, r := range results {
		switch {
		case r.IsCritical():
			report.Errors = append(report.Errors, r.Name+": "+r.Message)
		case r.Status != preflight.StatusPass:
			report.Warnings = append(report.Warnings, r.Name+": "+r.Message)
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
