package preflight

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/recallkb/recall/internal/config"
)

// indexArtifacts are the files a complete index leaves in the data
// directory.
var indexArtifacts = []string{"documents.db", "model.json", "vectors.bin"}

// CheckConfig loads and validates the project configuration.
func (c *Checker) CheckConfig(root string) CheckResult {
	result := CheckResult{Name: "config", Required: true}

	cfg, err := config.Load(root)
	if err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("ok (%d extensions, %s keyword backend, %s vectors)",
		len(cfg.Index.AllowedExtensions), cfg.Search.KeywordBackend, cfg.Vector.Kind)
	return result
}

// CheckIndexState reports which index artifacts exist in the data
// directory. A missing index is a hint to run the first pass, not a
// failure.
func (c *Checker) CheckIndexState(dataDir string) CheckResult {
	result := CheckResult{Name: "index_state", Required: false}

	if _, err := os.Stat(dataDir); err != nil {
		result.Status = StatusWarn
		result.Message = "no index"
		result.Details = "Run 'recall index' to build one"
		return result
	}

	var present int
	var total uint64
	for _, name := range indexArtifacts {
		fi, err := os.Stat(filepath.Join(dataDir, name))
		if err != nil {
			continue
		}
		present++
		total += uint64(fi.Size())
	}

	if present == 0 {
		result.Status = StatusWarn
		result.Message = "data directory exists but holds no index"
		result.Details = "Run 'recall index' to build one"
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d/%d artifacts, %s", present, len(indexArtifacts), formatBytes(total))
	return result
}

// CheckIndexLock probes whether another process holds the watch lock.
// A held lock is informational: it explains why mutating commands would
// fail fast right now.
func (c *Checker) CheckIndexLock(lockPath string) CheckResult {
	result := CheckResult{Name: "index_lock", Required: false}

	if _, err := os.Stat(lockPath); err != nil {
		result.Status = StatusPass
		result.Message = "free"
		return result
	}

	probe := flock.New(lockPath)
	acquired, err := probe.TryLock()
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("cannot probe: %v", err)
		return result
	}
	if !acquired {
		result.Status = StatusWarn
		result.Message = "held by another process"
		result.Details = "A 'recall watch' session is likely running on this project"
		return result
	}
	_ = probe.Unlock()

	result.Status = StatusPass
	result.Message = "free"
	return result
}
