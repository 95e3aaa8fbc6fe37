package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory (~/.recall/logs/).
// Falls back to temp directory if home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".recall", "logs")
	}
	return filepath.Join(home, ".recall", "logs")
}

// DefaultLogPath returns the default engine log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "recall.log")
}

// ProjectLogPath returns the log path inside a project data directory.
func ProjectLogPath(dataDir string) string {
	return filepath.Join(dataDir, "logs", "recall.log")
}

// FindLogFile locates a log file for viewing.
// Priority:
// 1. Explicit path (if provided)
// 2. <dataDir>/logs/recall.log (the project log, when dataDir is known)
// 3. ~/.recall/logs/recall.log (global)
//
// Returns an error if no log file is found.
func FindLogFile(explicit, dataDir string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, nil
		}
		return "", fmt.Errorf("log file not found: %s", explicit)
	}

	if dataDir != "" {
		projectPath := ProjectLogPath(dataDir)
		if _, err := os.Stat(projectPath); err == nil {
			return projectPath, nil
		}
	}

	globalPath := DefaultLogPath()
	if _, err := os.Stat(globalPath); err == nil {
		return globalPath, nil
	}

	return "", fmt.Errorf("no log file found. Run an indexing command first, or pass --file.\nExpected at: %s", globalPath)
}
