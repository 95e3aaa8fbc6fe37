package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/recallkb/recall/configs"
	"github.com/recallkb/recall/internal/config"
	"github.com/recallkb/recall/internal/output"
	"github.com/recallkb/recall/pkg/version"
)

func newInitCmd() *cobra.Command {
	var (
		global bool
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration template",
		Long: `Write a recall.yaml configuration template into the project root.

The template ships with every setting commented out; recall works
without it. Existing files are never overwritten unless --force is
given. The data directory is also added to .gitignore.

With --global the template goes to the user config location
(~/.config/recall/config.yaml) instead, where it applies to every
project on this machine.`,
		Example: `  # Write recall.yaml into the current project
  recall init

  # Write the machine-level config template
  recall init --global

  # Replace an existing recall.yaml with a fresh template
  recall init --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, global, force)
		},
	}

	cmd.Flags().BoolVar(&global, "global", false, "Write the user config template (~/.config/recall/config.yaml)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file")

	return cmd
}

func runInit(cmd *cobra.Command, global, force bool) error {
	out := output.New(cmd.OutOrStdout())

	out.Statusf("🚀", "Recall %s", version.Version)

	if global {
		return writeUserConfig(out, force)
	}
	return writeProjectConfig(out, force)
}

// writeProjectConfig writes recall.yaml into the project root and makes
// sure the data directory is git-ignored.
func writeProjectConfig(out *output.Writer, force bool) error {
	root, err := resolveRoot(".")
	if err != nil {
		return err
	}
	out.Statusf("📁", "Project: %s", root)

	yamlPath := filepath.Join(root, "recall.yaml")
	ymlPath := filepath.Join(root, "recall.yml")

	switch {
	case !force && fileExists(yamlPath):
		out.Status("ℹ️ ", "Existing recall.yaml preserved (use --force to replace)")
	case !force && fileExists(ymlPath):
		out.Status("ℹ️ ", "Existing recall.yml preserved (use --force to replace)")
	default:
		if err := os.WriteFile(yamlPath, []byte(configs.ProjectConfigTemplate), 0o644); err != nil {
			return fmt.Errorf("failed to write recall.yaml: %w", err)
		}
		out.Statusf("📝", "Created %s", yamlPath)
	}

	added, err := ensureGitignore(root)
	if err != nil {
		out.Warningf("Could not update .gitignore: %v", err)
	} else if added {
		out.Status("📝", "Added .recall/ to .gitignore")
	}

	out.Newline()
	out.Success("Ready. Run 'recall index' to build the index.")
	return nil
}

// writeUserConfig writes the machine-level template to the XDG config
// location.
func writeUserConfig(out *output.Writer, force bool) error {
	path := config.GetUserConfigPath()

	if !force && fileExists(path) {
		out.Statusf("ℹ️ ", "Existing user config preserved: %s (use --force to replace)", path)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configs.UserConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write user config: %w", err)
	}

	out.Statusf("📝", "Created %s", path)
	return nil
}

// hasRecallIgnore checks if the data directory is already in .gitignore.
// Handles the variations: .recall, .recall/, /.recall, /.recall/
func hasRecallIgnore(content string) bool {
	patterns := []string{
		".recall",
		".recall/",
		"/.recall",
		"/.recall/",
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for _, pattern := range patterns {
			if line == pattern {
				return true
			}
		}
	}
	return false
}

// ensureGitignore adds .recall/ to .gitignore if not present.
// Returns (true, nil) if added, (false, nil) if already present.
func ensureGitignore(projectRoot string) (bool, error) {
	gitignorePath := filepath.Join(projectRoot, ".gitignore")

	content, err := os.ReadFile(gitignorePath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("reading .gitignore: %w", err)
	}

	if hasRecallIgnore(string(content)) {
		return false, nil
	}

	// Match the file's existing line endings.
	lineEnding := "\n"
	if bytes.Contains(content, []byte("\r\n")) {
		lineEnding = "\r\n"
	}

	if len(content) > 0 && !bytes.HasSuffix(content, []byte("\n")) {
		content = append(content, []byte(lineEnding)...)
	}

	var entry string
	if len(content) == 0 {
		entry = fmt.Sprintf("# Recall index data%s.recall/%s", lineEnding, lineEnding)
	} else {
		entry = fmt.Sprintf("%s# Recall index data%s.recall/%s", lineEnding, lineEnding, lineEnding)
	}
	content = append(content, []byte(entry)...)

	if err := os.WriteFile(gitignorePath, content, 0o644); err != nil {
		return false, fmt.Errorf("writing .gitignore: %w", err)
	}

	return true, nil
}
