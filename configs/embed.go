// Package configs provides embedded configuration templates for recall.
//
// Templates are embedded at build time with go:embed, so they ship in
// every distribution of the binary. They are written out by:
//   - cmd/recall/cmd/init.go → recall.yaml in the project root
//   - cmd/recall/cmd/init.go --global → ~/.config/recall/config.yaml
//
// Configuration precedence (see internal/config.Load):
//  1. Hardcoded defaults (internal/config.NewConfig)
//  2. User config (~/.config/recall/config.yaml)
//  3. Project config (recall.yaml)
//  4. Environment variables (RECALL_*)
//
// To change a template, edit the .yaml file in this directory and
// rebuild.
package configs

import _ "embed"

// ProjectConfigTemplate is the template for project-level configuration,
// written to recall.yaml in the project root by `recall init`. Every
// setting ships commented out; defaults work without the file.
//
//go:embed recall.example.yaml
var ProjectConfigTemplate string

// UserConfigTemplate is the template for user/machine-level configuration,
// written to ~/.config/recall/config.yaml by `recall init --global`.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string
