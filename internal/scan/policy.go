// Package scan discovers indexable files under a project root. The same
// inclusion policy drives the corpus walk, the watcher's directory
// registration, and the processor's per-event eligibility check, so all
// three always agree on what belongs in the index.
package scan

import (
	"path/filepath"
	"strings"
)

// Policy decides which paths are eligible for indexing: an extension
// allow-list, ignored path components, an optional gitignore matcher, and
// a size cap. Paths are always slash-separated and relative to the
// indexed root.
type Policy struct {
	allowedExts map[string]struct{}
	ignored     []string
	gitignore   *Gitignore
	maxFileSize int64
}

// NewPolicy builds a policy from the configured allow-list, ignore
// patterns, and size cap. Extensions are matched case-insensitively and
// must carry their leading dot.
func NewPolicy(allowedExtensions, ignoredPatterns []string, maxFileSize int64) *Policy {
	exts := make(map[string]struct{}, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		exts[strings.ToLower(ext)] = struct{}{}
	}
	return &Policy{
		allowedExts: exts,
		ignored:     ignoredPatterns,
		maxFileSize: maxFileSize,
	}
}

// UseGitignore attaches a gitignore matcher. Nil detaches it; paths the
// matcher ignores fail AllowsFile and IgnoresDir from then on.
func (p *Policy) UseGitignore(g *Gitignore) {
	p.gitignore = g
}

// LoadGitignoreFile feeds one gitignore file into the attached matcher.
// base is the slash-relative directory holding the file, "" at the root.
// A detached or missing matcher makes this a no-op.
func (p *Policy) LoadGitignoreFile(path, base string) {
	if p.gitignore == nil {
		return
	}
	_ = p.gitignore.AddFile(path, base)
}

// AllowsFile reports whether a relative file path is eligible: its
// extension is on the allow-list, no path component is ignored, and the
// gitignore matcher (when attached) does not exclude it.
func (p *Policy) AllowsFile(relPath string) bool {
	if relPath == "" || p.Ignores(relPath) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(relPath))
	if _, ok := p.allowedExts[ext]; !ok {
		return false
	}
	if p.gitignore != nil && p.gitignore.Match(relPath, false) {
		return false
	}
	return true
}

// IgnoresDir reports whether a relative directory path is excluded, by an
// ignored component or by the gitignore matcher. Walks prune matching
// subtrees.
func (p *Policy) IgnoresDir(relPath string) bool {
	if p.Ignores(relPath) {
		return true
	}
	return p.gitignore != nil && p.gitignore.Match(relPath, true)
}

// Ignores reports whether any component of the relative path matches an
// ignored pattern. Deletions filter on this alone: a vanished path cannot
// be statted, and gitignore rules must not block removing documents that
// were indexed before the rules appeared.
func (p *Policy) Ignores(relPath string) bool {
	if len(p.ignored) == 0 {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(relPath), "/") {
		if part == "" {
			continue
		}
		for _, pattern := range p.ignored {
			if part == pattern {
				return true
			}
			// Patterns may carry globs, e.g. "*.egg-info".
			if matched, err := filepath.Match(pattern, part); err == nil && matched {
				return true
			}
		}
	}
	return false
}

// WithinSizeLimit reports whether a file of the given size may be read.
// Unknown sizes (negative) pass; the processor re-checks after stat.
func (p *Policy) WithinSizeLimit(size int64) bool {
	if size < 0 {
		return true
	}
	return size <= p.maxFileSize
}

// MaxFileSize returns the configured size cap in bytes.
func (p *Policy) MaxFileSize() int64 {
	return p.maxFileSize
}
