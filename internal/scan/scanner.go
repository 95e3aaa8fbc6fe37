package scan

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	rcerrors "github.com/recallkb/recall/internal/errors"
)

// FileInfo describes one discovered file.
type FileInfo struct {
	// Path is the slash-separated path relative to the scanned root. It is
	// also the document identity.
	Path string

	// AbsPath is the absolute filesystem path.
	AbsPath string

	// Size is the file size in bytes at scan time.
	Size int64

	// ModTime is the file modification time at scan time.
	ModTime time.Time
}

// Scanner walks a root directory and returns the files the policy allows.
type Scanner struct {
	root   string
	policy *Policy
}

// New creates a scanner for the given root. The root must exist and be a
// directory.
func New(root string, policy *Policy) (*Scanner, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, rcerrors.ConfigError("invalid scan root", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, rcerrors.New(rcerrors.ErrCodeInvalidPath, "scan root does not exist", err).
			WithDetail("path", abs)
	}
	if !info.IsDir() {
		return nil, rcerrors.New(rcerrors.ErrCodeInvalidPath, "scan root is not a directory", nil).
			WithDetail("path", abs)
	}
	return &Scanner{root: abs, policy: policy}, nil
}

// Root returns the absolute scan root.
func (s *Scanner) Root() string {
	return s.root
}

// Scan walks the root and returns eligible files in lexical walk order,
// which keeps downstream vocabulary construction independent of filesystem
// iteration quirks. Ignored directories are pruned, symlinks are skipped,
// and oversized files are left out without error.
func (s *Scanner) Scan(ctx context.Context) ([]FileInfo, error) {
	return s.ScanSubtree(ctx, ".")
}

// ScanSubtree walks a single subtree below the root, given as a path
// relative to the root. Scanning "." is equivalent to Scan.
func (s *Scanner) ScanSubtree(ctx context.Context, rel string) ([]FileInfo, error) {
	start := filepath.Join(s.root, filepath.FromSlash(rel))

	var files []FileInfo
	err := filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			// Unreadable entries are skipped, not fatal: a vanished or
			// permission-denied subtree should not abort the whole scan.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		relPath, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if relPath != "." && s.policy.IgnoresDir(relPath) {
				return fs.SkipDir
			}
			// A directory's own .gitignore takes effect before any of its
			// entries are visited.
			s.policy.LoadGitignoreFile(filepath.Join(path, ".gitignore"), gitignoreBase(relPath))
			return nil
		}

		// WalkDir does not follow symlinks for directories; skip symlinked
		// files too so a link cannot pull outside content into the index.
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		if !s.policy.AllowsFile(relPath) {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		if !s.policy.WithinSizeLimit(info.Size()) {
			return nil
		}

		files = append(files, FileInfo{
			Path:    relPath,
			AbsPath: path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, rcerrors.IOError("scan failed", err).WithDetail("root", s.root)
	}
	return files, nil
}

// gitignoreBase maps a directory's relative path to the rule scope its
// .gitignore defines: the directory itself, "" at the root.
func gitignoreBase(dirRel string) string {
	if dirRel == "." {
		return ""
	}
	return dirRel
}
