package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() *Policy {
	return NewPolicy(
		[]string{".go", ".md", ".py", ".txt"},
		[]string{".git", ".recall", "node_modules", "__pycache__"},
		1024*1024,
	)
}

// writeFile creates a file with parent directories under root.
func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// =============================================================================
// Policy Tests
// =============================================================================

func TestPolicy_AllowsFile(t *testing.T) {
	p := testPolicy()

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"go file", "main.go", true},
		{"nested markdown", "docs/guide.md", true},
		{"python file", "src/app.py", true},
		{"disallowed extension", "binary.exe", false},
		{"no extension", "Makefile", false},
		{"uppercase extension", "README.MD", true},
		{"inside git dir", ".git/config.md", false},
		{"inside node_modules", "node_modules/pkg/index.py", false},
		{"inside data dir", ".recall/notes.md", false},
		{"empty path", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.AllowsFile(tt.path))
		})
	}
}

func TestPolicy_Ignores_DirectoryComponents(t *testing.T) {
	p := testPolicy()

	assert.True(t, p.Ignores(".git"))
	assert.True(t, p.Ignores("src/__pycache__/mod.cpython-312.pyc"))
	assert.True(t, p.Ignores("a/node_modules"))
	assert.False(t, p.Ignores("src/app.py"))
	assert.False(t, p.Ignores("gitlog")) // substring, not a component match
}

func TestPolicy_Ignores_GlobPatterns(t *testing.T) {
	p := NewPolicy([]string{".py"}, []string{"*.egg-info"}, 1024)

	assert.True(t, p.Ignores("pkg.egg-info/PKG-INFO.py"))
	assert.False(t, p.Ignores("pkg/info.py"))
}

func TestPolicy_WithinSizeLimit(t *testing.T) {
	p := testPolicy()

	assert.True(t, p.WithinSizeLimit(0))
	assert.True(t, p.WithinSizeLimit(1024*1024))
	assert.False(t, p.WithinSizeLimit(1024*1024+1))
	assert.True(t, p.WithinSizeLimit(-1), "unknown size passes, processor re-checks")
	assert.Equal(t, int64(1024*1024), p.MaxFileSize())
}

// =============================================================================
// Scanner Tests
// =============================================================================

func TestScanner_New_RejectsMissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "absent"), testPolicy())
	require.Error(t, err)
}

func TestScanner_New_RejectsFileRoot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "f.go", "package f")
	_, err := New(filepath.Join(dir, "f.go"), testPolicy())
	require.Error(t, err)
}

func TestScanner_Scan_CollectsAllowedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main")
	writeFile(t, dir, "docs/guide.md", "# Guide")
	writeFile(t, dir, "src/app.py", "def main(): pass")
	writeFile(t, dir, "image.png", "\x89PNG")
	writeFile(t, dir, ".git/config.md", "hidden")
	writeFile(t, dir, "node_modules/pkg/index.py", "skip")

	s, err := New(dir, testPolicy())
	require.NoError(t, err)

	files, err := s.Scan(context.Background())
	require.NoError(t, err)

	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	assert.ElementsMatch(t, []string{"main.go", "docs/guide.md", "src/app.py"}, paths)
}

func TestScanner_Scan_DeterministicOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.go", "package b")
	writeFile(t, dir, "a.go", "package a")
	writeFile(t, dir, "sub/c.go", "package c")

	s, err := New(dir, testPolicy())
	require.NoError(t, err)

	first, err := s.Scan(context.Background())
	require.NoError(t, err)
	second, err := s.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second, "repeated scans should return identical order")
	require.Len(t, first, 3)
	assert.Equal(t, "a.go", first[0].Path)
	assert.Equal(t, "b.go", first[1].Path)
}

func TestScanner_Scan_SkipsOversizedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "small.txt", "ok")
	big := make([]byte, 2048)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "big.txt"), big, 0o644))

	p := NewPolicy([]string{".txt"}, nil, 1024)
	s, err := New(dir, p)
	require.NoError(t, err)

	files, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "small.txt", files[0].Path)
}

func TestScanner_Scan_SkipsSymlinks(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "real.txt", "content")
	linkPath := filepath.Join(dir, "link.txt")
	if err := os.Symlink(filepath.Join(dir, "real.txt"), linkPath); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	p := NewPolicy([]string{".txt"}, nil, 1024)
	s, err := New(dir, p)
	require.NoError(t, err)

	files, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "real.txt", files[0].Path)
}

func TestScanner_ScanSubtree_LimitsToSubdirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "top.go", "package top")
	writeFile(t, dir, "sub/inner.go", "package sub")
	writeFile(t, dir, "sub/deep/more.go", "package deep")

	s, err := New(dir, testPolicy())
	require.NoError(t, err)

	files, err := s.ScanSubtree(context.Background(), "sub")
	require.NoError(t, err)

	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	assert.ElementsMatch(t, []string{"sub/inner.go", "sub/deep/more.go"}, paths)
	for _, f := range files {
		assert.True(t, filepath.IsAbs(f.AbsPath))
		assert.Positive(t, f.Size)
		assert.False(t, f.ModTime.IsZero())
	}
}

func TestScanner_Scan_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a")

	s, err := New(dir, testPolicy())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Scan(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanner_Scan_EmptyDirectory(t *testing.T) {
	s, err := New(t.TempDir(), testPolicy())
	require.NoError(t, err)

	files, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)
}
