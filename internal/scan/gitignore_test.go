package scan

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matcherWith(patterns ...string) *Gitignore {
	g := NewGitignore()
	for _, p := range patterns {
		g.AddPattern(p, "")
	}
	return g
}

func TestGitignore_Patterns(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		path     string
		isDir    bool
		want     bool
	}{
		{"glob matches basename", []string{"*.log"}, "debug.log", false, true},
		{"glob matches nested basename", []string{"*.log"}, "logs/debug.log", false, true},
		{"glob does not overreach", []string{"*.log"}, "debug.logs", false, false},
		{"dir-only matches directory", []string{"build/"}, "build", true, true},
		{"dir-only matches contents", []string{"build/"}, "build/out.txt", false, true},
		{"dir-only matches nested directory", []string{"build/"}, "a/build/x.txt", false, true},
		{"dir-only spares plain file", []string{"build/"}, "build", false, false},
		{"anchored matches at root", []string{"/top.txt"}, "top.txt", false, true},
		{"anchored spares nested", []string{"/top.txt"}, "sub/top.txt", false, false},
		{"interior slash anchors", []string{"doc/frotz"}, "doc/frotz", false, true},
		{"interior slash spares nested", []string{"doc/frotz"}, "x/doc/frotz", false, false},
		{"double star crosses directories", []string{"**/temp"}, "a/b/temp", false, true},
		{"double star matches at root", []string{"**/temp"}, "temp", false, true},
		{"trailing double star matches contents", []string{"gen/**"}, "gen/a/b.txt", false, true},
		{"trailing double star spares the dir", []string{"gen/**"}, "gen", true, false},
		{"question mark is one character", []string{"?.txt"}, "a.txt", false, true},
		{"question mark rejects two", []string{"?.txt"}, "ab.txt", false, false},
		{"negated class", []string{"[!a].txt"}, "b.txt", false, true},
		{"negated class spares excluded", []string{"[!a].txt"}, "a.txt", false, false},
		{"class range", []string{"file[0-9].txt"}, "file5.txt", false, true},
		{"class range spares outside", []string{"file[0-9].txt"}, "filex.txt", false, false},
		{"class bracket first is literal", []string{"[]a].txt"}, "a.txt", false, true},
		{"class bracket first matches bracket", []string{"[]a].txt"}, "].txt", false, true},
		{"class bracket first spares others", []string{"[]a].txt"}, "b.txt", false, false},
		{"negated class bracket first", []string{"[!]a].txt"}, "b.txt", false, true},
		{"negated class bracket first spares bracket", []string{"[!]a].txt"}, "].txt", false, false},
		{"unclosed bracket is literal", []string{"a[.txt"}, "a[.txt", false, true},
		{"escaped hash is literal", []string{`\#notes`}, "#notes", false, true},
		{"comment adds nothing", []string{"# just a comment"}, "just", false, false},
		{"blank adds nothing", []string{"   "}, "anything.txt", false, false},
		{"negation re-includes", []string{"*.log", "!important.log"}, "important.log", false, false},
		{"negation leaves others ignored", []string{"*.log", "!important.log"}, "other.log", false, true},
		{"last match wins", []string{"*.log", "!keep.log", "keep.log"}, "keep.log", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := matcherWith(tt.patterns...)
			assert.Equal(t, tt.want, g.Match(tt.path, tt.isDir))
		})
	}
}

func TestGitignore_MalformedPatternsAreSkipped(t *testing.T) {
	// An inverted range compiles to an invalid regexp; the rule is
	// dropped, the rest of the file still applies, and nothing panics.
	g := matcherWith("[z-a]", "*.log")

	assert.Equal(t, 1, g.Len())
	assert.True(t, g.Match("debug.log", false))
	assert.False(t, g.Match("b", false))
}

func TestGitignore_BaseScopesRules(t *testing.T) {
	g := NewGitignore()
	g.AddPattern("*.tmp", "sub")

	assert.True(t, g.Match("sub/x.tmp", false))
	assert.True(t, g.Match("sub/deep/x.tmp", false))
	assert.False(t, g.Match("x.tmp", false), "rule must not escape its directory")
	assert.False(t, g.Match("other/x.tmp", false))
	assert.False(t, g.Match("sub", true), "a directory is outside its own rules")
}

func TestGitignore_AddFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".gitignore")
	writeFile(t, dir, ".gitignore", "*.log\n# comment\n\n!keep.log\n")

	g := NewGitignore()
	require.NoError(t, g.AddFile(path, ""))
	assert.Equal(t, 2, g.Len())
	assert.True(t, g.Match("debug.log", false))
	assert.False(t, g.Match("keep.log", false))

	// Re-adding the same file does not stack rules.
	require.NoError(t, g.AddFile(path, ""))
	assert.Equal(t, 2, g.Len())

	// A missing file adds nothing and is not an error.
	require.NoError(t, g.AddFile(filepath.Join(dir, "absent", ".gitignore"), "absent"))
	assert.Equal(t, 2, g.Len())
}

func TestLoadGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "secret.txt\n")

	g := LoadGitignore(root)
	assert.True(t, g.Match("secret.txt", false))
	assert.False(t, g.Match("public.txt", false))

	empty := LoadGitignore(t.TempDir())
	assert.Equal(t, 0, empty.Len())
	assert.False(t, empty.Match("anything.txt", false))
}

func TestPolicy_GitignoreIntegration(t *testing.T) {
	p := testPolicy()
	g := matcherWith("generated.md", "build/")
	p.UseGitignore(g)

	assert.False(t, p.AllowsFile("generated.md"))
	assert.False(t, p.AllowsFile("docs/generated.md"))
	assert.True(t, p.AllowsFile("docs/written.md"))

	assert.True(t, p.IgnoresDir("build"))
	assert.False(t, p.IgnoresDir("src"))
	assert.True(t, p.IgnoresDir(".git"), "component patterns still apply")

	// Deletions consult component patterns only.
	assert.False(t, p.Ignores("generated.md"))
}

func TestScanner_RespectsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "skip.txt\nbuild/\n")
	writeFile(t, root, "keep.txt", "kept")
	writeFile(t, root, "skip.txt", "skipped")
	writeFile(t, root, "build/gen.txt", "generated")
	writeFile(t, root, "sub/.gitignore", "local.txt\n")
	writeFile(t, root, "sub/local.txt", "scoped out")
	writeFile(t, root, "sub/kept.txt", "scoped in")

	p := testPolicy()
	p.UseGitignore(NewGitignore())
	s, err := New(root, p)
	require.NoError(t, err)

	files, err := s.Scan(context.Background())
	require.NoError(t, err)

	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{"keep.txt", "sub/kept.txt"}, paths)
}

func TestScanner_GitignoreNegation(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "*.txt\n!keep.txt\n")
	writeFile(t, root, "keep.txt", "kept")
	writeFile(t, root, "drop.txt", "dropped")

	p := testPolicy()
	p.UseGitignore(NewGitignore())
	s, err := New(root, p)
	require.NoError(t, err)

	files, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "keep.txt", files[0].Path)
}
