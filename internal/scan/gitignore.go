package scan

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// Gitignore matches slash-relative paths against gitignore pattern files
// (https://git-scm.com/docs/gitignore). Rules keep file order and the last
// matching rule wins, so a later negation re-includes what an earlier rule
// excluded. Safe for concurrent use: the scanner feeds nested files
// mid-walk while the watcher and processor keep matching.
type Gitignore struct {
	mu     sync.RWMutex
	rules  []ignoreRule
	loaded map[string]struct{}
}

// ignoreRule is one compiled pattern line.
type ignoreRule struct {
	re       *regexp.Regexp
	negated  bool   // leading !
	dirOnly  bool   // trailing /
	anchored bool   // leading / or an interior /
	base     string // slash-relative directory scope, "" at the root
}

// NewGitignore returns an empty matcher that ignores nothing.
func NewGitignore() *Gitignore {
	return &Gitignore{loaded: make(map[string]struct{})}
}

// LoadGitignore builds a matcher seeded from root/.gitignore. A missing
// file leaves the matcher empty.
func LoadGitignore(root string) *Gitignore {
	g := NewGitignore()
	_ = g.AddFile(filepath.Join(root, ".gitignore"), "")
	return g
}

// AddPattern compiles one pattern line scoped to base: "" applies from the
// root, otherwise base is the slash-relative directory holding the pattern
// file. Blank lines and comments are dropped.
func (g *Gitignore) AddPattern(pattern, base string) {
	// "\ " at the end keeps the trailing space through the trim below.
	keepTrailingSpace := strings.HasSuffix(pattern, `\ `)
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || (strings.HasPrefix(pattern, "#") && !strings.HasPrefix(pattern, `\#`)) {
		return
	}

	r := ignoreRule{base: base}

	switch {
	case strings.HasPrefix(pattern, `\#`), strings.HasPrefix(pattern, `\!`):
		pattern = pattern[1:]
	case strings.HasPrefix(pattern, "!"):
		r.negated = true
		pattern = pattern[1:]
	}

	if keepTrailingSpace && strings.HasSuffix(pattern, `\`) {
		pattern = strings.TrimSuffix(pattern, `\`) + " "
	}

	if strings.HasSuffix(pattern, "/") {
		r.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}
	if strings.HasPrefix(pattern, "/") {
		r.anchored = true
		pattern = strings.TrimPrefix(pattern, "/")
	}
	// "doc/frotz" anchors to the base even without a leading slash.
	if strings.Contains(pattern, "/") && !strings.HasPrefix(pattern, "**/") && !strings.HasPrefix(pattern, "*") {
		r.anchored = true
	}

	re, err := regexp.Compile("^" + globRegexp(pattern) + "$")
	if err != nil {
		// git treats a malformed pattern (say, an inverted range like
		// [z-a]) as matching nothing; a bad line must never take the
		// engine down.
		slog.Warn("gitignore_rule_invalid",
			slog.String("pattern", pattern),
			slog.String("error", err.Error()))
		return
	}
	r.re = re

	g.mu.Lock()
	g.rules = append(g.rules, r)
	g.mu.Unlock()
}

// AddFile reads one gitignore file. Each path is read once, so repeated
// scans over the same tree do not stack duplicate rules; a missing file is
// not an error.
func (g *Gitignore) AddFile(path, base string) error {
	g.mu.Lock()
	if _, ok := g.loaded[path]; ok {
		g.mu.Unlock()
		return nil
	}
	g.loaded[path] = struct{}{}
	g.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		g.AddPattern(sc.Text(), base)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}

// Match reports whether the slash-relative path is ignored. isDir selects
// directory semantics for trailing-slash patterns.
func (g *Gitignore) Match(relPath string, isDir bool) bool {
	relPath = strings.TrimPrefix(filepath.ToSlash(relPath), "./")

	g.mu.RLock()
	defer g.mu.RUnlock()

	ignored := false
	for _, r := range g.rules {
		if r.matches(relPath, isDir) {
			ignored = !r.negated
		}
	}
	return ignored
}

// Len returns the number of compiled rules.
func (g *Gitignore) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rules)
}

func (r ignoreRule) matches(path string, isDir bool) bool {
	if r.base != "" {
		// Rules scope to paths strictly below their own directory.
		if !strings.HasPrefix(path, r.base+"/") {
			return false
		}
		path = strings.TrimPrefix(path, r.base+"/")
	}

	parts := strings.Split(path, "/")

	if r.anchored {
		if r.re.MatchString(path) {
			return !r.dirOnly || isDir
		}
		if r.dirOnly {
			// Files inside an anchored ignored directory match too.
			for i := 1; i < len(parts); i++ {
				if r.re.MatchString(strings.Join(parts[:i], "/")) {
					return true
				}
			}
		}
		return false
	}

	if r.dirOnly {
		// "build/" matches a build directory anywhere and anything below it.
		for i, part := range parts {
			if r.re.MatchString(part) {
				return i < len(parts)-1 || isDir
			}
		}
		return false
	}

	if r.re.MatchString(parts[len(parts)-1]) || r.re.MatchString(path) {
		return true
	}
	for _, part := range parts[:len(parts)-1] {
		if r.re.MatchString(part) {
			return true
		}
	}
	return false
}

// globRegexp translates one gitignore glob into a regular expression
// fragment. * and ? never cross a slash; ** crosses any number of them.
func globRegexp(pattern string) string {
	var out strings.Builder

	for i := 0; i < len(pattern); {
		c := pattern[i]
		switch c {
		case '*':
			if strings.HasPrefix(pattern[i:], "**") {
				if strings.HasPrefix(pattern[i:], "**/") {
					out.WriteString("(?:.*/)?")
					i += 3
					continue
				}
				if i == 0 || pattern[i-1] == '/' {
					out.WriteString(".*")
					i += 2
					continue
				}
			}
			out.WriteString("[^/]*")
			i++

		case '?':
			out.WriteString("[^/]")
			i++

		case '[':
			if class, n, ok := charClass(pattern[i:]); ok {
				out.WriteString(class)
				i += n
			} else {
				out.WriteString(regexp.QuoteMeta(string(c)))
				i++
			}

		case '\\':
			if i+1 < len(pattern) {
				out.WriteString(regexp.QuoteMeta(string(pattern[i+1])))
				i += 2
			} else {
				out.WriteString(regexp.QuoteMeta(string(c)))
				i++
			}

		default:
			out.WriteString(regexp.QuoteMeta(string(c)))
			i++
		}
	}

	return out.String()
}

// charClass parses a bracket expression at the start of s (s[0] == '[')
// into a regexp class. fnmatch semantics: '!' or '^' right after the
// bracket negates, and a ']' in the first member position is a literal —
// "[]a]" matches ']' or 'a'. The literal ']' must be escaped for the
// regexp engine, which otherwise reads it as an empty class.
func charClass(s string) (class string, n int, ok bool) {
	var b strings.Builder
	b.WriteByte('[')

	j := 1
	if j < len(s) && (s[j] == '!' || s[j] == '^') {
		b.WriteByte('^')
		j++
	}
	if j < len(s) && s[j] == ']' {
		b.WriteString(`\]`)
		j++
	}

	for j < len(s) && s[j] != ']' {
		if s[j] == '\\' && j+1 < len(s) {
			b.WriteByte(s[j])
			j++
		}
		b.WriteByte(s[j])
		j++
	}
	if j >= len(s) {
		// No closing bracket; the caller falls back to a literal '['.
		return "", 0, false
	}

	b.WriteByte(']')
	return b.String(), j + 1, true
}
