package feature

import (
	"regexp"
	"strings"
)

// Line-oriented heuristics used when a source file cannot be parsed. They
// catch the common shapes across C-like and scripting languages.
var (
	fallbackFuncRegex   = regexp.MustCompile(`(?:def|function|func)\s+(\w+)`)
	fallbackClassRegex  = regexp.MustCompile(`class\s+(\w+)`)
	fallbackImportRegex = regexp.MustCompile(`(?:import|require|include|from)\s+(['"]?[\w./@-]+['"]?)`)
)

// scanStructural extracts declarations, imports, and comments from source
// text line by line. Calls and variables are not recoverable without a
// syntax tree and stay empty. The checks are independent: a comment line
// that mentions "def helper" contributes both a comment and a declaration.
func scanStructural(text string, set *Set) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := fallbackFuncRegex.FindStringSubmatch(line); m != nil {
			set.Declarations = append(set.Declarations, m[1])
		}
		if m := fallbackClassRegex.FindStringSubmatch(line); m != nil {
			set.Declarations = append(set.Declarations, m[1])
		}
		if m := fallbackImportRegex.FindStringSubmatch(line); m != nil {
			if p := strings.Trim(m[1], `'"`); p != "" {
				set.Imports = append(set.Imports, p)
			}
		}
		if isCommentLine(line) {
			set.Comments = append(set.Comments, line)
		}
	}
}

// scanComments collects comment-prefixed lines only. Markdown headings
// count: a "# Title" line is as much a retrieval cue as a code comment.
func scanComments(text string) []string {
	var comments []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if isCommentLine(line) {
			comments = append(comments, line)
		}
	}
	return comments
}

func isCommentLine(line string) bool {
	return strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//")
}
