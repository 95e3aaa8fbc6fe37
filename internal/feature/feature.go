// Package feature mines retrieval tokens from document content. Source
// files are parsed with tree-sitter and their syntax trees are distilled
// into buckets of declarations, imports, calls, variables, and comments;
// prose and data files contribute words and comment lines only. The
// buckets feed both the embedding vocabulary and the weighted encoder.
package feature

import (
	"context"
	"path/filepath"
	"strings"
)

// Set holds the tokens mined from one document, grouped by how much signal
// each group carries. Buckets preserve extraction order and may contain
// duplicates: a name used five times weighs more than a name used once.
type Set struct {
	// Declarations are function, method, class, and type names.
	Declarations []string

	// Imports are imported module paths and names, quotes stripped.
	Imports []string

	// Calls are invoked function and method names, last path component only.
	Calls []string

	// Variables are names bound by assignments and var/const declarations.
	Variables []string

	// Words are lowercase word tokens from the full content, split on
	// snake_case and camelCase boundaries.
	Words []string

	// Comments are trimmed comment lines, kept whole.
	Comments []string
}

// Empty reports whether extraction produced no tokens at all.
func (s Set) Empty() bool {
	return len(s.Declarations) == 0 && len(s.Imports) == 0 && len(s.Calls) == 0 &&
		len(s.Variables) == 0 && len(s.Words) == 0 && len(s.Comments) == 0
}

// Structural returns the non-word buckets flattened in bucket order.
// These tokens enter the vocabulary verbatim, unlike Words which are
// already lowercased.
func (s Set) Structural() []string {
	out := make([]string, 0, len(s.Declarations)+len(s.Imports)+len(s.Calls)+len(s.Variables)+len(s.Comments))
	out = append(out, s.Declarations...)
	out = append(out, s.Imports...)
	out = append(out, s.Calls...)
	out = append(out, s.Variables...)
	out = append(out, s.Comments...)
	return out
}

// Extract mines a feature set from document content. The path selects the
// extraction strategy by extension:
//
//   - supported source languages are parsed with tree-sitter, falling back
//     to line heuristics when the parse fails outright
//   - everything else keeps words and comment lines only
//
// Words are always drawn from the full content regardless of strategy.
// Extract never fails; unparseable input degrades to the lexical buckets.
func Extract(content []byte, path string) Set {
	var set Set

	text := string(content)
	set.Words = Tokenize(text)

	if !DetectMediaType(path).IsSource() {
		set.Comments = scanComments(text)
		return set
	}

	spec, ok := specForExtension(strings.ToLower(filepath.Ext(path)))
	if !ok {
		scanStructural(text, &set)
		return set
	}

	tree, err := parseSource(context.Background(), content, spec.Grammar)
	if err != nil {
		scanStructural(text, &set)
		return set
	}

	extractStructural(tree, spec, &set)
	return set
}
