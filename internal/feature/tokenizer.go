package feature

import (
	"regexp"
	"strings"
	"unicode"
)

// tokenRegex matches runs of word characters. Punctuation and whitespace
// separate tokens.
var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9_]+`)

// Tokenize splits text into lowercase word tokens suitable for vocabulary
// building and keyword indexing. Identifiers are decomposed on snake_case
// and camelCase boundaries, so "getUserName" and "get_user_name" both yield
// ["get", "user", "name"]. Tokens shorter than two characters are dropped.
func Tokenize(text string) []string {
	raw := tokenRegex.FindAllString(text, -1)

	tokens := make([]string, 0, len(raw))
	for _, r := range raw {
		for _, sub := range SplitIdentifier(r) {
			lower := strings.ToLower(sub)
			if len(lower) >= 2 {
				tokens = append(tokens, lower)
			}
		}
	}

	return tokens
}

// SplitIdentifier splits a code identifier on underscores, then on
// camelCase boundaries within each part.
func SplitIdentifier(token string) []string {
	parts := strings.Split(token, "_")

	var result []string
	for _, part := range parts {
		if part == "" {
			continue
		}
		result = append(result, SplitCamelCase(part)...)
	}

	return result
}

// SplitCamelCase splits on lower-to-upper transitions while keeping
// acronyms intact: "parseHTTPResponse" yields ["parse", "HTTP", "Response"].
// A boundary exists before an uppercase rune when the previous rune is
// lowercase, or when the next rune is lowercase (the end of an acronym).
func SplitCamelCase(s string) []string {
	if s == "" {
		return nil
	}

	runes := []rune(s)
	var result []string
	start := 0

	for i := 1; i < len(runes); i++ {
		if !unicode.IsUpper(runes[i]) {
			continue
		}
		prevLower := unicode.IsLower(runes[i-1])
		nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
		if prevLower || nextLower {
			result = append(result, string(runes[start:i]))
			start = i
		}
	}

	result = append(result, string(runes[start:]))
	return result
}
