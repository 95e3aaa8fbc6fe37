package feature

import (
	"path/filepath"
	"strings"
)

// MediaType classifies a document by its file extension. Binary is never
// assigned here: it is decided from content by the caller before a document
// reaches extraction.
type MediaType string

const (
	MediaTypePython     MediaType = "python"
	MediaTypeJavaScript MediaType = "javascript"
	MediaTypeTypeScript MediaType = "typescript"
	MediaTypeGo         MediaType = "go"
	MediaTypeMarkdown   MediaType = "markdown"
	MediaTypeText       MediaType = "text"
	MediaTypeData       MediaType = "data"
	MediaTypeConfig     MediaType = "config"
	MediaTypeBinary     MediaType = "binary"
)

// mediaTypesByExt maps lowercased extensions to media types. Unlisted
// extensions fall back to text.
var mediaTypesByExt = map[string]MediaType{
	".py":   MediaTypePython,
	".js":   MediaTypeJavaScript,
	".jsx":  MediaTypeJavaScript,
	".mjs":  MediaTypeJavaScript,
	".ts":   MediaTypeTypeScript,
	".tsx":  MediaTypeTypeScript,
	".go":   MediaTypeGo,
	".md":   MediaTypeMarkdown,
	".txt":  MediaTypeText,
	".json": MediaTypeData,
	".yml":  MediaTypeConfig,
	".yaml": MediaTypeConfig,
}

// DetectMediaType classifies a path by extension.
func DetectMediaType(path string) MediaType {
	ext := strings.ToLower(filepath.Ext(path))
	if mt, ok := mediaTypesByExt[ext]; ok {
		return mt
	}
	return MediaTypeText
}

// IsSource reports whether the media type is program source code that
// supports structural extraction.
func (m MediaType) IsSource() bool {
	switch m {
	case MediaTypePython, MediaTypeJavaScript, MediaTypeTypeScript, MediaTypeGo:
		return true
	}
	return false
}

// Valid reports whether m is one of the known media types.
func Valid(m MediaType) bool {
	switch m {
	case MediaTypePython, MediaTypeJavaScript, MediaTypeTypeScript, MediaTypeGo,
		MediaTypeMarkdown, MediaTypeText, MediaTypeData, MediaTypeConfig, MediaTypeBinary:
		return true
	}
	return false
}
