package feature

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// languageSpec maps one language's syntax-tree node types onto feature
// buckets. Node types not listed here are traversed but contribute nothing.
type languageSpec struct {
	// Name is the canonical language name, e.g. "go", "python".
	Name string

	// Grammar is the tree-sitter grammar used to parse the language.
	Grammar *sitter.Language

	// DeclarationTypes are node types for function, method, class, and
	// type declarations.
	DeclarationTypes []string

	// ImportTypes are node types for import statements.
	ImportTypes []string

	// CallTypes are node types for function and method invocations.
	CallTypes []string

	// VariableTypes are node types for variable and constant bindings.
	VariableTypes []string

	// CommentTypes are node types for comments.
	CommentTypes []string
}

// languageSpecs holds every supported source language, keyed by name.
// The table is read-only after package init.
var languageSpecs = map[string]*languageSpec{
	"go": {
		Name:             "go",
		Grammar:          golang.GetLanguage(),
		DeclarationTypes: []string{"function_declaration", "method_declaration", "type_declaration"},
		ImportTypes:      []string{"import_declaration"},
		CallTypes:        []string{"call_expression"},
		VariableTypes:    []string{"var_declaration", "const_declaration", "short_var_declaration"},
		CommentTypes:     []string{"comment"},
	},
	"python": {
		Name:             "python",
		Grammar:          python.GetLanguage(),
		DeclarationTypes: []string{"function_definition", "class_definition"},
		ImportTypes:      []string{"import_statement", "import_from_statement"},
		CallTypes:        []string{"call"},
		VariableTypes:    []string{"assignment"},
		CommentTypes:     []string{"comment"},
	},
	"javascript": {
		Name:             "javascript",
		Grammar:          javascript.GetLanguage(),
		DeclarationTypes: []string{"function_declaration", "method_definition", "class_declaration"},
		ImportTypes:      []string{"import_statement"},
		CallTypes:        []string{"call_expression"},
		VariableTypes:    []string{"lexical_declaration", "variable_declaration"},
		CommentTypes:     []string{"comment"},
	},
	"typescript": {
		Name:    "typescript",
		Grammar: typescript.GetLanguage(),
		DeclarationTypes: []string{
			"function_declaration", "method_definition", "class_declaration",
			"interface_declaration", "type_alias_declaration", "enum_declaration",
		},
		ImportTypes:   []string{"import_statement"},
		CallTypes:     []string{"call_expression"},
		VariableTypes: []string{"lexical_declaration", "variable_declaration"},
		CommentTypes:  []string{"comment"},
	},
	"tsx": {
		Name:    "tsx",
		Grammar: tsx.GetLanguage(),
		DeclarationTypes: []string{
			"function_declaration", "method_definition", "class_declaration",
			"interface_declaration", "type_alias_declaration", "enum_declaration",
		},
		ImportTypes:   []string{"import_statement"},
		CallTypes:     []string{"call_expression"},
		VariableTypes: []string{"lexical_declaration", "variable_declaration"},
		CommentTypes:  []string{"comment"},
	},
}

// extToLanguage maps a lowercased file extension to a language name.
var extToLanguage = map[string]string{
	".go":  "go",
	".py":  "python",
	".js":  "javascript",
	".jsx": "javascript",
	".mjs": "javascript",
	".ts":  "typescript",
	".tsx": "tsx",
}

// specForExtension returns the language spec for a file extension, if the
// extension belongs to a supported source language.
func specForExtension(ext string) (*languageSpec, bool) {
	name, ok := extToLanguage[ext]
	if !ok {
		return nil, false
	}
	spec, ok := languageSpecs[name]
	return spec, ok
}

// hasNodeType reports whether nodeType appears in types.
func hasNodeType(types []string, nodeType string) bool {
	for _, t := range types {
		if t == nodeType {
			return true
		}
	}
	return false
}
