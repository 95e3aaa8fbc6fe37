package feature

import "strings"

// extractStructural walks the syntax tree and files every recognized node
// into the matching bucket. Traversal never stops early: calls and
// assignments inside function bodies count the same as top-level ones.
func extractStructural(tree *Tree, spec *languageSpec, set *Set) {
	src := tree.Source

	tree.Root.Walk(func(n *Node) bool {
		switch {
		case hasNodeType(spec.DeclarationTypes, n.Type):
			if name := declarationName(n, src, spec.Name); name != "" {
				set.Declarations = append(set.Declarations, name)
			}

		case hasNodeType(spec.ImportTypes, n.Type):
			set.Imports = append(set.Imports, importPaths(n, src, spec.Name)...)

		case hasNodeType(spec.CallTypes, n.Type):
			if name := calleeName(n, src, spec.Name); name != "" {
				set.Calls = append(set.Calls, name)
			}

		case hasNodeType(spec.VariableTypes, n.Type):
			names, funcs := variableNames(n, src, spec.Name)
			set.Variables = append(set.Variables, names...)
			// A const/let binding whose value is a function is a
			// declaration in disguise.
			set.Declarations = append(set.Declarations, funcs...)

		case hasNodeType(spec.CommentTypes, n.Type):
			appendCommentLines(set, n.GetContent(src))
		}

		return true
	})
}

// appendCommentLines adds each non-empty trimmed line of a comment to the
// Comments bucket. Block comments contribute one entry per line.
func appendCommentLines(set *Set, text string) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			set.Comments = append(set.Comments, line)
		}
	}
}

// declarationName extracts the declared symbol name from a declaration node.
func declarationName(n *Node, src []byte, language string) string {
	switch language {
	case "go":
		return goDeclarationName(n, src)
	case "python":
		if id := n.FindChildByType("identifier"); id != nil {
			return id.GetContent(src)
		}
	case "javascript", "typescript", "tsx":
		return jsDeclarationName(n, src)
	}
	return ""
}

func goDeclarationName(n *Node, src []byte) string {
	switch n.Type {
	case "function_declaration":
		if id := n.FindChildByType("identifier"); id != nil {
			return id.GetContent(src)
		}
	case "method_declaration":
		if id := n.FindChildByType("field_identifier"); id != nil {
			return id.GetContent(src)
		}
	case "type_declaration":
		if spec := n.FindChildByType("type_spec"); spec != nil {
			if id := spec.FindChildByType("type_identifier"); id != nil {
				return id.GetContent(src)
			}
		}
	}
	return ""
}

func jsDeclarationName(n *Node, src []byte) string {
	switch n.Type {
	case "method_definition":
		if id := n.FindChildByType("property_identifier"); id != nil {
			return id.GetContent(src)
		}
	default:
		// Classes and interfaces use type_identifier in TypeScript and
		// identifier in JavaScript; check both.
		if id := n.FindChildByType("identifier"); id != nil {
			return id.GetContent(src)
		}
		if id := n.FindChildByType("type_identifier"); id != nil {
			return id.GetContent(src)
		}
	}
	return ""
}

// importPaths extracts imported module paths or names from an import node,
// with surrounding quotes removed.
func importPaths(n *Node, src []byte, language string) []string {
	var paths []string

	switch language {
	case "go":
		for _, lit := range n.FindAllByType("interpreted_string_literal") {
			if p := strings.Trim(lit.GetContent(src), `"`); p != "" {
				paths = append(paths, p)
			}
		}
	case "python":
		for _, name := range n.FindAllByType("dotted_name") {
			if p := name.GetContent(src); p != "" {
				paths = append(paths, p)
			}
		}
	case "javascript", "typescript", "tsx":
		if str := n.FindChildByType("string"); str != nil {
			if p := strings.Trim(str.GetContent(src), "\"'`"); p != "" {
				paths = append(paths, p)
			}
		}
	}

	return paths
}

// calleeName extracts the invoked function or method name from a call node.
// For selector and attribute calls only the final component is kept, so
// both strings.Split(...) and split(...) yield "Split"-style tokens.
func calleeName(n *Node, src []byte, language string) string {
	switch language {
	case "go":
		if id := n.FindChildByType("identifier"); id != nil {
			return id.GetContent(src)
		}
		if sel := n.FindChildByType("selector_expression"); sel != nil {
			if field := sel.FindChildByType("field_identifier"); field != nil {
				return field.GetContent(src)
			}
		}
	case "python":
		if id := n.FindChildByType("identifier"); id != nil {
			return id.GetContent(src)
		}
		if attr := n.FindChildByType("attribute"); attr != nil {
			ids := attr.FindChildrenByType("identifier")
			if len(ids) > 0 {
				return ids[len(ids)-1].GetContent(src)
			}
		}
	case "javascript", "typescript", "tsx":
		if id := n.FindChildByType("identifier"); id != nil {
			return id.GetContent(src)
		}
		if member := n.FindChildByType("member_expression"); member != nil {
			if prop := member.FindChildByType("property_identifier"); prop != nil {
				return prop.GetContent(src)
			}
		}
	}
	return ""
}

// variableNames extracts bound names from a variable or constant node.
// The second return value holds names bound to function values, which
// belong in the declarations bucket instead.
func variableNames(n *Node, src []byte, language string) (names, funcs []string) {
	switch language {
	case "go":
		return goVariableNames(n, src), nil
	case "python":
		// assignment: the left-hand side is the first child; only plain
		// identifier targets are recorded.
		if len(n.Children) > 0 && n.Children[0].Type == "identifier" {
			names = append(names, n.Children[0].GetContent(src))
		}
	case "javascript", "typescript", "tsx":
		return jsVariableNames(n, src)
	}
	return names, funcs
}

func goVariableNames(n *Node, src []byte) []string {
	var names []string

	switch n.Type {
	case "var_declaration", "const_declaration":
		specType := "var_spec"
		if n.Type == "const_declaration" {
			specType = "const_spec"
		}
		for _, spec := range n.FindAllByType(specType) {
			for _, id := range spec.FindChildrenByType("identifier") {
				names = append(names, id.GetContent(src))
			}
		}
	case "short_var_declaration":
		// Only the left expression_list declares names.
		if len(n.Children) > 0 && n.Children[0].Type == "expression_list" {
			for _, id := range n.Children[0].FindChildrenByType("identifier") {
				names = append(names, id.GetContent(src))
			}
		}
	}

	return names
}

func jsVariableNames(n *Node, src []byte) (names, funcs []string) {
	for _, decl := range n.FindChildrenByType("variable_declarator") {
		id := decl.FindChildByType("identifier")
		if id == nil {
			continue
		}
		name := id.GetContent(src)
		if name == "" {
			continue
		}
		if declaratorHoldsFunction(decl) {
			funcs = append(funcs, name)
		} else {
			names = append(names, name)
		}
	}
	return names, funcs
}

// declaratorHoldsFunction reports whether a variable_declarator's value is
// an arrow function or function expression.
func declaratorHoldsFunction(decl *Node) bool {
	for _, child := range decl.Children {
		switch child.Type {
		case "arrow_function", "function", "function_expression", "generator_function":
			return true
		}
	}
	return false
}
