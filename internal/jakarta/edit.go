package jakarta

import (
	"encoding/json"
	"strings"

	"github.com/liberty-tools/liberty-lsp/internal/diagnostic"
	"github.com/liberty-tools/liberty-lsp/internal/fix"
	"github.com/liberty-tools/liberty-lsp/internal/javaast"
	"github.com/liberty-tools/liberty-lsp/internal/lsp/protocol"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// declarationWith walks up from the declaration at the diagnostic range to
// the first declaration accepted by match
func declarationWith(t *javaast.Tree, r protocol.Range, match func(*tree_sitter.Node) bool) *tree_sitter.Node {
	for decl := t.DeclarationAt(r); decl != nil; decl = parentDeclaration(decl) {
		if match(decl) {
			return decl
		}
	}
	return nil
}

func parentDeclaration(node *tree_sitter.Node) *tree_sitter.Node {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if javaast.DeclarationPattern.Matches(p, nil) {
			return p
		}
	}
	return nil
}

func ofKind(kinds ...string) func(*tree_sitter.Node) bool {
	pattern := javaast.AnyNodeKind(kinds...)
	return func(node *tree_sitter.Node) bool {
		return pattern.Matches(node, nil)
	}
}

func simpleName(name string) string {
	name = strings.TrimPrefix(name, "@")
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

// dataNames reads the annotation names a diagnostic carries in its data,
// either a single string or an array of strings
func dataNames(d diagnostic.Diagnostic) []string {
	if len(d.Data) == 0 {
		return nil
	}
	var names []string
	if err := json.Unmarshal(d.Data, &names); err == nil {
		return names
	}
	var name string
	if err := json.Unmarshal(d.Data, &name); err == nil && name != "" {
		return []string{name}
	}
	return nil
}

// importEdit adds an import of fqName unless the file already imports it
func importEdit(t *javaast.Tree, fqName string) (protocol.TextEdit, bool) {
	root := t.Root()
	pkg := fqName[:max(strings.LastIndex(fqName, "."), 0)]

	var lastImport, packageDecl *tree_sitter.Node
	if pkgs := javaast.Children(root, javaast.NodeKind("package_declaration"), nil); len(pkgs) > 0 {
		packageDecl = pkgs[0]
	}
	for _, imp := range javaast.Children(root, javaast.NodeKind("import_declaration"), nil) {
		imported := strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(t.Text(imp), "import")), ";")
		imported = strings.TrimSpace(imported)
		if imported == fqName || imported == pkg+".*" {
			return protocol.TextEdit{}, false
		}
		lastImport = imp
	}

	switch {
	case lastImport != nil:
		return t.InsertAfter(lastImport, "\nimport "+fqName+";"), true
	case packageDecl != nil:
		return t.InsertAfter(packageDecl, "\n\nimport "+fqName+";"), true
	case root.NamedChildCount() > 0:
		return t.InsertBefore(root.NamedChild(0), "import "+fqName+";\n\n"), true
	default:
		return protocol.TextEdit{}, false
	}
}

// withImport appends the import of fqName to edits when it is missing. An
// import landing where another edit starts is folded into that edit.
func withImport(t *javaast.Tree, fqName string, edits ...protocol.TextEdit) []protocol.TextEdit {
	edit, ok := importEdit(t, fqName)
	if !ok {
		return edits
	}
	result := append([]protocol.TextEdit(nil), edits...)
	for i, e := range result {
		if e.Range.Start == edit.Range.Start {
			result[i].NewText = edit.NewText + e.NewText
			return result
		}
	}
	return append(result, edit)
}

func editFix(title string, fc fix.Context, d diagnostic.Diagnostic, edits ...protocol.TextEdit) fix.CandidateFix {
	return fix.NewEdit(title, d.URI, fc.Snapshot.Version, edits...)
}

// parameterList rebuilds a formal parameter list from the kept parameters
func parameterList(t *javaast.Tree, kept []*tree_sitter.Node) string {
	texts := make([]string, 0, len(kept))
	for _, p := range kept {
		texts = append(texts, t.Text(p))
	}
	return "(" + strings.Join(texts, ", ") + ")"
}
