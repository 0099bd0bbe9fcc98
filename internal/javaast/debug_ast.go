package javaast

import (
	"fmt"
	"io"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// DebugAST prints the structure of the tree, one named node per line with
// its position and, for leaves, its text
func (t *Tree) DebugAST(w io.Writer) error {
	return t.printNodeStructure(w, t.Root(), 0)
}

func (t *Tree) printNodeStructure(w io.Writer, node *tree_sitter.Node, depth int) error {
	if node == nil {
		return nil
	}

	indent := strings.Repeat("  ", depth)
	r := t.Range(node)
	line := fmt.Sprintf("%sNode: %s [%d:%d-%d:%d]", indent, node.Kind(),
		r.Start.Line, r.Start.Character, r.End.Line, r.End.Character)
	if node.NamedChildCount() == 0 {
		line += ", Text: " + t.Text(node)
	}
	if node.IsError() || node.IsMissing() {
		line += " (syntax error)"
	}
	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}

	// annotations and modifiers are what the fixes edit, show them in full
	if node.Kind() == "modifiers" {
		for _, a := range t.Annotations(node.Parent()) {
			if _, err := fmt.Fprintf(w, "%s  ANNOTATION %s, Text: %s\n", indent, a.Name, t.Text(a.Node)); err != nil {
				return err
			}
		}
	}

	for i := uint(0); i < node.NamedChildCount(); i++ {
		if err := t.printNodeStructure(w, node.NamedChild(i), depth+1); err != nil {
			return err
		}
	}
	return nil
}
