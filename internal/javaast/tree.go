package javaast

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/liberty-tools/liberty-lsp/internal/document"
	"github.com/liberty-tools/liberty-lsp/internal/lsp/protocol"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
)

// ErrNotJava is returned when a snapshot does not hold Java source
var ErrNotJava = errors.New("document is not a java source")

var javaLanguage = tree_sitter.NewLanguage(tree_sitter_java.Language())

// Tree is a parsed Java document. It must be closed after use.
type Tree struct {
	Snapshot *document.Snapshot
	tree     *tree_sitter.Tree
}

// IsJava reports whether the snapshot holds Java source
func IsJava(snap *document.Snapshot) bool {
	if snap == nil {
		return false
	}
	return snap.LanguageID == "java" || strings.HasSuffix(strings.ToLower(snap.URI), ".java")
}

// Parse parses a Java snapshot. Each call uses its own parser, so trees can
// be built from several goroutines at once.
func Parse(ctx context.Context, snap *document.Snapshot) (*Tree, error) {
	if !IsJava(snap) {
		return nil, ErrNotJava
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(javaLanguage); err != nil {
		return nil, fmt.Errorf("failed to set java language: %w", err)
	}

	text := snap.Text
	tree := parser.ParseWithOptions(func(i int, _ tree_sitter.Point) []byte {
		if i < len(text) {
			return text[i:]
		}
		return []byte{}
	}, nil, &tree_sitter.ParseOptions{
		ProgressCallback: func(tree_sitter.ParseState) bool {
			return ctx.Err() != nil
		},
	})
	if tree == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("failed to parse %s", snap.URI)
	}

	return &Tree{Snapshot: snap, tree: tree}, nil
}

// Close releases the syntax tree
func (t *Tree) Close() {
	if t != nil && t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
}

// Root returns the program node
func (t *Tree) Root() *tree_sitter.Node {
	return t.tree.RootNode()
}

// Content returns the source the tree was parsed from
func (t *Tree) Content() []byte {
	return t.Snapshot.Text
}

// Text returns the source text of a node
func (t *Tree) Text(node *tree_sitter.Node) string {
	if node == nil {
		return ""
	}
	return node.Utf8Text(t.Snapshot.Text)
}

// Range converts the byte span of a node to an LSP range
func (t *Tree) Range(node *tree_sitter.Node) protocol.Range {
	return protocol.Range{
		Start: t.Snapshot.PositionAt(int(node.StartByte())),
		End:   t.Snapshot.PositionAt(int(node.EndByte())),
	}
}

// NodeAt returns the smallest named node covering the range
func (t *Tree) NodeAt(r protocol.Range) *tree_sitter.Node {
	start, err := t.Snapshot.Offset(r.Start)
	if err != nil {
		return nil
	}
	end, err := t.Snapshot.Offset(r.End)
	if err != nil || end < start {
		end = start
	}
	return t.Root().NamedDescendantForByteRange(uint(start), uint(end))
}

// DeclarationAt returns the innermost declaration enclosing the range
func (t *Tree) DeclarationAt(r protocol.Range) *tree_sitter.Node {
	node := t.NodeAt(r)
	for node != nil {
		if DeclarationPattern.Matches(node, t.Snapshot.Text) {
			return node
		}
		node = node.Parent()
	}
	return nil
}

// EnclosingOfKind walks up from node to the first ancestor (or node itself)
// of one of the given kinds
func EnclosingOfKind(node *tree_sitter.Node, kinds ...string) *tree_sitter.Node {
	pattern := AnyNodeKind(kinds...)
	for node != nil {
		if pattern.Matches(node, nil) {
			return node
		}
		node = node.Parent()
	}
	return nil
}

// TypeDeclarationAt returns the class, interface, enum or record enclosing the range
func (t *Tree) TypeDeclarationAt(r protocol.Range) *tree_sitter.Node {
	return EnclosingOfKind(t.NodeAt(r), typeDeclarationKinds...)
}
