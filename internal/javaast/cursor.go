package javaast

import (
	"context"
	"unicode"
	"unicode/utf8"

	"github.com/liberty-tools/liberty-lsp/internal/document"
	"github.com/liberty-tools/liberty-lsp/internal/lsp/protocol"
)

// CursorKind tells the Jakarta server where a completion was requested
type CursorKind int

const (
	// CursorInEmptyFile is also answered for positions between declarations
	CursorInEmptyFile CursorKind = 1
	// CursorNone means the cursor is inside a member where no annotation can be placed
	CursorNone CursorKind = 2000
)

var memberParentPattern = AnyNodeKind(
	"method_declaration",
	"field_declaration",
	"enum_constant",
	"annotation_type_element_declaration",
)

// ClassifyCursor classifies a position and returns the word prefix before it.
// Only two outcomes are distinguished: inside a member (none) or anywhere
// else (empty file). Annotation placement contexts such as "before class"
// are not classified.
func ClassifyCursor(ctx context.Context, snap *document.Snapshot, pos protocol.Position) (CursorKind, string) {
	if !IsJava(snap) {
		return CursorInEmptyFile, ""
	}

	offset, err := snap.Offset(pos)
	if err != nil {
		return CursorInEmptyFile, ""
	}
	prefix := wordPrefix(snap.Text, offset)

	tree, err := Parse(ctx, snap)
	if err != nil {
		return CursorInEmptyFile, prefix
	}
	defer tree.Close()

	return classify(tree, offset), prefix
}

func classify(tree *Tree, offset int) CursorKind {
	content := tree.Content()
	node := tree.Root().DescendantForByteRange(uint(offset), uint(offset))

	for node != nil && (!DeclarationPattern.Matches(node, content) || int(node.StartByte()) >= offset) {
		parent := node.Parent()
		if parent != nil && memberParentPattern.Matches(parent, content) {
			inAnnotation := EnclosingOfKind(node, "marker_annotation", "annotation") != nil
			if !inAnnotation && int(node.StartByte()) < offset {
				return CursorNone
			}
		}
		node = parent
	}
	return CursorInEmptyFile
}

// wordPrefix scans back from offset to the previous whitespace
func wordPrefix(text []byte, offset int) string {
	i := offset
	for i > 0 {
		r, size := utf8.DecodeLastRune(text[:i])
		if unicode.IsSpace(r) {
			break
		}
		i -= size
	}
	return string(text[i:offset])
}
