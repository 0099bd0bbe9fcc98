package javaast

import (
	"github.com/liberty-tools/liberty-lsp/internal/lsp/protocol"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

func isBlank(b byte) bool {
	return b == ' ' || b == '\t'
}

func (t *Tree) edit(start, end int, text string) protocol.TextEdit {
	return protocol.TextEdit{
		Range: protocol.Range{
			Start: t.Snapshot.PositionAt(start),
			End:   t.Snapshot.PositionAt(end),
		},
		NewText: text,
	}
}

// lineBounds returns the offsets of the start of the line holding start and
// of the end of the line holding end, excluding the line break
func (t *Tree) lineBounds(start, end int) (int, int) {
	content := t.Content()
	lineStart := start
	for lineStart > 0 && content[lineStart-1] != '\n' {
		lineStart--
	}
	lineEnd := end
	for lineEnd < len(content) && content[lineEnd] != '\n' {
		lineEnd++
	}
	return lineStart, lineEnd
}

func (t *Tree) onlyBlanks(from, to int) bool {
	content := t.Content()
	for i := from; i < to; i++ {
		if !isBlank(content[i]) && content[i] != '\r' {
			return false
		}
	}
	return true
}

// RemoveNode deletes a node. A node alone on its lines is removed with its
// lines, otherwise the blanks following it are removed too.
func (t *Tree) RemoveNode(node *tree_sitter.Node) protocol.TextEdit {
	content := t.Content()
	start, end := int(node.StartByte()), int(node.EndByte())

	lineStart, lineEnd := t.lineBounds(start, end)
	if t.onlyBlanks(lineStart, start) && t.onlyBlanks(end, lineEnd) {
		if lineEnd < len(content) {
			lineEnd++
		}
		return t.edit(lineStart, lineEnd, "")
	}

	for end < len(content) && isBlank(content[end]) {
		end++
	}
	return t.edit(start, end, "")
}

// ReplaceNode replaces the text of a node
func (t *Tree) ReplaceNode(node *tree_sitter.Node, text string) protocol.TextEdit {
	return t.edit(int(node.StartByte()), int(node.EndByte()), text)
}

// InsertBefore inserts text at the start of a node
func (t *Tree) InsertBefore(node *tree_sitter.Node, text string) protocol.TextEdit {
	start := int(node.StartByte())
	return t.edit(start, start, text)
}

// InsertAfter inserts text at the end of a node
func (t *Tree) InsertAfter(node *tree_sitter.Node, text string) protocol.TextEdit {
	end := int(node.EndByte())
	return t.edit(end, end, text)
}

// Indentation returns the leading blanks of the line a node starts on
func (t *Tree) Indentation(node *tree_sitter.Node) string {
	content := t.Content()
	lineStart, _ := t.lineBounds(int(node.StartByte()), int(node.StartByte()))
	i := lineStart
	for i < len(content) && isBlank(content[i]) {
		i++
	}
	return string(content[lineStart:i])
}

// InsertLineAbove inserts a line with the node's indentation above the line
// the node starts on
func (t *Tree) InsertLineAbove(node *tree_sitter.Node, line string) protocol.TextEdit {
	lineStart, _ := t.lineBounds(int(node.StartByte()), int(node.StartByte()))
	return t.edit(lineStart, lineStart, t.Indentation(node)+line+"\n")
}

// InsertMember inserts a member declaration right after the opening brace of
// a type body. Every line of member is indented one level deeper than the type.
func (t *Tree) InsertMember(typeDecl *tree_sitter.Node, member []string) (protocol.TextEdit, bool) {
	body := typeDecl.ChildByFieldName("body")
	if body == nil || body.ChildCount() == 0 {
		return protocol.TextEdit{}, false
	}
	brace := body.Child(0)
	if brace.Kind() != "{" {
		return protocol.TextEdit{}, false
	}

	indent := t.Indentation(typeDecl) + "    "
	text := "\n"
	for _, line := range member {
		if line == "" {
			text += "\n"
			continue
		}
		text += indent + line + "\n"
	}
	return t.InsertAfter(brace, text), true
}
