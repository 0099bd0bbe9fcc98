package javaast

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/liberty-tools/liberty-lsp/internal/document"
	"github.com/liberty-tools/liberty-lsp/internal/lsp/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

const greeterSource = `package demo;

import jakarta.inject.Inject;

public class Greeter {
    @Inject
    private final Service service;

    @Inject public Greeter(String name) {
        this.name = name;
    }

    public static int count() {
        return 1;
    }
}
`

func pos(line, character int) protocol.Position {
	return protocol.Position{Line: line, Character: character}
}

func span(sl, sc, el, ec int) protocol.Range {
	return protocol.Range{Start: pos(sl, sc), End: pos(el, ec)}
}

func parseGreeter(t *testing.T) *Tree {
	t.Helper()
	snap := document.NewSnapshot("file:///demo/Greeter.java", "java", 1, greeterSource)
	tree, err := Parse(context.Background(), snap)
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	return tree
}

func TestParseRejectsNonJava(t *testing.T) {
	snap := document.NewSnapshot("file:///demo/server.xml", "xml", 1, "<server/>")
	_, err := Parse(context.Background(), snap)
	assert.ErrorIs(t, err, ErrNotJava)
}

func TestFieldDeclaration(t *testing.T) {
	tree := parseGreeter(t)

	decl := tree.DeclarationAt(span(6, 4, 6, 34))
	require.NotNil(t, decl)
	assert.Equal(t, "field_declaration", decl.Kind())
	assert.Equal(t, "service", tree.Name(decl))
	assert.True(t, HasModifier(decl, "final"))
	assert.True(t, HasModifier(decl, "private"))
	assert.False(t, HasModifier(decl, "static"))

	annotations := tree.Annotations(decl)
	require.Len(t, annotations, 1)
	assert.Equal(t, "Inject", annotations[0].Name)
	assert.NotNil(t, tree.FindAnnotation(decl, "jakarta.inject.Inject"))
	assert.Nil(t, tree.FindAnnotation(decl, "jakarta.enterprise.inject.Produces"))

	assert.Equal(t, protocol.TextEdit{Range: span(5, 0, 6, 0)}, tree.RemoveNode(annotations[0].Node),
		"an annotation alone on its line is removed with the line")
	assert.Equal(t, protocol.TextEdit{Range: span(6, 12, 6, 18)}, tree.RemoveNode(Modifier(decl, "final")))
}

func TestConstructorDeclaration(t *testing.T) {
	tree := parseGreeter(t)

	decl := tree.DeclarationAt(span(8, 23, 8, 30))
	require.NotNil(t, decl)
	assert.Equal(t, "constructor_declaration", decl.Kind())
	assert.Len(t, Parameters(decl), 1)

	inject := tree.FindAnnotation(decl, "Inject")
	require.NotNil(t, inject)
	assert.Equal(t, protocol.TextEdit{Range: span(8, 4, 8, 12)}, tree.RemoveNode(inject.Node))

	assert.Equal(t, protocol.TextEdit{Range: span(8, 0, 8, 0), NewText: "    @Named\n"}, tree.InsertLineAbove(decl, "@Named"))

	typeDecl := tree.TypeDeclarationAt(span(8, 23, 8, 30))
	require.NotNil(t, typeDecl)
	assert.Equal(t, "Greeter", tree.Name(typeDecl))
	assert.Len(t, Constructors(typeDecl), 1)
}

func TestInsertMember(t *testing.T) {
	tree := parseGreeter(t)

	typeDecl := tree.TypeDeclarationAt(span(4, 13, 4, 20))
	require.NotNil(t, typeDecl)

	edit, ok := tree.InsertMember(typeDecl, []string{"protected Greeter() {", "}", ""})
	require.True(t, ok)
	assert.Equal(t, span(4, 22, 4, 22), edit.Range)
	assert.Equal(t, "\n    protected Greeter() {\n    }\n\n", edit.NewText)
}

func TestPatterns(t *testing.T) {
	tree := parseGreeter(t)
	body := tree.TypeDeclarationAt(span(4, 13, 4, 20)).ChildByFieldName("body")
	require.NotNil(t, body)

	members := Children(body, DeclarationPattern, tree.Content())
	require.Len(t, members, 3)
	field, ctor, method := members[0], members[1], members[2]

	injected := Children(body, FuncPattern(func(node *tree_sitter.Node, content []byte) bool {
		return len(tree.AnnotationsNamed(node, "jakarta.inject.Inject")) > 0
	}), tree.Content())
	require.Len(t, injected, 2)
	assert.Equal(t, field.StartByte(), injected[0].StartByte())
	assert.Equal(t, ctor.StartByte(), injected[1].StartByte())

	ctors := Constructors(tree.TypeDeclarationAt(span(4, 13, 4, 20)))
	require.Len(t, ctors, 1)
	assert.Equal(t, ctor.StartByte(), ctors[0].StartByte())
	assert.Len(t, Parameters(ctor), 1)
	assert.Empty(t, Parameters(method))
	assert.Nil(t, tree.FindAnnotation(method, "Inject"))
}

func TestElementValuePair(t *testing.T) {
	snap := document.NewSnapshot("file:///demo/Bean.java", "java", 1, `public class Bean {
    @Resource(name = "db", lookup = type)
    private DataSource source;
}
`)
	tree, err := Parse(context.Background(), snap)
	require.NoError(t, err)
	t.Cleanup(tree.Close)

	field := tree.DeclarationAt(span(2, 23, 2, 29))
	resource := tree.FindAnnotation(field, "jakarta.annotation.Resource")
	require.NotNil(t, resource)
	args := resource.Node.ChildByFieldName("arguments")
	require.NotNil(t, args)

	assert.Len(t, Children(args, ElementValuePair("name"), tree.Content()), 1)
	assert.Len(t, Children(args, ElementValuePair("lookup"), tree.Content()), 1)
	assert.Empty(t, Children(args, ElementValuePair("type"), tree.Content()), "values are not keys")
}

func TestSameAnnotation(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{a: "Inject", b: "Inject", want: true},
		{a: "@Inject", b: "jakarta.inject.Inject", want: true},
		{a: "jakarta.inject.Inject", b: "javax.inject.Inject", want: false},
		{a: "Inject", b: "Injected", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.a+"="+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, SameAnnotation(tt.a, tt.b))
		})
	}
}

func TestClassifyCursor(t *testing.T) {
	ctx := context.Background()
	greeter := document.NewSnapshot("file:///demo/Greeter.java", "java", 1, greeterSource)

	tests := []struct {
		name       string
		snap       *document.Snapshot
		pos        protocol.Position
		wantKind   CursorKind
		wantPrefix string
	}{
		{
			name:       "non java document",
			snap:       document.NewSnapshot("file:///demo/server.xml", "xml", 1, "<server/>"),
			pos:        pos(0, 3),
			wantKind:   CursorInEmptyFile,
			wantPrefix: "",
		},
		{
			name:     "empty java file",
			snap:     document.NewSnapshot("file:///demo/Empty.java", "java", 1, ""),
			pos:      pos(0, 0),
			wantKind: CursorInEmptyFile,
		},
		{
			name:       "inside a method body",
			snap:       greeter,
			pos:        pos(13, 14),
			wantKind:   CursorNone,
			wantPrefix: "return",
		},
		{
			name:     "between members",
			snap:     greeter,
			pos:      pos(11, 0),
			wantKind: CursorInEmptyFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, prefix := ClassifyCursor(ctx, tt.snap, tt.pos)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantPrefix, prefix)
		})
	}
}

func TestWordPrefix(t *testing.T) {
	text := []byte("class A {\n    @Inj\n}")
	assert.Equal(t, "@Inj", wordPrefix(text, 18))
	assert.Equal(t, "", wordPrefix(text, 14))
	assert.Equal(t, "cla", wordPrefix(text, 3))
}

func TestDebugAST(t *testing.T) {
	tree := parseGreeter(t)

	var out bytes.Buffer
	require.NoError(t, tree.DebugAST(&out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.NotEmpty(t, lines)
	assert.True(t, strings.HasPrefix(lines[0], "Node: program [0:0-"))
	assert.Contains(t, out.String(), "  Node: class_declaration [4:0-15:1]")
	assert.Contains(t, out.String(), "ANNOTATION Inject, Text: @Inject")
	assert.Contains(t, out.String(), "Text: Greeter")
	assert.NotContains(t, out.String(), "(syntax error)")
}
