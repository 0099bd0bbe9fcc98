package javaast

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// Annotation is an annotation attached to a declaration
type Annotation struct {
	Node *tree_sitter.Node
	// Name is the name as written, simple or qualified
	Name string
}

// Modifiers returns the modifiers node of a declaration, or nil
func Modifiers(decl *tree_sitter.Node) *tree_sitter.Node {
	if decl == nil {
		return nil
	}
	if mods := Children(decl, NodeKind("modifiers"), nil); len(mods) > 0 {
		return mods[0]
	}
	return nil
}

// Annotations lists the annotations of a declaration in source order
func (t *Tree) Annotations(decl *tree_sitter.Node) []Annotation {
	return t.annotationsMatching(decl, AnnotationNodePattern)
}

// AnnotationsNamed lists the annotations of decl named one of names
func (t *Tree) AnnotationsNamed(decl *tree_sitter.Node, names ...string) []Annotation {
	return t.annotationsMatching(decl, AnnotationNamed(names...))
}

// FindAnnotation returns the first annotation of decl named one of names
func (t *Tree) FindAnnotation(decl *tree_sitter.Node, names ...string) *Annotation {
	if found := t.AnnotationsNamed(decl, names...); len(found) > 0 {
		return &found[0]
	}
	return nil
}

func (t *Tree) annotationsMatching(decl *tree_sitter.Node, pattern Pattern) []Annotation {
	mods := Modifiers(decl)
	if mods == nil {
		return nil
	}
	var result []Annotation
	for _, node := range Children(mods, pattern, t.Content()) {
		result = append(result, Annotation{
			Node: node,
			Name: t.Text(node.ChildByFieldName("name")),
		})
	}
	return result
}

// Modifier returns the keyword node of a modifier such as "final" or "static"
func Modifier(decl *tree_sitter.Node, keyword string) *tree_sitter.Node {
	mods := Modifiers(decl)
	if mods == nil {
		return nil
	}
	for i := uint(0); i < mods.ChildCount(); i++ {
		child := mods.Child(i)
		if !child.IsNamed() && child.Kind() == keyword {
			return child
		}
	}
	return nil
}

// HasModifier reports whether decl carries the modifier keyword
func HasModifier(decl *tree_sitter.Node, keyword string) bool {
	return Modifier(decl, keyword) != nil
}

// Parameters returns the formal parameters of a method or constructor
func Parameters(decl *tree_sitter.Node) []*tree_sitter.Node {
	if decl == nil {
		return nil
	}
	params := decl.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	return Children(params, AnyNodeKind("formal_parameter", "spread_parameter"), nil)
}

// Name returns the declared name of a declaration. For fields the name of
// the first declarator is returned.
func (t *Tree) Name(decl *tree_sitter.Node) string {
	if decl == nil {
		return ""
	}
	if decl.Kind() == "field_declaration" {
		if declarator := decl.ChildByFieldName("declarator"); declarator != nil {
			return t.Text(declarator.ChildByFieldName("name"))
		}
		return ""
	}
	return t.Text(decl.ChildByFieldName("name"))
}

// Constructors lists the constructors declared in a type body
func Constructors(typeDecl *tree_sitter.Node) []*tree_sitter.Node {
	if typeDecl == nil {
		return nil
	}
	body := typeDecl.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	return Children(body, NodeKind("constructor_declaration"), nil)
}
