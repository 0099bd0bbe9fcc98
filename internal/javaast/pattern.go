package javaast

import (
	"slices"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

var typeDeclarationKinds = []string{
	"class_declaration",
	"interface_declaration",
	"enum_declaration",
	"record_declaration",
	"annotation_type_declaration",
}

var memberDeclarationKinds = []string{
	"field_declaration",
	"method_declaration",
	"constructor_declaration",
	"formal_parameter",
	"enum_constant",
	"annotation_type_element_declaration",
}

// Common patterns for Java sources
var (
	// DeclarationPattern matches any declaration that can carry modifiers
	DeclarationPattern = Or(AnyNodeKind(typeDeclarationKinds...), AnyNodeKind(memberDeclarationKinds...))

	// AnnotationNodePattern matches annotations with or without arguments
	AnnotationNodePattern = AnyNodeKind("marker_annotation", "annotation")

	// AnnotationNamed matches an annotation whose simple or qualified name is one of names
	AnnotationNamed = func(names ...string) Pattern {
		return And(
			AnnotationNodePattern,
			FuncPattern(func(node *tree_sitter.Node, content []byte) bool {
				name := node.ChildByFieldName("name")
				if name == nil {
					return false
				}
				text := name.Utf8Text(content)
				return slices.ContainsFunc(names, func(n string) bool {
					return SameAnnotation(text, n)
				})
			}),
		)
	}

	// ElementValuePair matches an annotation argument "key = value" by key
	ElementValuePair = func(key string) Pattern {
		return And(
			NodeKind("element_value_pair"),
			FuncPattern(func(node *tree_sitter.Node, content []byte) bool {
				k := node.ChildByFieldName("key")
				return k != nil && k.Utf8Text(content) == key
			}),
		)
	}
)

// SameAnnotation compares annotation names, treating a simple name as equal
// to any qualified name ending in it
func SameAnnotation(a, b string) bool {
	a = strings.TrimPrefix(a, "@")
	b = strings.TrimPrefix(b, "@")
	if a == b {
		return true
	}
	if strings.Contains(a, ".") && strings.Contains(b, ".") {
		return false
	}
	return simpleName(a) == simpleName(b)
}

func simpleName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Pattern defines a pattern that can be matched against a tree-sitter node
type Pattern interface {
	Matches(node *tree_sitter.Node, content []byte) bool
}

// FuncPattern creates a pattern from a function
func FuncPattern(matchFunc func(node *tree_sitter.Node, content []byte) bool) Pattern {
	return &funcPattern{matchFunc: matchFunc}
}

type funcPattern struct {
	matchFunc func(node *tree_sitter.Node, content []byte) bool
}

func (p *funcPattern) Matches(node *tree_sitter.Node, content []byte) bool {
	return p.matchFunc(node, content)
}

// And chains multiple patterns using AND logic
func And(patterns ...Pattern) Pattern {
	return &andPattern{patterns: patterns}
}

type andPattern struct {
	patterns []Pattern
}

func (p *andPattern) Matches(node *tree_sitter.Node, content []byte) bool {
	for _, pattern := range p.patterns {
		if !pattern.Matches(node, content) {
			return false
		}
	}
	return true
}

// Or chains multiple patterns using OR logic
func Or(patterns ...Pattern) Pattern {
	return &orPattern{patterns: patterns}
}

type orPattern struct {
	patterns []Pattern
}

func (p *orPattern) Matches(node *tree_sitter.Node, content []byte) bool {
	for _, pattern := range p.patterns {
		if pattern.Matches(node, content) {
			return true
		}
	}
	return false
}

// NodeKind matches a node's kind
func NodeKind(kind string) Pattern {
	return AnyNodeKind(kind)
}

// AnyNodeKind matches any of the node kinds
func AnyNodeKind(kinds ...string) Pattern {
	return &anyNodeKindPattern{kinds: kinds}
}

type anyNodeKindPattern struct {
	kinds []string
}

func (p *anyNodeKindPattern) Matches(node *tree_sitter.Node, content []byte) bool {
	return slices.Contains(p.kinds, node.Kind())
}

// Children returns the direct named children of node matching pattern
func Children(node *tree_sitter.Node, pattern Pattern, content []byte) []*tree_sitter.Node {
	var results []*tree_sitter.Node
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if pattern.Matches(child, content) {
			results = append(results, child)
		}
	}
	return results
}
