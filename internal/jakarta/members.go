package jakarta

import (
	"context"
	"fmt"

	"github.com/liberty-tools/liberty-lsp/internal/diagnostic"
	"github.com/liberty-tools/liberty-lsp/internal/fix"
	"github.com/liberty-tools/liberty-lsp/internal/javaast"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// removeModifier drops a modifier keyword from the closest declaration
// carrying it
type removeModifier struct {
	id      fix.ProviderID
	keyword string
}

func (p removeModifier) ID() fix.ProviderID {
	return p.id
}

func (p removeModifier) ProduceFixes(ctx context.Context, d diagnostic.Diagnostic, fc fix.Context) ([]fix.CandidateFix, error) {
	if fc.Tree == nil {
		return nil, nil
	}
	t := fc.Tree

	decl := declarationWith(t, d.Range, func(decl *tree_sitter.Node) bool {
		return javaast.HasModifier(decl, p.keyword)
	})
	if decl == nil {
		return nil, nil
	}
	title := fmt.Sprintf("Remove the '%s' modifier", p.keyword)
	return []fix.CandidateFix{editFix(title, fc, d, t.RemoveNode(javaast.Modifier(decl, p.keyword)))}, nil
}

func enclosingMethod(t *javaast.Tree, d diagnostic.Diagnostic) *tree_sitter.Node {
	return declarationWith(t, d.Range, ofKind("method_declaration"))
}

// removeMethodParameters empties the parameter list of a lifecycle method
type removeMethodParameters struct{}

func (removeMethodParameters) ID() fix.ProviderID {
	return RemoveMethodParameters
}

func (removeMethodParameters) ProduceFixes(ctx context.Context, d diagnostic.Diagnostic, fc fix.Context) ([]fix.CandidateFix, error) {
	if fc.Tree == nil {
		return nil, nil
	}
	t := fc.Tree

	method := enclosingMethod(t, d)
	if method == nil || len(javaast.Parameters(method)) == 0 {
		return nil, nil
	}
	edit := t.ReplaceNode(method.ChildByFieldName("parameters"), "()")
	return []fix.CandidateFix{editFix("Remove all parameters", fc, d, edit)}, nil
}

// changeReturnTypeVoid makes a lifecycle method return void
type changeReturnTypeVoid struct{}

func (changeReturnTypeVoid) ID() fix.ProviderID {
	return ChangeReturnTypeVoid
}

func (changeReturnTypeVoid) ProduceFixes(ctx context.Context, d diagnostic.Diagnostic, fc fix.Context) ([]fix.CandidateFix, error) {
	if fc.Tree == nil {
		return nil, nil
	}
	t := fc.Tree

	method := enclosingMethod(t, d)
	if method == nil {
		return nil, nil
	}
	returnType := method.ChildByFieldName("type")
	if returnType == nil || returnType.Kind() == "void_type" {
		return nil, nil
	}
	return []fix.CandidateFix{editFix("Change return type to void", fc, d, t.ReplaceNode(returnType, "void"))}, nil
}

var accessModifiers = []string{"public", "protected", "private"}

// makeMethodPublic replaces or adds the access modifier of a resource method
type makeMethodPublic struct{}

func (makeMethodPublic) ID() fix.ProviderID {
	return MakeMethodPublic
}

func (makeMethodPublic) ProduceFixes(ctx context.Context, d diagnostic.Diagnostic, fc fix.Context) ([]fix.CandidateFix, error) {
	if fc.Tree == nil {
		return nil, nil
	}
	t := fc.Tree

	method := enclosingMethod(t, d)
	if method == nil || javaast.HasModifier(method, "public") {
		return nil, nil
	}

	const title = "Make method public"
	for _, keyword := range accessModifiers[1:] {
		if node := javaast.Modifier(method, keyword); node != nil {
			return []fix.CandidateFix{editFix(title, fc, d, t.ReplaceNode(node, "public"))}, nil
		}
	}

	// package private: insert before the first keyword, or before the
	// return type when the method only has annotations
	if mods := javaast.Modifiers(method); mods != nil {
		for i := uint(0); i < mods.ChildCount(); i++ {
			if child := mods.Child(i); !child.IsNamed() {
				return []fix.CandidateFix{editFix(title, fc, d, t.InsertBefore(child, "public "))}, nil
			}
		}
	}
	for i := uint(0); i < method.NamedChildCount(); i++ {
		if child := method.NamedChild(i); child.Kind() != "modifiers" {
			return []fix.CandidateFix{editFix(title, fc, d, t.InsertBefore(child, "public "))}, nil
		}
	}
	return nil, nil
}

// addNoArgConstructor inserts a no-argument constructor in the class the
// diagnostic points at, one fix per access level
type addNoArgConstructor struct {
	id     fix.ProviderID
	access []string
}

func (p addNoArgConstructor) ID() fix.ProviderID {
	return p.id
}

func (p addNoArgConstructor) ProduceFixes(ctx context.Context, d diagnostic.Diagnostic, fc fix.Context) ([]fix.CandidateFix, error) {
	if fc.Tree == nil {
		return nil, nil
	}
	t := fc.Tree

	class := declarationWith(t, d.Range, ofKind("class_declaration"))
	if class == nil {
		return nil, nil
	}
	for _, ctor := range javaast.Constructors(class) {
		if len(javaast.Parameters(ctor)) == 0 {
			return nil, nil
		}
	}

	name := t.Name(class)
	var fixes []fix.CandidateFix
	for _, access := range p.access {
		edit, ok := t.InsertMember(class, []string{fmt.Sprintf("%s %s() {", access, name), "}"})
		if !ok {
			return nil, nil
		}
		title := fmt.Sprintf("Add a default '%s' constructor to this class", access)
		fixes = append(fixes, editFix(title, fc, d, edit))
	}
	return fixes, nil
}

// removeExtraEntityParams keeps one entity parameter of a resource method,
// one fix per parameter that could be kept
type removeExtraEntityParams struct{}

func (removeExtraEntityParams) ID() fix.ProviderID {
	return RemoveExtraEntityParams
}

func (removeExtraEntityParams) ProduceFixes(ctx context.Context, d diagnostic.Diagnostic, fc fix.Context) ([]fix.CandidateFix, error) {
	if fc.Tree == nil {
		return nil, nil
	}
	t := fc.Tree

	method := enclosingMethod(t, d)
	if method == nil {
		return nil, nil
	}
	params := javaast.Parameters(method)

	var entities []*tree_sitter.Node
	for _, param := range params {
		if len(t.Annotations(param)) == 0 {
			entities = append(entities, param)
		}
	}
	if len(entities) < 2 {
		return nil, nil
	}

	var fixes []fix.CandidateFix
	for _, keep := range entities {
		var kept []*tree_sitter.Node
		for _, param := range params {
			if param == keep || len(t.Annotations(param)) > 0 {
				kept = append(kept, param)
			}
		}
		title := fmt.Sprintf("Remove all entity parameters except %s", t.Text(keep.ChildByFieldName("name")))
		edit := t.ReplaceNode(method.ChildByFieldName("parameters"), parameterList(t, kept))
		fixes = append(fixes, editFix(title, fc, d, edit))
	}
	return fixes, nil
}
