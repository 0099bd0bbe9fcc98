package jakarta

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/liberty-tools/liberty-lsp/internal/diagnostic"
	"github.com/liberty-tools/liberty-lsp/internal/fix"
	"github.com/liberty-tools/liberty-lsp/internal/javaast"
	"github.com/liberty-tools/liberty-lsp/internal/lsp/protocol"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

type removeMode int

const (
	// removeFirst offers one fix removing the first matching annotation
	removeFirst removeMode = iota
	// removeEach offers one fix per matching annotation
	removeEach
	// removeAll offers one fix removing every matching annotation
	removeAll
)

// removeAnnotation removes annotations of the declaration a diagnostic
// points at, or of the closest enclosing declaration carrying them
type removeAnnotation struct {
	id    fix.ProviderID
	names []string
	mode  removeMode
	// family matches every annotation whose simple name starts with it
	family string
	except []string
}

func (p removeAnnotation) ID() fix.ProviderID {
	return p.id
}

func (p removeAnnotation) matches(a javaast.Annotation) bool {
	for _, name := range p.except {
		if javaast.SameAnnotation(a.Name, name) {
			return false
		}
	}
	if p.family != "" {
		return strings.HasPrefix(simpleName(a.Name), p.family)
	}
	return slices.ContainsFunc(p.names, func(name string) bool {
		return javaast.SameAnnotation(a.Name, name)
	})
}

func (p removeAnnotation) ProduceFixes(ctx context.Context, d diagnostic.Diagnostic, fc fix.Context) ([]fix.CandidateFix, error) {
	if fc.Tree == nil {
		return nil, nil
	}
	t := fc.Tree

	var found []javaast.Annotation
	declarationWith(t, d.Range, func(decl *tree_sitter.Node) bool {
		found = nil
		for _, a := range t.Annotations(decl) {
			if p.matches(a) {
				found = append(found, a)
			}
		}
		return len(found) > 0
	})
	if len(found) == 0 {
		return nil, nil
	}

	switch p.mode {
	case removeEach:
		fixes := make([]fix.CandidateFix, 0, len(found))
		for _, a := range found {
			fixes = append(fixes, editFix("Remove @"+simpleName(a.Name), fc, d, t.RemoveNode(a.Node)))
		}
		return fixes, nil
	case removeAll:
		names := make([]string, 0, len(found))
		edits := make([]protocol.TextEdit, 0, len(found))
		for _, a := range found {
			names = append(names, "@"+simpleName(a.Name))
			edits = append(edits, t.RemoveNode(a.Node))
		}
		return []fix.CandidateFix{editFix("Remove "+strings.Join(names, ", "), fc, d, edits...)}, nil
	default:
		a := found[0]
		return []fix.CandidateFix{editFix("Remove @"+simpleName(a.Name), fc, d, t.RemoveNode(a.Node))}, nil
	}
}

// removeConflictingScopes offers, for each scope annotation named in the
// diagnostic data, a fix keeping that scope and removing the others
type removeConflictingScopes struct{}

func (removeConflictingScopes) ID() fix.ProviderID {
	return RemoveConflictingScopes
}

func (removeConflictingScopes) ProduceFixes(ctx context.Context, d diagnostic.Diagnostic, fc fix.Context) ([]fix.CandidateFix, error) {
	if fc.Tree == nil {
		return nil, nil
	}
	t := fc.Tree

	var scopes []string
	for _, name := range dataNames(d) {
		if !javaast.SameAnnotation(name, Produces) {
			scopes = append(scopes, name)
		}
	}
	if len(scopes) < 2 {
		return nil, nil
	}

	decl := declarationWith(t, d.Range, func(decl *tree_sitter.Node) bool {
		return t.FindAnnotation(decl, scopes...) != nil
	})
	if decl == nil {
		return nil, nil
	}
	annotations := t.Annotations(decl)

	var fixes []fix.CandidateFix
	for _, keep := range scopes {
		var names []string
		var edits []protocol.TextEdit
		for _, a := range annotations {
			if javaast.SameAnnotation(a.Name, keep) {
				continue
			}
			if slices.ContainsFunc(scopes, func(s string) bool { return javaast.SameAnnotation(a.Name, s) }) {
				names = append(names, "@"+simpleName(a.Name))
				edits = append(edits, t.RemoveNode(a.Node))
			}
		}
		if len(edits) > 0 {
			fixes = append(fixes, editFix("Remove "+strings.Join(names, ", "), fc, d, edits...))
		}
	}
	return fixes, nil
}

// removeConstraint removes the bean validation constraint named in the
// diagnostic data
type removeConstraint struct{}

func (removeConstraint) ID() fix.ProviderID {
	return RemoveConstraintAnnotation
}

func (removeConstraint) ProduceFixes(ctx context.Context, d diagnostic.Diagnostic, fc fix.Context) ([]fix.CandidateFix, error) {
	names := dataNames(d)
	if fc.Tree == nil || len(names) == 0 {
		return nil, nil
	}
	t := fc.Tree

	var found *javaast.Annotation
	declarationWith(t, d.Range, func(decl *tree_sitter.Node) bool {
		found = t.FindAnnotation(decl, names[0])
		return found != nil
	})
	if found == nil {
		return nil, nil
	}
	title := fmt.Sprintf("Remove constraint annotation %s from element", simpleName(names[0]))
	return []fix.CandidateFix{editFix(title, fc, d, t.RemoveNode(found.Node))}, nil
}

// removeInvalidParamAnnotations removes the parameter annotations that are
// not allowed on an injection or producer method, one fix per annotation
type removeInvalidParamAnnotations struct{}

func (removeInvalidParamAnnotations) ID() fix.ProviderID {
	return RemoveInvalidParamAnnotations
}

func (removeInvalidParamAnnotations) ProduceFixes(ctx context.Context, d diagnostic.Diagnostic, fc fix.Context) ([]fix.CandidateFix, error) {
	if fc.Tree == nil {
		return nil, nil
	}
	t := fc.Tree

	method := declarationWith(t, d.Range, ofKind("method_declaration", "constructor_declaration"))
	if method == nil {
		return nil, nil
	}

	var fixes []fix.CandidateFix
	for _, param := range javaast.Parameters(method) {
		for _, a := range t.AnnotationsNamed(param, invalidParamAnnotations...) {
			title := fmt.Sprintf("Remove the '@%s' modifier from parameter '%s'", simpleName(a.Name), t.Text(param.ChildByFieldName("name")))
			fixes = append(fixes, editFix(title, fc, d, t.RemoveNode(a.Node)))
		}
	}
	return fixes, nil
}

// insertInject annotates the constructor of a managed bean with @Inject
type insertInject struct{}

func (insertInject) ID() fix.ProviderID {
	return InsertInjectAnnotation
}

func (insertInject) ProduceFixes(ctx context.Context, d diagnostic.Diagnostic, fc fix.Context) ([]fix.CandidateFix, error) {
	if fc.Tree == nil {
		return nil, nil
	}
	t := fc.Tree

	ctor := declarationWith(t, d.Range, ofKind("constructor_declaration"))
	if ctor == nil || t.FindAnnotation(ctor, Inject) != nil {
		return nil, nil
	}
	edits := withImport(t, Inject, t.InsertLineAbove(ctor, "@Inject"))
	return []fix.CandidateFix{editFix("Insert @Inject", fc, d, edits...)}, nil
}

// replaceScopeWithDependent replaces the normal scope of a managed bean
// declaring public fields with @Dependent
type replaceScopeWithDependent struct{}

func (replaceScopeWithDependent) ID() fix.ProviderID {
	return ReplaceScopeWithDependent
}

func (replaceScopeWithDependent) ProduceFixes(ctx context.Context, d diagnostic.Diagnostic, fc fix.Context) ([]fix.CandidateFix, error) {
	if fc.Tree == nil {
		return nil, nil
	}
	t := fc.Tree

	var scope *javaast.Annotation
	declarationWith(t, d.Range, func(decl *tree_sitter.Node) bool {
		scope = t.FindAnnotation(decl, normalScopes...)
		return scope != nil
	})
	if scope == nil {
		return nil, nil
	}
	edits := withImport(t, Dependent, t.ReplaceNode(scope.Node, "@Dependent"))
	return []fix.CandidateFix{editFix("Replace current scope with @Dependent", fc, d, edits...)}, nil
}

// addResourceAttribute adds a missing attribute to a @Resource annotation
type addResourceAttribute struct {
	id        fix.ProviderID
	attribute string
	value     string
}

func (p addResourceAttribute) ID() fix.ProviderID {
	return p.id
}

func (p addResourceAttribute) ProduceFixes(ctx context.Context, d diagnostic.Diagnostic, fc fix.Context) ([]fix.CandidateFix, error) {
	if fc.Tree == nil {
		return nil, nil
	}
	t := fc.Tree

	var resource *javaast.Annotation
	declarationWith(t, d.Range, func(decl *tree_sitter.Node) bool {
		resource = t.FindAnnotation(decl, Resource)
		return resource != nil
	})
	if resource == nil {
		return nil, nil
	}

	pair := p.attribute + " = " + p.value
	var edit protocol.TextEdit
	args := resource.Node.ChildByFieldName("arguments")
	switch {
	case args == nil:
		edit = t.InsertAfter(resource.Node, "("+pair+")")
	case args.NamedChildCount() == 0:
		edit = t.ReplaceNode(args, "("+pair+")")
	default:
		if len(javaast.Children(args, javaast.ElementValuePair(p.attribute), t.Content())) > 0 {
			return nil, nil
		}
		edit = t.InsertAfter(args.NamedChild(args.NamedChildCount()-1), ", "+pair)
	}

	title := fmt.Sprintf("Add %s to %s", p.attribute, Resource)
	return []fix.CandidateFix{editFix(title, fc, d, edit)}, nil
}

// addPathParam annotates an unannotated websocket method parameter with @PathParam
type addPathParam struct{}

func (addPathParam) ID() fix.ProviderID {
	return AddPathParam
}

func (addPathParam) ProduceFixes(ctx context.Context, d diagnostic.Diagnostic, fc fix.Context) ([]fix.CandidateFix, error) {
	if fc.Tree == nil {
		return nil, nil
	}
	t := fc.Tree

	param := javaast.EnclosingOfKind(t.NodeAt(d.Range), "formal_parameter")
	if param == nil || len(t.Annotations(param)) > 0 {
		return nil, nil
	}
	name := t.Text(param.ChildByFieldName("name"))
	edits := withImport(t, PathParam, t.InsertBefore(param, fmt.Sprintf("@PathParam(%q) ", name)))
	return []fix.CandidateFix{editFix("Insert @"+PathParam, fc, d, edits...)}, nil
}
