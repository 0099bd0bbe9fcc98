package jakarta

import (
	"context"
	"fmt"

	"github.com/liberty-tools/liberty-lsp/internal/diagnostic"
	"github.com/liberty-tools/liberty-lsp/internal/fix"
)

// serverFix offers code actions whose edits only the analysis server can
// compute, such as adding a supertype with its abstract methods. The titles
// must match the titles the server uses for the same actions.
type serverFix struct {
	id     fix.ProviderID
	titles func(d diagnostic.Diagnostic, fc fix.Context) []string
}

func (p serverFix) ID() fix.ProviderID {
	return p.id
}

func (p serverFix) ProduceFixes(ctx context.Context, d diagnostic.Diagnostic, fc fix.Context) ([]fix.CandidateFix, error) {
	var fixes []fix.CandidateFix
	for _, title := range p.titles(d, fc) {
		fixes = append(fixes, fix.NewDeferred(title, d))
	}
	return fixes, nil
}

// className returns the name of the class the diagnostic points at
func className(d diagnostic.Diagnostic, fc fix.Context) string {
	if fc.Tree == nil {
		return ""
	}
	return fc.Tree.Name(fc.Tree.TypeDeclarationAt(d.Range))
}

func supertypeTitles(verb string, supertypes ...string) func(diagnostic.Diagnostic, fix.Context) []string {
	return func(d diagnostic.Diagnostic, fc fix.Context) []string {
		name := className(d, fc)
		if name == "" {
			return nil
		}
		titles := make([]string, 0, len(supertypes))
		for _, supertype := range supertypes {
			titles = append(titles, fmt.Sprintf("Let '%s' %s '%s'", name, verb, supertype))
		}
		return titles
	}
}

// attributeTitles offers to add attributes for a missing-attribute code and
// to remove them otherwise
func attributeTitles(annotation string, missing diagnostic.Code, add []string, remove []string) func(diagnostic.Diagnostic, fix.Context) []string {
	return func(d diagnostic.Diagnostic, fc fix.Context) []string {
		var titles []string
		if d.Code == missing {
			for _, attr := range add {
				titles = append(titles, fmt.Sprintf("Add the `%s` attribute to @%s", attr, annotation))
			}
			return titles
		}
		for _, attr := range remove {
			titles = append(titles, fmt.Sprintf("Remove the `%s` attribute from @%s", attr, annotation))
		}
		return titles
	}
}

func fixedTitles(titles ...string) func(diagnostic.Diagnostic, fix.Context) []string {
	return func(diagnostic.Diagnostic, fix.Context) []string {
		return titles
	}
}
