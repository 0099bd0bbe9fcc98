package session

import (
	"context"
	"sync/atomic"

	"github.com/liberty-tools/liberty-lsp/internal/diagnostic"
	"github.com/liberty-tools/liberty-lsp/internal/fix"
)

var generationSeq atomic.Uint64

// Generation is the immutable diagnostics state of one analysis pass. Only
// the fix cache changes after publication, by copy-on-write.
type Generation struct {
	id          uint64
	version     int
	diagnostics []diagnostic.Diagnostic
	byIdentity  map[diagnostic.Identity]diagnostic.Diagnostic
	markers     []Marker

	fixes atomic.Pointer[map[diagnostic.Identity][]fix.CandidateFix]

	ctx    context.Context
	cancel context.CancelFunc
}

func newGeneration(parent context.Context, version int, diags []diagnostic.Diagnostic) *Generation {
	ctx, cancel := context.WithCancel(parent)
	g := &Generation{
		id:          generationSeq.Add(1),
		version:     version,
		diagnostics: append([]diagnostic.Diagnostic(nil), diags...),
		byIdentity:  make(map[diagnostic.Identity]diagnostic.Diagnostic, len(diags)),
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, d := range diags {
		if _, exists := g.byIdentity[d.Identity()]; !exists {
			g.byIdentity[d.Identity()] = d
		}
	}
	empty := make(map[diagnostic.Identity][]fix.CandidateFix)
	g.fixes.Store(&empty)
	return g
}

// ID is unique across all sessions of the process
func (g *Generation) ID() uint64 {
	return g.id
}

// Version is the document version the diagnostics were published for
func (g *Generation) Version() int {
	return g.version
}

// Context is cancelled once the generation is superseded or its session closes
func (g *Generation) Context() context.Context {
	return g.ctx
}

// Superseded reports whether the generation is no longer current
func (g *Generation) Superseded() bool {
	return g.ctx.Err() != nil
}

// Diagnostics returns the diagnostics of the generation
func (g *Generation) Diagnostics() []diagnostic.Diagnostic {
	return append([]diagnostic.Diagnostic(nil), g.diagnostics...)
}

// Lookup returns the diagnostic with the given identity
func (g *Generation) Lookup(id diagnostic.Identity) (diagnostic.Diagnostic, bool) {
	d, ok := g.byIdentity[id]
	return d, ok
}

// Markers returns the markers rendered for the generation
func (g *Generation) Markers() []Marker {
	return append([]Marker(nil), g.markers...)
}

// CachedFixes returns the resolved fixes of a diagnostic
func (g *Generation) CachedFixes(id diagnostic.Identity) ([]fix.CandidateFix, bool) {
	fixes, ok := (*g.fixes.Load())[id]
	return fixes, ok
}

func (g *Generation) storeFixes(id diagnostic.Identity, fixes []fix.CandidateFix) {
	stored := append([]fix.CandidateFix(nil), fixes...)
	for {
		current := g.fixes.Load()
		next := make(map[diagnostic.Identity][]fix.CandidateFix, len(*current)+1)
		for k, v := range *current {
			next[k] = v
		}
		next[id] = stored
		if g.fixes.CompareAndSwap(current, &next) {
			return
		}
	}
}
