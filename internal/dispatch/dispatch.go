package dispatch

import (
	"context"
	"fmt"

	"github.com/liberty-tools/liberty-lsp/internal/catalog"
	"github.com/liberty-tools/liberty-lsp/internal/diagnostic"
	"github.com/liberty-tools/liberty-lsp/internal/fix"
	"go.uber.org/zap"
)

// Dispatcher resolves diagnostics to candidate fixes using only the catalog
// table. It never looks at code values beyond the lookup.
type Dispatcher struct {
	catalog  *catalog.Catalog
	registry *fix.Registry
	logger   *zap.Logger
}

// New creates a dispatcher
func New(cat *catalog.Catalog, reg *fix.Registry, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{catalog: cat, registry: reg, logger: logger}
}

// Handles reports whether fixes can be produced locally for a code
func (d *Dispatcher) Handles(code diagnostic.Code) bool {
	return d.catalog.Has(code)
}

// Resolve returns the fixes of every diagnostic. Each diagnostic gets an
// entry, possibly empty. The result is deterministic for identical input.
func (d *Dispatcher) Resolve(ctx context.Context, diagnostics []diagnostic.Diagnostic, fc fix.Context) map[diagnostic.Identity][]fix.CandidateFix {
	result := make(map[diagnostic.Identity][]fix.CandidateFix, len(diagnostics))
	for _, diag := range diagnostics {
		id := diag.Identity()
		if _, done := result[id]; done {
			continue
		}
		result[id] = d.ResolveOne(ctx, diag, fc)
	}
	return result
}

// ResolveOne concatenates the fixes of the providers registered for the
// diagnostic code, in registration order, then in each provider's order.
// A failing provider contributes nothing; the others still run.
func (d *Dispatcher) ResolveOne(ctx context.Context, diag diagnostic.Diagnostic, fc fix.Context) []fix.CandidateFix {
	if !diag.Actionable() {
		return nil
	}

	var fixes []fix.CandidateFix
	for _, id := range d.catalog.Lookup(diag.Code) {
		if ctx.Err() != nil {
			d.logger.Debug("fix resolution cancelled", zap.String("code", string(diag.Code)))
			break
		}

		provider, ok := d.registry.Get(id)
		if !ok {
			d.logger.Warn("fix provider not registered",
				zap.String("provider", string(id)),
				zap.String("code", string(diag.Code)))
			continue
		}

		produced, err := d.produce(ctx, provider, diag, fc)
		if err != nil {
			d.logger.Warn("fix provider failed",
				zap.String("provider", string(id)),
				zap.String("code", string(diag.Code)),
				zap.String("uri", diag.URI),
				zap.Error(err))
			continue
		}

		for _, f := range produced {
			if !f.Valid() {
				d.logger.Warn("fix provider returned malformed fix",
					zap.String("provider", string(id)),
					zap.String("title", f.Title))
				continue
			}
			if f.ProviderID == "" {
				f.ProviderID = id
			}
			fixes = append(fixes, f)
		}
	}

	for i := range fixes {
		fixes[i].Priority = i
	}
	return fixes
}

// produce calls a provider, turning a panic into an error
func (d *Dispatcher) produce(ctx context.Context, p fix.Provider, diag diagnostic.Diagnostic, fc fix.Context) (fixes []fix.CandidateFix, err error) {
	defer func() {
		if r := recover(); r != nil {
			fixes = nil
			err = fmt.Errorf("provider panicked: %v", r)
		}
	}()
	return p.ProduceFixes(ctx, diag, fc)
}
