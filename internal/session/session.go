package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/liberty-tools/liberty-lsp/internal/diagnostic"
	"github.com/liberty-tools/liberty-lsp/internal/fix"
	"github.com/liberty-tools/liberty-lsp/internal/lsp/protocol"
	"go.uber.org/zap"
)

var (
	// ErrClosed is returned by writes to a closed session
	ErrClosed = errors.New("session is closed")
	// ErrSuperseded is returned by writes computed against a generation
	// that is no longer current
	ErrSuperseded = errors.New("generation is superseded")
)

// Session holds the diagnostics state of one open document. Writes are
// serialized, reads load the current generation without locking.
type Session struct {
	uri      string
	key      MarkerKey
	renderer MarkerRenderer
	docs     DocumentSource
	logger   *zap.Logger
	base     context.Context

	mu      sync.Mutex
	current atomic.Pointer[Generation]
	closed  atomic.Bool
}

func newSession(uri string, opts Options) *Session {
	s := &Session{
		uri:      uri,
		key:      MarkerKey{URI: uri, LanguageServerID: opts.ServerID},
		renderer: opts.Renderer,
		docs:     opts.Documents,
		logger:   opts.Logger.With(zap.String("uri", uri)),
		base:     opts.BaseContext,
	}
	s.current.Store(newGeneration(s.base, 0, nil))
	return s
}

// URI returns the document the session belongs to
func (s *Session) URI() string {
	return s.uri
}

// Current returns the generation in force
func (s *Session) Current() *Generation {
	return s.current.Load()
}

// Closed reports whether Close was called
func (s *Session) Closed() bool {
	return s.closed.Load()
}

// GetCachedFixes returns the fixes cached for a diagnostic of the current generation
func (s *Session) GetCachedFixes(id diagnostic.Identity) ([]fix.CandidateFix, bool) {
	return s.Current().CachedFixes(id)
}

// StoreFixes caches fixes resolved for gen. Fixes of a superseded
// generation are refused.
func (s *Session) StoreFixes(gen *Generation, id diagnostic.Identity, fixes []fix.CandidateFix) bool {
	if gen == nil || s.Current() != gen || gen.Superseded() {
		return false
	}
	gen.storeFixes(id, fixes)
	return true
}

// ReplaceDiagnostics publishes a new generation. The previous generation's
// fix cache becomes unreachable and its context is cancelled, detaching
// in-flight fetches and applies. Markers are re-rendered before the lock is
// released, so two replacements never interleave.
func (s *Session) ReplaceDiagnostics(ctx context.Context, version int, diags []diagnostic.Diagnostic) (*Generation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return nil, fmt.Errorf("failed to replace diagnostics of %s: %w", s.uri, ErrClosed)
	}
	return s.publish(ctx, version, diags), nil
}

// InvalidateRanges publishes a generation without the diagnostics of gen
// touching any of the edited ranges. The ranges refer to gen, so nothing
// changes once another generation replaced it.
func (s *Session) InvalidateRanges(ctx context.Context, gen *Generation, ranges []protocol.Range) (*Generation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return nil, fmt.Errorf("failed to invalidate ranges of %s: %w", s.uri, ErrClosed)
	}

	current := s.current.Load()
	if current != gen {
		return nil, fmt.Errorf("failed to invalidate ranges of %s: %w", s.uri, ErrSuperseded)
	}
	var kept []diagnostic.Diagnostic
	for _, d := range current.diagnostics {
		touched := false
		for _, r := range ranges {
			if d.Range.Intersects(r) {
				touched = true
				break
			}
		}
		if !touched {
			kept = append(kept, d)
		}
	}
	return s.publish(ctx, current.version, kept), nil
}

// publish must be called with mu held
func (s *Session) publish(ctx context.Context, version int, diags []diagnostic.Diagnostic) *Generation {
	gen := newGeneration(s.base, version, diags)

	snap, _ := s.docs.Get(s.uri)
	gen.markers = make([]Marker, 0, len(diags))
	for _, d := range diags {
		gen.markers = append(gen.markers, newMarker(d, snap))
	}

	previous := s.current.Swap(gen)
	previous.cancel()

	if err := s.renderer.RenderMarkers(ctx, s.key, gen.Markers()); err != nil {
		s.logger.Warn("failed to render markers", zap.Error(err))
	}

	s.logger.Debug("diagnostics replaced",
		zap.Uint64("generation", gen.id),
		zap.Int("version", version),
		zap.Int("diagnostics", len(diags)))
	return gen
}

// Close clears the markers and releases the cached state. It is terminal.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Swap(true) {
		return
	}

	empty := newGeneration(s.base, 0, nil)
	empty.cancel()
	previous := s.current.Swap(empty)
	previous.cancel()

	if err := s.renderer.ClearMarkers(ctx, s.key); err != nil {
		s.logger.Warn("failed to clear markers", zap.Error(err))
	}
}
