package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/liberty-tools/liberty-lsp/internal/diagnostic"
	"github.com/liberty-tools/liberty-lsp/internal/document"
	"github.com/liberty-tools/liberty-lsp/internal/fix"
	"github.com/liberty-tools/liberty-lsp/internal/lsp/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testURI = "file:///demo/Greeter.java"

type fakeRenderer struct {
	mu        sync.Mutex
	rendered  map[MarkerKey][]Marker
	renders   int
	clears    int
	inFlight  int
	maxFlight int
	delay     time.Duration
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{rendered: make(map[MarkerKey][]Marker)}
}

func (r *fakeRenderer) RenderMarkers(ctx context.Context, key MarkerKey, markers []Marker) error {
	r.mu.Lock()
	r.inFlight++
	if r.inFlight > r.maxFlight {
		r.maxFlight = r.inFlight
	}
	r.mu.Unlock()

	time.Sleep(r.delay)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight--
	r.renders++
	r.rendered[key] = markers
	return nil
}

func (r *fakeRenderer) ClearMarkers(ctx context.Context, key MarkerKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clears++
	delete(r.rendered, key)
	return nil
}

func (r *fakeRenderer) markers(key MarkerKey) []Marker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rendered[key]
}

func rng(sl, sc, el, ec int) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: sl, Character: sc},
		End:   protocol.Position{Line: el, Character: ec},
	}
}

func diag(code diagnostic.Code, r protocol.Range) diagnostic.Diagnostic {
	return diagnostic.Diagnostic{URI: testURI, Code: code, Range: r, Message: string(code)}
}

func newTestRegistry(t *testing.T, renderer *fakeRenderer, docs DocumentSource) *Registry {
	t.Helper()
	return NewRegistry(Options{
		ServerID:  "jakarta",
		Renderer:  renderer,
		Documents: docs,
	})
}

func TestReplaceDiagnosticsRendersMarkers(t *testing.T) {
	renderer := newFakeRenderer()
	docs := document.NewManager()
	docs.Open(testURI, "java", 1, "class A {\n}\n")

	s := newTestRegistry(t, renderer, docs).Open(testURI)
	assert.Empty(t, s.Current().Diagnostics(), "a new session starts empty")

	warning := diag("inject-final", rng(0, 0, 0, 5))
	warning.Severity = protocol.DiagnosticSeverityWarning
	pastEnd := diag("managed-bean-final-class", rng(1, 0, 9, 0))

	gen, err := s.ReplaceDiagnostics(context.Background(), 1, []diagnostic.Diagnostic{warning, pastEnd})
	require.NoError(t, err)
	assert.Same(t, gen, s.Current())
	assert.Equal(t, 1, gen.Version())

	markers := renderer.markers(MarkerKey{URI: testURI, LanguageServerID: "jakarta"})
	require.Len(t, markers, 2)
	assert.Equal(t, protocol.DiagnosticSeverityWarning, markers[0].Severity)
	assert.Equal(t, protocol.DiagnosticSeverityError, markers[1].Severity, "missing severity renders as error")
	assert.Equal(t, rng(1, 0, 2, 0), markers[1].Range, "end is clamped to the document end")
	assert.Equal(t, markers[1].Range, markers[1].Diagnostic.Range)
	assert.Equal(t, gen.Markers(), markers)
}

func TestReplaceDiagnosticsInvalidatesCache(t *testing.T) {
	s := newTestRegistry(t, newFakeRenderer(), nil).Open(testURI)
	ctx := context.Background()

	old := diag("inject-final", rng(3, 0, 3, 40))
	first, err := s.ReplaceDiagnostics(ctx, 1, []diagnostic.Diagnostic{old})
	require.NoError(t, err)

	fixes := []fix.CandidateFix{fix.NewCommand("Remove @Inject", "cmd")}
	require.True(t, s.StoreFixes(first, old.Identity(), fixes))

	cached, ok := s.GetCachedFixes(old.Identity())
	require.True(t, ok)
	assert.Equal(t, fixes, cached)

	second, err := s.ReplaceDiagnostics(ctx, 2, []diagnostic.Diagnostic{old})
	require.NoError(t, err)

	_, ok = s.GetCachedFixes(old.Identity())
	assert.False(t, ok, "old generation fixes must not be served")
	assert.True(t, first.Superseded())
	assert.ErrorIs(t, first.Context().Err(), context.Canceled)
	assert.False(t, second.Superseded())
	assert.NotEqual(t, first.ID(), second.ID())

	assert.False(t, s.StoreFixes(first, old.Identity(), fixes), "stale generations cannot store")
	_, ok = second.CachedFixes(old.Identity())
	assert.False(t, ok)

	d, ok := second.Lookup(old.Identity())
	require.True(t, ok)
	assert.Equal(t, old, d)
}

func TestInvalidateRanges(t *testing.T) {
	renderer := newFakeRenderer()
	s := newTestRegistry(t, renderer, nil).Open(testURI)
	ctx := context.Background()

	touched := diag("inject-final", rng(5, 0, 5, 30))
	untouched := diag("managed-bean-final-class", rng(9, 0, 9, 12))
	gen, err := s.ReplaceDiagnostics(ctx, 4, []diagnostic.Diagnostic{touched, untouched})
	require.NoError(t, err)
	require.True(t, s.StoreFixes(gen, untouched.Identity(), nil))

	next, err := s.InvalidateRanges(ctx, gen, []protocol.Range{rng(5, 10, 5, 25)})
	require.NoError(t, err)

	assert.Equal(t, []diagnostic.Diagnostic{untouched}, next.Diagnostics())
	assert.Equal(t, 4, next.Version())
	assert.True(t, gen.Superseded())
	_, ok := s.GetCachedFixes(untouched.Identity())
	assert.False(t, ok)
	assert.Len(t, renderer.markers(MarkerKey{URI: testURI, LanguageServerID: "jakarta"}), 1)
}

func TestInvalidateRangesOfSupersededGeneration(t *testing.T) {
	renderer := newFakeRenderer()
	s := newTestRegistry(t, renderer, nil).Open(testURI)
	ctx := context.Background()

	old, err := s.ReplaceDiagnostics(ctx, 4, []diagnostic.Diagnostic{diag("inject-final", rng(5, 0, 5, 30))})
	require.NoError(t, err)
	fresh := diag("inject-static", rng(5, 4, 5, 20))
	current, err := s.ReplaceDiagnostics(ctx, 5, []diagnostic.Diagnostic{fresh})
	require.NoError(t, err)

	_, err = s.InvalidateRanges(ctx, old, []protocol.Range{rng(5, 10, 5, 25)})
	assert.ErrorIs(t, err, ErrSuperseded)

	assert.Same(t, current, s.Current())
	assert.False(t, current.Superseded())
	assert.Equal(t, []diagnostic.Diagnostic{fresh}, s.Current().Diagnostics())
}

func TestCloseIsTerminal(t *testing.T) {
	renderer := newFakeRenderer()
	s := newTestRegistry(t, renderer, nil).Open(testURI)
	ctx := context.Background()

	d := diag("inject-final", rng(3, 0, 3, 40))
	gen, err := s.ReplaceDiagnostics(ctx, 1, []diagnostic.Diagnostic{d})
	require.NoError(t, err)
	require.True(t, s.StoreFixes(gen, d.Identity(), nil))

	s.Close(ctx)
	s.Close(ctx)

	assert.True(t, s.Closed())
	assert.True(t, gen.Superseded())
	assert.Equal(t, 1, renderer.clears)
	assert.Empty(t, renderer.markers(MarkerKey{URI: testURI, LanguageServerID: "jakarta"}))
	_, ok := s.GetCachedFixes(d.Identity())
	assert.False(t, ok)
	assert.Empty(t, s.Current().Diagnostics())

	_, err = s.ReplaceDiagnostics(ctx, 2, nil)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.InvalidateRanges(ctx, gen, nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestReplaceDiagnosticsIsSerialized(t *testing.T) {
	renderer := newFakeRenderer()
	renderer.delay = time.Millisecond
	s := newTestRegistry(t, renderer, nil).Open(testURI)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var diags []diagnostic.Diagnostic
			for j := 0; j <= i; j++ {
				diags = append(diags, diag(diagnostic.Code(fmt.Sprintf("code-%d", j)), rng(j, 0, j, 1)))
			}
			_, err := s.ReplaceDiagnostics(ctx, i, diags)
			assert.NoError(t, err)
		}(i)
	}

	stop := make(chan struct{})
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			select {
			case <-stop:
				return
			default:
			}
			gen := s.Current()
			assert.Len(t, gen.Markers(), len(gen.Diagnostics()), "readers see whole generations")
		}
	}()

	wg.Wait()
	close(stop)
	<-readerDone

	assert.Equal(t, 1, renderer.maxFlight, "marker passes never interleave")
	assert.Equal(t, s.Current().Markers(), renderer.markers(MarkerKey{URI: testURI, LanguageServerID: "jakarta"}))
}

func TestRegistry(t *testing.T) {
	renderer := newFakeRenderer()
	r := newTestRegistry(t, renderer, nil)
	ctx := context.Background()

	a := r.Open("file:///A.java")
	assert.Same(t, a, r.Open("file:///A.java"))
	b := r.Open("file:///B.java")
	assert.Equal(t, []string{"file:///A.java", "file:///B.java"}, r.URIs())

	got, ok := r.Get("file:///B.java")
	require.True(t, ok)
	assert.Same(t, b, got)

	r.Close(ctx, "file:///A.java")
	assert.True(t, a.Closed())
	_, ok = r.Get("file:///A.java")
	assert.False(t, ok)

	reopened := r.Open("file:///A.java")
	assert.NotSame(t, a, reopened)
	assert.False(t, reopened.Closed())

	r.CloseAll(ctx)
	assert.Empty(t, r.URIs())
	assert.True(t, b.Closed())
	assert.True(t, reopened.Closed())
}
