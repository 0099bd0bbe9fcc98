package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/liberty-tools/liberty-lsp/internal/catalog"
	"github.com/liberty-tools/liberty-lsp/internal/diagnostic"
	"github.com/liberty-tools/liberty-lsp/internal/fix"
	"github.com/liberty-tools/liberty-lsp/internal/lsp/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func titled(id fix.ProviderID, titles ...string) fix.Provider {
	return fix.ProviderFunc{Name: id, Fn: func(ctx context.Context, d diagnostic.Diagnostic, fc fix.Context) ([]fix.CandidateFix, error) {
		var fixes []fix.CandidateFix
		for _, title := range titles {
			fixes = append(fixes, fix.NewEdit(title, d.URI, 1, protocol.TextEdit{Range: d.Range}))
		}
		return fixes, nil
	}}
}

func failing(id fix.ProviderID) fix.Provider {
	return fix.ProviderFunc{Name: id, Fn: func(context.Context, diagnostic.Diagnostic, fix.Context) ([]fix.CandidateFix, error) {
		return nil, errors.New("document model corrupted")
	}}
}

func panicking(id fix.ProviderID) fix.Provider {
	return fix.ProviderFunc{Name: id, Fn: func(context.Context, diagnostic.Diagnostic, fix.Context) ([]fix.CandidateFix, error) {
		panic("boom")
	}}
}

func diag(code diagnostic.Code, sl, sc, el, ec int) diagnostic.Diagnostic {
	return diagnostic.Diagnostic{
		URI:  "file:///demo/Greeter.java",
		Code: code,
		Range: protocol.Range{
			Start: protocol.Position{Line: sl, Character: sc},
			End:   protocol.Position{Line: el, Character: ec},
		},
	}
}

type entry struct {
	code diagnostic.Code
	ids  []fix.ProviderID
}

func newDispatcher(t *testing.T, logger *zap.Logger, entries []entry, providers ...fix.Provider) *Dispatcher {
	t.Helper()
	b := catalog.NewBuilder()
	for _, e := range entries {
		require.NoError(t, b.Register(e.code, e.ids...))
	}
	reg, err := fix.NewRegistryBuilder().Register(providers...).Build()
	require.NoError(t, err)
	return New(b.Build(), reg, logger)
}

func titles(fixes []fix.CandidateFix) []string {
	var result []string
	for _, f := range fixes {
		result = append(result, f.Title)
	}
	return result
}

func TestResolveInjectFinalScenario(t *testing.T) {
	d := newDispatcher(t, nil,
		[]entry{{code: "inject-final", ids: []fix.ProviderID{"remove-inject-annotation", "remove-final-modifier"}}},
		titled("remove-final-modifier", "Remove the 'final' modifier"),
		titled("remove-inject-annotation", "Remove @Inject"),
	)

	target := diag("inject-final", 3, 0, 3, 40)
	result := d.Resolve(context.Background(), []diagnostic.Diagnostic{target}, fix.Context{})

	fixes := result[target.Identity()]
	require.Len(t, fixes, 2)
	assert.Equal(t, []string{"Remove @Inject", "Remove the 'final' modifier"}, titles(fixes))
	assert.Equal(t, fix.ProviderID("remove-inject-annotation"), fixes[0].ProviderID)
	assert.Equal(t, fix.ProviderID("remove-final-modifier"), fixes[1].ProviderID)
	assert.Equal(t, 0, fixes[0].Priority)
	assert.Equal(t, 1, fixes[1].Priority)
}

func TestResolveConcatenationLaw(t *testing.T) {
	p1 := titled("p1", "a1", "a2")
	p2 := titled("p2", "b1")
	d := newDispatcher(t, nil, []entry{{code: "c", ids: []fix.ProviderID{"p1", "p2"}}}, p2, p1)

	target := diag("c", 1, 0, 1, 5)
	ctx := context.Background()

	first, err := p1.ProduceFixes(ctx, target, fix.Context{})
	require.NoError(t, err)
	second, err := p2.ProduceFixes(ctx, target, fix.Context{})
	require.NoError(t, err)
	want := append(titles(first), titles(second)...)

	for i := 0; i < 5; i++ {
		assert.Equal(t, want, titles(d.ResolveOne(ctx, target, fix.Context{})))
	}
}

func TestResolveUnregisteredAndMalformed(t *testing.T) {
	d := newDispatcher(t, nil, []entry{{code: "c", ids: []fix.ProviderID{"p"}}}, titled("p", "fix"))

	unknown := diag("not-in-catalog", 1, 0, 1, 5)
	noCode := diag("", 1, 0, 1, 5)
	reversed := diag("c", 4, 0, 1, 5)

	result := d.Resolve(context.Background(), []diagnostic.Diagnostic{unknown, noCode, reversed}, fix.Context{})

	require.Len(t, result, 3, "every diagnostic gets an entry")
	for _, fixes := range result {
		assert.Empty(t, fixes)
	}
	assert.False(t, d.Handles("not-in-catalog"))
	assert.True(t, d.Handles("c"))
}

func TestResolvePartialFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	d := newDispatcher(t, zap.New(core),
		[]entry{
			{code: "c", ids: []fix.ProviderID{"broken", "good", "panics", "missing"}},
			{code: "other", ids: []fix.ProviderID{"good"}},
		},
		failing("broken"), titled("good", "works"), panicking("panics"),
	)

	target := diag("c", 1, 0, 1, 5)
	other := diag("other", 2, 0, 2, 5)
	result := d.Resolve(context.Background(), []diagnostic.Diagnostic{target, other}, fix.Context{})

	assert.Equal(t, []string{"works"}, titles(result[target.Identity()]))
	assert.Equal(t, []string{"works"}, titles(result[other.Identity()]))

	assert.Equal(t, 2, logs.FilterMessage("fix provider failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("fix provider not registered").Len())
}

func TestResolveDropsMalformedFixes(t *testing.T) {
	bad := fix.ProviderFunc{Name: "bad", Fn: func(context.Context, diagnostic.Diagnostic, fix.Context) ([]fix.CandidateFix, error) {
		return []fix.CandidateFix{{Title: "no payload", Kind: fix.KindEdit}, fix.NewCommand("ok", "cmd")}, nil
	}}
	d := newDispatcher(t, nil, []entry{{code: "c", ids: []fix.ProviderID{"bad"}}}, bad)

	fixes := d.ResolveOne(context.Background(), diag("c", 1, 0, 1, 1), fix.Context{})
	assert.Equal(t, []string{"ok"}, titles(fixes))
	assert.Equal(t, 0, fixes[0].Priority)
}

func TestResolveStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	first := fix.ProviderFunc{Name: "first", Fn: func(context.Context, diagnostic.Diagnostic, fix.Context) ([]fix.CandidateFix, error) {
		cancel()
		return []fix.CandidateFix{fix.NewCommand("first", "cmd")}, nil
	}}
	d := newDispatcher(t, nil, []entry{{code: "c", ids: []fix.ProviderID{"first", "second"}}}, first, titled("second", "second"))

	fixes := d.ResolveOne(ctx, diag("c", 1, 0, 1, 1), fix.Context{})
	assert.Equal(t, []string{"first"}, titles(fixes))
}
