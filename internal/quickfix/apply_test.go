package quickfix

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/liberty-tools/liberty-lsp/internal/diagnostic"
	"github.com/liberty-tools/liberty-lsp/internal/fix"
	"github.com/liberty-tools/liberty-lsp/internal/lsp/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixedSource = `package demo;

public class Greeter {
    @Inject
    private Service service;
}
`

// fetchRef fetches the fixes of d and returns a reference to fix index
func fetchRef(t *testing.T, env *testEnv, d diagnostic.Diagnostic, index int) Ref {
	t.Helper()
	fixes := env.exec.FetchFixes(context.Background(), greeterURI, d)
	require.Greater(t, len(fixes), index)
	sess, ok := env.sessions.Get(greeterURI)
	require.True(t, ok)
	return NewRef(sess.Current().ID(), d.Identity(), index)
}

func TestRefEncoding(t *testing.T) {
	ref := NewRef(42, injectFinal().Identity(), 1)

	token, err := ref.Encode()
	require.NoError(t, err)
	assert.NotContains(t, token, "=")
	assert.NotContains(t, token, "/")

	decoded, err := DecodeRef(token)
	require.NoError(t, err)
	assert.Equal(t, ref, decoded)
	assert.Equal(t, injectFinal().Identity(), decoded.Identity())

	for _, bad := range []string{"", "!!!", "AAAA"} {
		_, err := DecodeRef(bad)
		assert.Error(t, err, bad)
	}
}

func TestApplyEditFix(t *testing.T) {
	env := newEnv(t, func(opts *Options) {
		opts.Dispatcher = localDispatcher(t, removeFinal())
	})
	env.publish(t, injectFinal())
	ref := fetchRef(t, env, injectFinal(), 0)

	result := env.exec.ApplyFix(context.Background(), ref)
	require.Equal(t, StatusApplied, result.Status, result.Err)

	snap, ok := env.docs.Get(greeterURI)
	require.True(t, ok)
	assert.Equal(t, fixedSource, string(snap.Text))
	assert.Equal(t, 2, snap.Version)

	sess, _ := env.sessions.Get(greeterURI)
	assert.NotEqual(t, ref.Generation, sess.Current().ID())
	assert.Empty(t, sess.Current().Diagnostics(), "the fixed diagnostic is invalidated")
}

// republishingApplier applies edits and then lets the analysis server
// publish a newer generation before the apply returns
type republishingApplier struct {
	DocumentApplier
	publish func()
}

func (a republishingApplier) ApplyWorkspaceEdit(ctx context.Context, label string, edit protocol.WorkspaceEdit) error {
	if err := a.DocumentApplier.ApplyWorkspaceEdit(ctx, label, edit); err != nil {
		return err
	}
	a.publish()
	return nil
}

func TestApplyKeepsGenerationPublishedDuringApply(t *testing.T) {
	fresh := diagnostic.Diagnostic{
		URI:      greeterURI,
		Code:     "inject-static",
		Range:    span(4, 4, 4, 30),
		Severity: protocol.DiagnosticSeverityError,
	}

	var env *testEnv
	env = newEnv(t, func(opts *Options) {
		opts.Dispatcher = localDispatcher(t, removeFinal())
		opts.Applier = republishingApplier{
			DocumentApplier: DocumentApplier{Documents: opts.Documents},
			publish: func() {
				_, err := env.sessions.Open(greeterURI).ReplaceDiagnostics(context.Background(), 2, []diagnostic.Diagnostic{fresh})
				require.NoError(t, err)
			},
		}
	})
	env.publish(t, injectFinal())
	ref := fetchRef(t, env, injectFinal(), 0)

	result := env.exec.ApplyFix(context.Background(), ref)
	require.Equal(t, StatusApplied, result.Status, result.Err)

	sess, ok := env.sessions.Get(greeterURI)
	require.True(t, ok)
	current := sess.Current()
	assert.False(t, current.Superseded())
	assert.Equal(t, 2, current.Version())
	assert.Equal(t, []diagnostic.Diagnostic{fresh}, current.Diagnostics())
}

func TestApplyDropsStaleFixes(t *testing.T) {
	env := newEnv(t, func(opts *Options) {
		opts.Dispatcher = localDispatcher(t, removeFinal())
	})

	t.Run("superseded generation", func(t *testing.T) {
		env.publish(t, injectFinal())
		ref := fetchRef(t, env, injectFinal(), 0)
		env.publish(t, injectFinal())

		result := env.exec.ApplyFix(context.Background(), ref)
		assert.Equal(t, StatusDropped, result.Status)
		assert.Empty(t, result.Message)

		snap, _ := env.docs.Get(greeterURI)
		assert.Equal(t, greeterSource, string(snap.Text))
	})

	t.Run("document edited since fetch", func(t *testing.T) {
		env.publish(t, injectFinal())
		ref := fetchRef(t, env, injectFinal(), 0)
		env.docs.Update(greeterURI, 7, greeterSource)

		result := env.exec.ApplyFix(context.Background(), ref)
		assert.Equal(t, StatusDropped, result.Status)

		snap, _ := env.docs.Get(greeterURI)
		assert.Equal(t, 7, snap.Version)
		assert.Equal(t, greeterSource, string(snap.Text))
	})

	t.Run("closed document", func(t *testing.T) {
		env.publish(t, injectFinal())
		ref := fetchRef(t, env, injectFinal(), 0)
		env.sessions.Close(context.Background(), greeterURI)

		assert.Equal(t, StatusDropped, env.exec.ApplyFix(context.Background(), ref).Status)
	})
}

func TestApplyUnknownFix(t *testing.T) {
	env := newEnv(t, nil)
	gen := env.publish(t, injectFinal())

	result := env.exec.ApplyFix(context.Background(), NewRef(gen.ID(), injectFinal().Identity(), 0))
	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, FailureMessage, result.Message)
	assert.ErrorIs(t, result.Err, ErrUnknownFix)
}

func TestApplyCommandFix(t *testing.T) {
	env := newEnv(t, nil)
	args := json.RawMessage(`{"uri":"file:///demo/Greeter.java"}`)
	env.server.respond = func(ctx context.Context, params protocol.CodeActionParams) ([]protocol.CodeActionOrCommand, error) {
		return []protocol.CodeActionOrCommand{
			{Command: &protocol.Command{Title: "Add servlet mapping", Command: "jakarta.addMapping", Arguments: []json.RawMessage{args}}},
		}, nil
	}
	env.publish(t, injectFinal())
	ref := fetchRef(t, env, injectFinal(), 0)

	result := env.exec.ApplyFix(context.Background(), ref)
	require.Equal(t, StatusExecuted, result.Status, result.Err)
	require.Len(t, env.server.commands, 1)
	assert.Equal(t, "jakarta.addMapping", env.server.commands[0].Command)
	assert.JSONEq(t, string(args), string(env.server.commands[0].Arguments[0]))

	snap, _ := env.docs.Get(greeterURI)
	assert.Equal(t, 1, snap.Version, "commands do not touch the document")
}

func TestApplyCommandFailure(t *testing.T) {
	env := newEnv(t, nil)
	env.server.respond = func(ctx context.Context, params protocol.CodeActionParams) ([]protocol.CodeActionOrCommand, error) {
		return []protocol.CodeActionOrCommand{
			{Command: &protocol.Command{Title: "Add servlet mapping", Command: "jakarta.addMapping"}},
		}, nil
	}
	env.server.execute = func(protocol.ExecuteCommandParams) error {
		return errors.New("command rejected")
	}
	env.publish(t, injectFinal())
	ref := fetchRef(t, env, injectFinal(), 0)

	result := env.exec.ApplyFix(context.Background(), ref)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, "fix could not be applied", result.Message)
	assert.Error(t, result.Err)
}

func TestApplyCommandWithoutRemote(t *testing.T) {
	env := newEnv(t, nil)
	env.server.respond = func(ctx context.Context, params protocol.CodeActionParams) ([]protocol.CodeActionOrCommand, error) {
		return []protocol.CodeActionOrCommand{
			{Command: &protocol.Command{Title: "Add servlet mapping", Command: "jakarta.addMapping"}},
		}, nil
	}
	env.publish(t, injectFinal())
	ref := fetchRef(t, env, injectFinal(), 0)
	env.exec.SetServer(nil)

	result := env.exec.ApplyFix(context.Background(), ref)
	assert.Equal(t, StatusFailed, result.Status)
	assert.ErrorIs(t, result.Err, ErrNoRemote)
}

func TestApplyDeferredCodeAction(t *testing.T) {
	resolvedEdit := &protocol.WorkspaceEdit{Changes: map[string][]protocol.TextEdit{
		greeterURI: {{Range: span(4, 12, 4, 18)}},
	}}

	t.Run("second code action request", func(t *testing.T) {
		env := newEnv(t, nil)
		env.server.respond = func(ctx context.Context, params protocol.CodeActionParams) ([]protocol.CodeActionOrCommand, error) {
			if params.Context.TriggerKind == protocol.CodeActionTriggerInvoked {
				return []protocol.CodeActionOrCommand{
					quickfixAction("Make field non final", nil),
					quickfixAction("Remove the 'final' modifier", resolvedEdit),
				}, nil
			}
			return []protocol.CodeActionOrCommand{quickfixAction("Remove the 'final' modifier", nil)}, nil
		}
		env.publish(t, injectFinal())
		ref := fetchRef(t, env, injectFinal(), 0)

		result := env.exec.ApplyFix(context.Background(), ref)
		require.Equal(t, StatusApplied, result.Status, result.Err)

		require.Equal(t, 2, env.server.requestCount())
		second := env.server.requests[1]
		assert.Equal(t, []protocol.CodeActionKind{protocol.CodeActionQuickFix}, second.Context.Only)
		assert.Equal(t, injectFinal().Range, second.Range)

		snap, _ := env.docs.Get(greeterURI)
		assert.Equal(t, fixedSource, string(snap.Text))
	})

	t.Run("codeAction/resolve", func(t *testing.T) {
		env := newEnv(t, nil)
		env.server.supportsResolve = true
		env.server.respond = func(ctx context.Context, params protocol.CodeActionParams) ([]protocol.CodeActionOrCommand, error) {
			return []protocol.CodeActionOrCommand{{CodeAction: &protocol.CodeAction{
				Title: "Remove the 'final' modifier",
				Kind:  protocol.CodeActionQuickFix,
				Data:  json.RawMessage(`{"id":7}`),
			}}}, nil
		}
		env.server.resolve = func(action protocol.CodeAction) (*protocol.CodeAction, error) {
			action.Edit = resolvedEdit
			return &action, nil
		}
		env.publish(t, injectFinal())
		ref := fetchRef(t, env, injectFinal(), 0)

		result := env.exec.ApplyFix(context.Background(), ref)
		require.Equal(t, StatusApplied, result.Status, result.Err)
		assert.Equal(t, 1, env.server.requestCount())
		require.Len(t, env.server.resolves, 1)
		assert.JSONEq(t, `{"id":7}`, string(env.server.resolves[0].Data))
	})

	t.Run("unmatched title", func(t *testing.T) {
		env := newEnv(t, nil)
		env.server.respond = func(ctx context.Context, params protocol.CodeActionParams) ([]protocol.CodeActionOrCommand, error) {
			if params.Context.TriggerKind == protocol.CodeActionTriggerInvoked {
				return nil, nil
			}
			return []protocol.CodeActionOrCommand{quickfixAction("Remove the 'final' modifier", nil)}, nil
		}
		env.publish(t, injectFinal())
		ref := fetchRef(t, env, injectFinal(), 0)

		result := env.exec.ApplyFix(context.Background(), ref)
		assert.Equal(t, StatusFailed, result.Status)
		assert.ErrorIs(t, result.Err, ErrUnknownFix)
	})
}

func TestResolveActionIsCached(t *testing.T) {
	env := newEnv(t, nil)
	env.server.supportsResolve = true
	env.server.resolve = func(action protocol.CodeAction) (*protocol.CodeAction, error) {
		action.Command = &protocol.Command{Title: action.Title, Command: "jakarta.apply"}
		return &action, nil
	}
	gen := env.publish(t, injectFinal())
	action := &protocol.CodeAction{Title: "Add beans.xml", Kind: protocol.CodeActionQuickFix}

	first, err := env.exec.resolveAction(context.Background(), env.server, gen, injectFinal(), action)
	require.NoError(t, err)
	second, err := env.exec.resolveAction(context.Background(), env.server, gen, injectFinal(), action)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Len(t, env.server.resolves, 1)
}

func TestFixFromActionVariants(t *testing.T) {
	version := 3
	other := "file:///demo/Other.java"
	tests := []struct {
		name   string
		action *protocol.CodeAction
		kind   fix.Kind
	}{
		{
			name: "edit of the document",
			action: &protocol.CodeAction{Title: "a", Edit: &protocol.WorkspaceEdit{
				Changes: map[string][]protocol.TextEdit{greeterURI: {{NewText: "x"}}},
			}},
			kind: fix.KindEdit,
		},
		{
			name: "edit of another document",
			action: &protocol.CodeAction{Title: "b", Edit: &protocol.WorkspaceEdit{
				Changes: map[string][]protocol.TextEdit{other: {{NewText: "x"}}},
			}},
			kind: fix.KindCommand,
		},
		{
			name:   "deferred edit",
			action: &protocol.CodeAction{Title: "c"},
			kind:   fix.KindCommand,
		},
		{
			name: "edit and command",
			action: &protocol.CodeAction{Title: "d",
				Edit:    &protocol.WorkspaceEdit{Changes: map[string][]protocol.TextEdit{greeterURI: {{NewText: "x"}}}},
				Command: &protocol.Command{Command: "jakarta.refresh"},
			},
			kind: fix.KindCommand,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := fixFromAction(greeterURI, &version, tt.action)
			assert.Equal(t, tt.kind, f.Kind)
			assert.True(t, f.Valid())
			if f.Kind == fix.KindEdit {
				assert.Equal(t, 3, *f.Edit.Version)
			} else {
				assert.Same(t, tt.action, f.Command.Action)
			}
		})
	}
}
