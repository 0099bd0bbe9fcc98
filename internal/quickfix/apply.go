package quickfix

import (
	"context"
	"errors"
	"fmt"

	"github.com/liberty-tools/liberty-lsp/internal/diagnostic"
	"github.com/liberty-tools/liberty-lsp/internal/document"
	"github.com/liberty-tools/liberty-lsp/internal/fix"
	"github.com/liberty-tools/liberty-lsp/internal/lsp/protocol"
	"github.com/liberty-tools/liberty-lsp/internal/session"
	"go.uber.org/zap"
)

// FailureMessage is shown to the user when a fix cannot be applied
const FailureMessage = "fix could not be applied"

// Status is the outcome of an apply
type Status int

const (
	// StatusApplied means an edit was applied to the document
	StatusApplied Status = iota + 1
	// StatusExecuted means a command ran on the remote server
	StatusExecuted
	// StatusFailed means the fix could not be applied and the user is told
	StatusFailed
	// StatusDropped means the fix belonged to a superseded generation
	StatusDropped
)

func (s Status) String() string {
	switch s {
	case StatusApplied:
		return "applied"
	case StatusExecuted:
		return "executed"
	case StatusFailed:
		return "failed"
	case StatusDropped:
		return "dropped"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ApplyResult reports what ApplyFix did
type ApplyResult struct {
	Status Status
	// Message is set for StatusFailed
	Message string
	Err     error
}

func failed(err error) ApplyResult {
	return ApplyResult{Status: StatusFailed, Message: FailureMessage, Err: err}
}

// ApplyFix applies a cached fix. Fixes of a superseded generation or of a
// document edited since the fix was computed are dropped without a message.
// The apply context is cancelled when the generation is superseded.
func (e *Executor) ApplyFix(ctx context.Context, ref Ref) ApplyResult {
	logger := e.logger.With(zap.String("uri", ref.URI), zap.Uint64("generation", ref.Generation))

	sess, ok := e.sessions.Get(ref.URI)
	if !ok {
		logger.Debug("dropping fix of closed document")
		return ApplyResult{Status: StatusDropped}
	}
	gen := sess.Current()
	if gen.ID() != ref.Generation {
		logger.Debug("dropping fix of superseded generation", zap.Uint64("current", gen.ID()))
		return ApplyResult{Status: StatusDropped}
	}

	id := ref.Identity()
	d, ok := gen.Lookup(id)
	fixes, cached := gen.CachedFixes(id)
	if !ok || !cached || ref.Index < 0 || ref.Index >= len(fixes) {
		logger.Warn("fix reference not found", zap.String("diagnostic", id.String()), zap.Int("index", ref.Index))
		return failed(fmt.Errorf("failed to apply fix %d of %s: %w", ref.Index, id, ErrUnknownFix))
	}
	f := fixes[ref.Index]

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(gen.Context(), cancel)
	defer stop()

	var (
		status Status
		edited []protocol.Range
		err    error
	)
	switch f.Kind {
	case fix.KindEdit:
		status, edited, err = StatusApplied, rangesOf(f.Edit.Edits), e.applyDocumentEdit(ctx, f.Title, f.Edit)
	case fix.KindCommand:
		status, edited, err = e.applyCommand(ctx, gen, d, f)
	default:
		err = fmt.Errorf("failed to apply fix %q: unknown kind %s", f.Title, f.Kind)
	}

	if err != nil {
		if gen.Superseded() || errors.Is(err, document.ErrVersionMismatch) {
			logger.Debug("dropping stale fix", zap.String("title", f.Title), zap.Error(err))
			return ApplyResult{Status: StatusDropped}
		}
		logger.Warn("failed to apply fix", zap.String("title", f.Title), zap.Error(err))
		return failed(err)
	}

	if len(edited) > 0 {
		_, err := sess.InvalidateRanges(ctx, gen, edited)
		switch {
		case errors.Is(err, session.ErrSuperseded):
			logger.Debug("generation superseded during apply, keeping the newer diagnostics")
		case err != nil && !errors.Is(err, session.ErrClosed):
			logger.Warn("failed to invalidate edited ranges", zap.Error(err))
		}
	}
	logger.Debug("fix applied", zap.String("title", f.Title), zap.Stringer("status", status))
	return ApplyResult{Status: status}
}

func rangesOf(edits []protocol.TextEdit) []protocol.Range {
	ranges := make([]protocol.Range, 0, len(edits))
	for _, edit := range edits {
		ranges = append(ranges, edit.Range)
	}
	return ranges
}

func (e *Executor) applyDocumentEdit(ctx context.Context, label string, edit *fix.DocumentEdit) error {
	if e.applier == nil {
		return errors.New("no edit applier configured")
	}
	return e.applier.ApplyWorkspaceEdit(ctx, label, protocol.WorkspaceEdit{
		DocumentChanges: []protocol.DocumentChange{{
			TextDocument: protocol.OptionalVersionedTextDocumentIdentifier{URI: edit.URI, Version: edit.Version},
			Edits:        edit.Edits,
		}},
	})
}

func (e *Executor) applyCommand(ctx context.Context, gen *session.Generation, d diagnostic.Diagnostic, f fix.CandidateFix) (Status, []protocol.Range, error) {
	server := e.remote()
	if server == nil {
		return StatusFailed, nil, fmt.Errorf("failed to run %q: %w", f.Title, ErrNoRemote)
	}

	if f.Command.Action == nil {
		_, err := server.ExecuteCommand(ctx, protocol.ExecuteCommandParams{
			Command:   f.Command.Name,
			Arguments: f.Command.Arguments,
		})
		if err != nil {
			return StatusFailed, nil, fmt.Errorf("failed to execute %s: %w", f.Command.Name, err)
		}
		return StatusExecuted, nil, nil
	}

	action, err := e.resolveAction(ctx, server, gen, d, f.Command.Action)
	if err != nil {
		return StatusFailed, nil, err
	}

	status := StatusExecuted
	var edited []protocol.Range
	if action.Edit != nil {
		if e.applier == nil {
			return StatusFailed, nil, errors.New("no edit applier configured")
		}
		if err := e.applier.ApplyWorkspaceEdit(ctx, action.Title, *action.Edit); err != nil {
			return StatusFailed, nil, err
		}
		edits, _ := action.Edit.EditsFor(d.URI)
		edited = rangesOf(edits)
		status = StatusApplied
	}
	if action.Command != nil {
		_, err := server.ExecuteCommand(ctx, protocol.ExecuteCommandParams{
			Command:   action.Command.Command,
			Arguments: action.Command.Arguments,
		})
		if err != nil {
			return StatusFailed, edited, fmt.Errorf("failed to execute %s: %w", action.Command.Command, err)
		}
	}
	return status, edited, nil
}

// resolveAction computes the edit of a code action offered without one.
// Resolved actions are cached per generation and diagnostic.
func (e *Executor) resolveAction(ctx context.Context, server Server, gen *session.Generation, d diagnostic.Diagnostic, action *protocol.CodeAction) (*protocol.CodeAction, error) {
	if action.Edit != nil {
		return action, nil
	}

	key := fmt.Sprintf("%d|%s|%s", gen.ID(), d.Identity(), action.Title)
	if resolved, ok := e.resolved.Get(key); ok {
		return resolved, nil
	}

	var resolved *protocol.CodeAction
	if server.SupportsResolve() {
		result, err := server.ResolveCodeAction(ctx, *action)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %q: %w", action.Title, err)
		}
		resolved = result
	} else {
		actions, err := server.CodeAction(ctx, protocol.CodeActionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: d.URI},
			Range:        d.Range,
			Context: protocol.CodeActionContext{
				Diagnostics: []protocol.Diagnostic{d.Protocol()},
				Only:        []protocol.CodeActionKind{protocol.CodeActionQuickFix},
				TriggerKind: protocol.CodeActionTriggerInvoked,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %q: %w", action.Title, err)
		}
		for _, item := range actions {
			if item.CodeAction != nil && item.CodeAction.Title == action.Title {
				resolved = item.CodeAction
				break
			}
		}
	}
	if resolved == nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", action.Title, ErrUnknownFix)
	}

	e.resolved.Add(key, resolved)
	return resolved, nil
}
