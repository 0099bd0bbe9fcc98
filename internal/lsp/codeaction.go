package lsp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/liberty-tools/liberty-lsp/internal/lsp/protocol"
	"github.com/liberty-tools/liberty-lsp/internal/quickfix"
	"github.com/sourcegraph/jsonrpc2"
	"go.uber.org/zap"
)

// ApplyFixCommand applies a fix offered by codeAction. Its only argument is
// the encoded fix reference.
const ApplyFixCommand = "liberty.applyFix"

// codeAction offers the fixes of the current diagnostics touching the
// requested range. Fixes are fetched, or served from the generation cache,
// and each action carries a reference back to the cached fix.
func (s *Server) codeAction(ctx context.Context, params protocol.CodeActionParams) ([]protocol.CodeActionOrCommand, error) {
	actions := []protocol.CodeActionOrCommand{}
	if !wantsQuickFix(params.Context.Only) {
		return actions, nil
	}

	uri := params.TextDocument.URI
	sess, ok := s.sessions.Get(uri)
	if !ok {
		return actions, nil
	}
	gen := sess.Current()

	for _, d := range gen.Diagnostics() {
		if !d.Actionable() || !d.Range.Intersects(params.Range) {
			continue
		}
		for i, f := range s.executor.FetchFixes(ctx, uri, d) {
			token, err := quickfix.NewRef(gen.ID(), d.Identity(), i).Encode()
			if err != nil {
				return nil, err
			}
			arg, err := json.Marshal(token)
			if err != nil {
				return nil, err
			}
			actions = append(actions, protocol.CodeActionOrCommand{CodeAction: &protocol.CodeAction{
				Title:       f.Title,
				Kind:        protocol.CodeActionQuickFix,
				Diagnostics: []protocol.Diagnostic{d.Protocol()},
				IsPreferred: f.Preferred,
				Command: &protocol.Command{
					Title:     f.Title,
					Command:   ApplyFixCommand,
					Arguments: []json.RawMessage{arg},
				},
			}})
		}
	}
	return actions, nil
}

// wantsQuickFix reports whether an only filter admits quick fixes
func wantsQuickFix(only []protocol.CodeActionKind) bool {
	if len(only) == 0 {
		return true
	}
	for _, kind := range only {
		if kind == "" || kind == protocol.CodeActionQuickFix || strings.HasPrefix(string(protocol.CodeActionQuickFix), string(kind)+".") {
			return true
		}
	}
	return false
}

// executeCommand applies fixes and forwards every other command to the
// remote server
func (s *Server) executeCommand(ctx context.Context, params protocol.ExecuteCommandParams) (interface{}, error) {
	if params.Command != ApplyFixCommand {
		r := s.remoteServer()
		if r == nil {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "unknown command: " + params.Command}
		}
		return r.ExecuteCommand(ctx, params)
	}

	if len(params.Arguments) != 1 {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: ApplyFixCommand + " takes one argument"}
	}
	var token string
	if err := json.Unmarshal(params.Arguments[0], &token); err != nil {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
	}
	ref, err := quickfix.DecodeRef(token)
	if err != nil {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
	}

	result := s.executor.ApplyFix(ctx, ref)
	if result.Status == quickfix.StatusFailed {
		if err := s.showMessage(ctx, protocol.MessageTypeError, result.Message); err != nil {
			s.logger.Warn("failed to show message", zap.Error(err))
		}
	}
	return nil, nil
}
