package lsp

import (
	"context"
	"errors"

	"github.com/liberty-tools/liberty-lsp/internal/diagnostic"
	"github.com/liberty-tools/liberty-lsp/internal/javaast"
	"github.com/liberty-tools/liberty-lsp/internal/lsp/protocol"
	"github.com/liberty-tools/liberty-lsp/internal/quickfix"
	"github.com/liberty-tools/liberty-lsp/internal/session"
	"go.uber.org/zap"
)

// Remote is the analysis server as the editor server uses it
type Remote interface {
	quickfix.Server
	Initialize(ctx context.Context, params protocol.InitializeParams) (*protocol.InitializeResult, error)
	DidOpen(ctx context.Context, params protocol.DidOpenTextDocumentParams) error
	DidChange(ctx context.Context, params protocol.DidChangeTextDocumentParams) error
	DidClose(ctx context.Context, params protocol.DidCloseTextDocumentParams) error
	Shutdown(ctx context.Context) error
}

// PublishDiagnostics starts a new generation for the document and prefetches
// its fixes in the background. Diagnostics of documents the editor has not
// opened are dropped, didOpen creates the session.
func (s *Server) PublishDiagnostics(ctx context.Context, params protocol.PublishDiagnosticsParams) {
	uri := params.URI
	sess, ok := s.sessions.Get(uri)
	if !ok {
		s.logger.Debug("ignoring diagnostics of unopened document", zap.String("uri", uri))
		return
	}

	version := 0
	if params.Version != nil {
		version = *params.Version
	} else if snap, ok := s.documents.Get(uri); ok {
		version = snap.Version
	}

	if _, err := sess.ReplaceDiagnostics(ctx, version, diagnostic.FromProtocolList(uri, params.Diagnostics)); err != nil {
		if !errors.Is(err, session.ErrClosed) {
			s.logger.Warn("failed to replace diagnostics", zap.String("uri", uri), zap.Error(err))
		}
		return
	}

	s.goBackground(func(ctx context.Context) {
		s.executor.Prefetch(ctx, uri)
	})
}

// ApplyEdit applies an edit the remote server computed, usually while
// executing a command
func (s *Server) ApplyEdit(ctx context.Context, params protocol.ApplyWorkspaceEditParams) (protocol.ApplyWorkspaceEditResult, error) {
	if err := (editorApplier{s}).ApplyWorkspaceEdit(ctx, params.Label, params.Edit); err != nil {
		s.logger.Warn("failed to apply remote edit", zap.String("label", params.Label), zap.Error(err))
		return protocol.ApplyWorkspaceEditResult{Applied: false, FailureReason: err.Error()}, nil
	}
	return protocol.ApplyWorkspaceEditResult{Applied: true}, nil
}

// CursorContext classifies a cursor position of an open document
func (s *Server) CursorContext(ctx context.Context, params protocol.JavaCursorContextParams) (protocol.JavaCursorContextResult, error) {
	snap, ok := s.documents.Get(params.URI)
	if !ok {
		return protocol.JavaCursorContextResult{Kind: int(javaast.CursorInEmptyFile)}, nil
	}
	kind, prefix := javaast.ClassifyCursor(ctx, snap, params.Position)
	return protocol.JavaCursorContextResult{Kind: int(kind), Prefix: prefix}, nil
}

// LogMessage forwards a remote log message to the editor
func (s *Server) LogMessage(ctx context.Context, params protocol.LogMessageParams) {
	s.logger.Debug("remote log", zap.Int("type", int(params.Type)), zap.String("message", params.Message))
	if err := s.notify(ctx, "window/logMessage", params); err != nil {
		s.logger.Debug("failed to forward log message", zap.Error(err))
	}
}
