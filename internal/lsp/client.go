package lsp

import (
	"context"
	"errors"
	"fmt"

	"github.com/liberty-tools/liberty-lsp/internal/document"
	"github.com/liberty-tools/liberty-lsp/internal/lsp/protocol"
	"github.com/liberty-tools/liberty-lsp/internal/session"
	"go.uber.org/zap"
)

func (s *Server) notify(ctx context.Context, method string, params interface{}) error {
	conn := s.conn.Load()
	if conn == nil {
		return errEditorNotConnected
	}
	return conn.Notify(ctx, method, params)
}

func (s *Server) call(ctx context.Context, method string, params, result interface{}) error {
	conn := s.conn.Load()
	if conn == nil {
		return errEditorNotConnected
	}
	return conn.Call(ctx, method, params, result)
}

func (s *Server) showMessage(ctx context.Context, typ protocol.MessageType, message string) error {
	return s.notify(ctx, "window/showMessage", protocol.ShowMessageParams{Type: typ, Message: message})
}

// markerRenderer publishes session markers as editor diagnostics
type markerRenderer struct {
	s *Server
}

func (r markerRenderer) RenderMarkers(ctx context.Context, key session.MarkerKey, markers []session.Marker) error {
	diags := make([]protocol.Diagnostic, 0, len(markers))
	for _, m := range markers {
		d := m.Diagnostic
		if d.Source == "" {
			d.Source = key.LanguageServerID
		}
		diags = append(diags, d)
	}
	return r.s.notify(ctx, "textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
		URI:         key.URI,
		Diagnostics: diags,
	})
}

func (r markerRenderer) ClearMarkers(ctx context.Context, key session.MarkerKey) error {
	return r.s.notify(ctx, "textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
		URI:         key.URI,
		Diagnostics: []protocol.Diagnostic{},
	})
}

// editorApplier applies workspace edits through the editor. Edits of open
// documents are checked against the mirror first so a stale or conflicting
// edit never reaches the editor. Once the editor accepted the edit the mirror
// is patched too, unless the editor already synced the change.
type editorApplier struct {
	s *Server
}

func (a editorApplier) ApplyWorkspaceEdit(ctx context.Context, label string, edit protocol.WorkspaceEdit) error {
	checked := make(map[string]int)
	for _, uri := range edit.URIs() {
		snap, ok := a.s.documents.Get(uri)
		if !ok {
			continue
		}
		edits, version := edit.EditsFor(uri)
		if version != nil && *version != snap.Version {
			return fmt.Errorf("failed to apply %q to %s at version %d, current is %d: %w",
				label, uri, *version, snap.Version, document.ErrVersionMismatch)
		}
		if _, err := snap.Apply(edits); err != nil {
			return fmt.Errorf("failed to apply %q to %s: %w", label, uri, err)
		}
		checked[uri] = snap.Version
	}

	var result protocol.ApplyWorkspaceEditResult
	if err := a.s.call(ctx, "workspace/applyEdit", protocol.ApplyWorkspaceEditParams{Label: label, Edit: edit}, &result); err != nil {
		return fmt.Errorf("failed to send %q to the editor: %w", label, err)
	}
	if !result.Applied {
		return fmt.Errorf("editor rejected %q: %s", label, result.FailureReason)
	}

	// patch only the version that was checked, a didChange may have
	// delivered the edited text already
	for uri, version := range checked {
		edits, _ := edit.EditsFor(uri)
		_, err := a.s.documents.ApplyEdits(ctx, uri, &version, edits)
		switch {
		case errors.Is(err, document.ErrVersionMismatch), errors.Is(err, document.ErrNotOpen):
			a.s.logger.Debug("mirror already synced by the editor", zap.String("uri", uri))
		case err != nil:
			a.s.logger.Warn("failed to mirror applied edit", zap.String("uri", uri), zap.Error(err))
		}
	}
	return nil
}
