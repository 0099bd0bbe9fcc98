package lsp

import (
	"context"

	"github.com/liberty-tools/liberty-lsp/internal/lsp/protocol"
	"go.uber.org/zap"
)

// didOpen mirrors the document, opens its session and forwards the open
func (s *Server) didOpen(ctx context.Context, params protocol.DidOpenTextDocumentParams) error {
	doc := params.TextDocument
	s.documents.Open(doc.URI, doc.LanguageID, doc.Version, doc.Text)
	s.sessions.Open(doc.URI)

	if r := s.remoteServer(); r != nil {
		return r.DidOpen(ctx, params)
	}
	return nil
}

// didChange replaces the mirrored text. Only full sync is announced, so the
// last change carries the whole document.
func (s *Server) didChange(ctx context.Context, params protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) > 0 {
		uri := params.TextDocument.URI
		if _, ok := s.documents.Get(uri); !ok {
			s.logger.Debug("change for unopened document", zap.String("uri", uri))
		}
		text := params.ContentChanges[len(params.ContentChanges)-1].Text
		s.documents.Update(uri, params.TextDocument.Version, text)
	}

	if r := s.remoteServer(); r != nil {
		return r.DidChange(ctx, params)
	}
	return nil
}

// didClose clears the markers of the document and forgets it
func (s *Server) didClose(ctx context.Context, params protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.sessions.Close(ctx, uri)
	s.documents.Close(uri)

	if r := s.remoteServer(); r != nil {
		return r.DidClose(ctx, params)
	}
	return nil
}
