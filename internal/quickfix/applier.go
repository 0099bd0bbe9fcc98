package quickfix

import (
	"context"
	"fmt"

	"github.com/liberty-tools/liberty-lsp/internal/document"
	"github.com/liberty-tools/liberty-lsp/internal/lsp/protocol"
)

// DocumentApplier applies workspace edits to the in-process document
// mirror. Each document is patched atomically.
type DocumentApplier struct {
	Documents *document.Manager
}

// ApplyWorkspaceEdit patches every document touched by edit
func (a DocumentApplier) ApplyWorkspaceEdit(ctx context.Context, label string, edit protocol.WorkspaceEdit) error {
	for _, uri := range edit.URIs() {
		edits, version := edit.EditsFor(uri)
		if _, err := a.Documents.ApplyEdits(ctx, uri, version, edits); err != nil {
			return fmt.Errorf("failed to apply %q: %w", label, err)
		}
	}
	return nil
}
