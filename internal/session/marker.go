package session

import (
	"context"

	"github.com/liberty-tools/liberty-lsp/internal/diagnostic"
	"github.com/liberty-tools/liberty-lsp/internal/document"
	"github.com/liberty-tools/liberty-lsp/internal/lsp/protocol"
)

// MarkerKey addresses the markers one language server rendered in one document
type MarkerKey struct {
	URI              string
	LanguageServerID string
}

// Marker is the rendered form of one diagnostic
type Marker struct {
	Identity diagnostic.Identity
	Range    protocol.Range
	Severity protocol.DiagnosticSeverity
	Message  string
	// Diagnostic is the wire diagnostic with the rendered range and severity
	Diagnostic protocol.Diagnostic
}

// MarkerRenderer draws markers in the editor. RenderMarkers replaces every
// marker previously rendered for the key.
type MarkerRenderer interface {
	RenderMarkers(ctx context.Context, key MarkerKey, markers []Marker) error
	ClearMarkers(ctx context.Context, key MarkerKey) error
}

// DocumentSource gives access to the current text of open documents
type DocumentSource interface {
	Get(uri string) (*document.Snapshot, bool)
}

// newMarker renders a diagnostic. A missing severity is shown as an error
// and the end is clamped to the end of the document.
func newMarker(d diagnostic.Diagnostic, snap *document.Snapshot) Marker {
	r := d.Range
	if snap != nil && r.Valid() {
		r = snap.ClampRange(r)
	}
	severity := d.Severity
	if severity == 0 {
		severity = protocol.DiagnosticSeverityError
	}

	wire := d.Protocol()
	wire.Range = r
	wire.Severity = severity

	return Marker{
		Identity:   d.Identity(),
		Range:      r,
		Severity:   severity,
		Message:    d.Message,
		Diagnostic: wire,
	}
}

type nopRenderer struct{}

func (nopRenderer) RenderMarkers(context.Context, MarkerKey, []Marker) error { return nil }

func (nopRenderer) ClearMarkers(context.Context, MarkerKey) error { return nil }

type noDocuments struct{}

func (noDocuments) Get(string) (*document.Snapshot, bool) { return nil, false }
