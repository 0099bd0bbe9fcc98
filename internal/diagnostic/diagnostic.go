package diagnostic

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/liberty-tools/liberty-lsp/internal/lsp/protocol"
)

// Code identifies a rule violation. It is the only join key between the
// analysis producer and fix lookup.
type Code string

// Diagnostic is a reported rule violation in one document
type Diagnostic struct {
	URI      string
	Code     Code
	Range    protocol.Range
	Severity protocol.DiagnosticSeverity
	Message  string
	Source   string
	Data     json.RawMessage
	// Wire is the diagnostic exactly as it was received
	Wire protocol.Diagnostic
}

// Identity is the cache key of a diagnostic. Diagnostics are received again on
// every analysis pass, so identity is structural rather than object identity.
type Identity struct {
	URI   string
	Code  Code
	Range protocol.Range
}

// String renders the identity as uri#code@l:c-l:c
func (id Identity) String() string {
	return fmt.Sprintf("%s#%s@%d:%d-%d:%d", id.URI, id.Code,
		id.Range.Start.Line, id.Range.Start.Character,
		id.Range.End.Line, id.Range.End.Character)
}

// FromProtocol converts a wire diagnostic published for uri
func FromProtocol(uri string, d protocol.Diagnostic) Diagnostic {
	return Diagnostic{
		URI:      uri,
		Code:     CodeOf(d.Code),
		Range:    d.Range,
		Severity: d.Severity,
		Message:  d.Message,
		Source:   d.Source,
		Data:     d.Data,
		Wire:     d,
	}
}

// FromProtocolList converts every diagnostic of a publishDiagnostics batch
func FromProtocolList(uri string, list []protocol.Diagnostic) []Diagnostic {
	result := make([]Diagnostic, 0, len(list))
	for _, d := range list {
		result = append(result, FromProtocol(uri, d))
	}
	return result
}

// CodeOf normalizes a wire code. Numbers are formatted in decimal, anything
// that is neither a string nor a number yields the empty code.
func CodeOf(raw interface{}) Code {
	switch v := raw.(type) {
	case string:
		return Code(v)
	case float64:
		if v == math.Trunc(v) {
			return Code(strconv.FormatInt(int64(v), 10))
		}
		return Code(strconv.FormatFloat(v, 'f', -1, 64))
	case int:
		return Code(strconv.Itoa(v))
	case int64:
		return Code(strconv.FormatInt(v, 10))
	case json.Number:
		return Code(v.String())
	default:
		return ""
	}
}

// Identity returns the cache key of the diagnostic
func (d Diagnostic) Identity() Identity {
	return Identity{URI: d.URI, Code: d.Code, Range: d.Range}
}

// Actionable reports whether fixes may be offered for the diagnostic. A
// diagnostic without a code or with an invalid range is still stored and
// rendered but never resolved.
func (d Diagnostic) Actionable() bool {
	return d.Code != "" && d.Range.Valid()
}

// Protocol returns the wire form used when echoing the diagnostic back to a server
func (d Diagnostic) Protocol() protocol.Diagnostic {
	if d.Wire.Message != "" || d.Wire.Code != nil {
		return d.Wire
	}
	wire := protocol.Diagnostic{
		Range:    d.Range,
		Severity: d.Severity,
		Message:  d.Message,
		Source:   d.Source,
		Data:     d.Data,
	}
	if d.Code != "" {
		wire.Code = string(d.Code)
	}
	return wire
}
