package protocol

// Location represents a location in a document
type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

// Range represents a range in a document
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Position represents a position in a document
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Before reports whether p is strictly before other.
func (p Position) Before(other Position) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Character < other.Character
}

// Valid reports whether the range has non-negative positions and does not end before it starts.
func (r Range) Valid() bool {
	if r.Start.Line < 0 || r.Start.Character < 0 || r.End.Line < 0 || r.End.Character < 0 {
		return false
	}
	return !r.End.Before(r.Start)
}

// Empty reports whether the range covers no text.
func (r Range) Empty() bool {
	return r.Start == r.End
}

// Intersects reports whether two ranges share at least one position.
// Touching ranges intersect when one of them is empty.
func (r Range) Intersects(other Range) bool {
	if r.End.Before(other.Start) || other.End.Before(r.Start) {
		return false
	}
	if r.End == other.Start {
		return r.Empty() || other.Empty()
	}
	if other.End == r.Start {
		return r.Empty() || other.Empty()
	}
	return true
}

// TextDocumentIdentifier identifies a text document
type TextDocumentIdentifier struct {
	URI string `json:"uri"`
}

// VersionedTextDocumentIdentifier identifies a specific version of a text document
type VersionedTextDocumentIdentifier struct {
	URI     string `json:"uri"`
	Version int    `json:"version"`
}
