package document

import (
	"bytes"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/liberty-tools/liberty-lsp/internal/lsp/protocol"
)

// Snapshot is an immutable view of a document at one version. Positions are
// LSP positions (zero based lines, UTF-16 code unit columns).
type Snapshot struct {
	URI        string
	LanguageID string
	Version    int
	Text       []byte

	lineStarts []int
}

func newSnapshot(uri, languageID string, version int, text []byte) *Snapshot {
	starts := []int{0}
	for i, b := range text {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Snapshot{
		URI:        uri,
		LanguageID: languageID,
		Version:    version,
		Text:       text,
		lineStarts: starts,
	}
}

// NewSnapshot builds a snapshot that is not tracked by a Manager
func NewSnapshot(uri, languageID string, version int, text string) *Snapshot {
	return newSnapshot(uri, languageID, version, []byte(text))
}

// LineCount returns the number of lines, counting a trailing empty line
func (s *Snapshot) LineCount() int {
	return len(s.lineStarts)
}

// line returns the bytes of a line without its terminator
func (s *Snapshot) line(n int) []byte {
	start := s.lineStarts[n]
	end := len(s.Text)
	if n+1 < len(s.lineStarts) {
		end = s.lineStarts[n+1] - 1
	}
	return bytes.TrimSuffix(s.Text[start:end], []byte("\r"))
}

// Offset converts a position to a byte offset. A character past the end of
// its line is clamped to the line end, a line past the end is an error.
func (s *Snapshot) Offset(pos protocol.Position) (int, error) {
	if pos.Line < 0 || pos.Character < 0 {
		return 0, fmt.Errorf("position %d:%d: %w", pos.Line, pos.Character, ErrOutOfRange)
	}
	if pos.Line >= len(s.lineStarts) {
		return 0, fmt.Errorf("line %d of %d: %w", pos.Line, len(s.lineStarts), ErrOutOfRange)
	}

	line := s.line(pos.Line)
	units := 0
	offset := 0
	for offset < len(line) && units < pos.Character {
		r, size := utf8.DecodeRune(line[offset:])
		units += utf16.RuneLen(r)
		if units > pos.Character {
			// position points into the middle of a surrogate pair
			break
		}
		offset += size
	}
	return s.lineStarts[pos.Line] + offset, nil
}

// PositionAt converts a byte offset to a position
func (s *Snapshot) PositionAt(offset int) protocol.Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(s.Text) {
		offset = len(s.Text)
	}

	lineNo := 0
	for lineNo+1 < len(s.lineStarts) && s.lineStarts[lineNo+1] <= offset {
		lineNo++
	}

	character := 0
	for _, r := range string(s.Text[s.lineStarts[lineNo]:offset]) {
		character += utf16.RuneLen(r)
	}
	return protocol.Position{Line: lineNo, Character: character}
}

// End returns the position just past the last character of the document
func (s *Snapshot) End() protocol.Position {
	return s.PositionAt(len(s.Text))
}

// ClampRange limits a range to the document bounds
func (s *Snapshot) ClampRange(r protocol.Range) protocol.Range {
	end := s.End()
	if end.Before(r.End) {
		r.End = end
	}
	if end.Before(r.Start) {
		r.Start = end
	}
	return r
}

// TextInRange returns the text covered by a range
func (s *Snapshot) TextInRange(r protocol.Range) (string, error) {
	start, err := s.Offset(r.Start)
	if err != nil {
		return "", err
	}
	end, err := s.Offset(r.End)
	if err != nil {
		return "", err
	}
	if end < start {
		return "", fmt.Errorf("range ends before it starts: %w", ErrOutOfRange)
	}
	return string(s.Text[start:end]), nil
}
