package document

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/liberty-tools/liberty-lsp/internal/lsp/protocol"
)

var (
	// ErrNotOpen is returned for documents the manager does not track
	ErrNotOpen = errors.New("document is not open")
	// ErrVersionMismatch is returned when an edit was computed against another version
	ErrVersionMismatch = errors.New("document version mismatch")
	// ErrOverlappingEdits is returned when two edits of one patch touch the same span
	ErrOverlappingEdits = errors.New("overlapping edits")
	// ErrOutOfRange is returned for positions outside the document
	ErrOutOfRange = errors.New("position out of range")
)

type span struct {
	start, end int
	text       string
	order      int
}

// spansConflict uses half-open intervals. Two insertions at the same offset
// do not conflict, an insertion conflicts with a span strictly containing it.
func spansConflict(a, b span) bool {
	if a.start == a.end && b.start == b.end {
		return false
	}
	if a.start == a.end {
		return b.start < a.start && a.start < b.end
	}
	if b.start == b.end {
		return a.start < b.start && b.start < a.end
	}
	return a.start < b.end && b.start < a.end
}

// Apply patches the snapshot text with all edits at once. Edit ranges refer to
// the original text. Either every edit is applied or none is.
func (s *Snapshot) Apply(edits []protocol.TextEdit) ([]byte, error) {
	spans := make([]span, 0, len(edits))
	for i, edit := range edits {
		start, err := s.Offset(edit.Range.Start)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve edit %d: %w", i, err)
		}
		end, err := s.Offset(edit.Range.End)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve edit %d: %w", i, err)
		}
		if end < start {
			return nil, fmt.Errorf("edit %d ends before it starts: %w", i, ErrOutOfRange)
		}
		spans = append(spans, span{start: start, end: end, text: edit.NewText, order: i})
	}

	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		// insertions at an offset go before a span replaced from that offset
		iEmpty, jEmpty := spans[i].start == spans[i].end, spans[j].start == spans[j].end
		if iEmpty != jEmpty {
			return iEmpty
		}
		return spans[i].order < spans[j].order
	})

	for i := 1; i < len(spans); i++ {
		for j := 0; j < i; j++ {
			if spansConflict(spans[j], spans[i]) {
				return nil, fmt.Errorf("edits %d and %d: %w", spans[j].order, spans[i].order, ErrOverlappingEdits)
			}
		}
	}

	var buf bytes.Buffer
	buf.Grow(len(s.Text))
	cursor := 0
	for _, sp := range spans {
		buf.Write(s.Text[cursor:sp.start])
		buf.WriteString(sp.text)
		cursor = sp.end
	}
	buf.Write(s.Text[cursor:])
	return buf.Bytes(), nil
}
