package document

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/liberty-tools/liberty-lsp/internal/lsp/protocol"
)

// Manager tracks the open documents. Readers load an immutable map snapshot,
// writers replace the map under a mutex.
type Manager struct {
	mu        sync.Mutex
	documents atomic.Pointer[map[string]*Snapshot]
}

// NewManager creates a new document manager
func NewManager() *Manager {
	m := &Manager{}
	empty := make(map[string]*Snapshot)
	m.documents.Store(&empty)
	return m
}

func (m *Manager) load() map[string]*Snapshot {
	return *m.documents.Load()
}

// update copies the current map, lets fn modify the copy and publishes it
func (m *Manager) update(fn func(docs map[string]*Snapshot) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.load()
	next := make(map[string]*Snapshot, len(current)+1)
	for k, v := range current {
		next[k] = v
	}
	if err := fn(next); err != nil {
		return err
	}
	m.documents.Store(&next)
	return nil
}

// Open adds or replaces a document
func (m *Manager) Open(uri, languageID string, version int, text string) *Snapshot {
	snap := newSnapshot(uri, languageID, version, []byte(text))
	_ = m.update(func(docs map[string]*Snapshot) error {
		docs[uri] = snap
		return nil
	})
	return snap
}

// Update replaces the content of a document. Unknown documents are opened.
func (m *Manager) Update(uri string, version int, text string) *Snapshot {
	var snap *Snapshot
	_ = m.update(func(docs map[string]*Snapshot) error {
		languageID := ""
		if prev, ok := docs[uri]; ok {
			languageID = prev.LanguageID
		}
		snap = newSnapshot(uri, languageID, version, []byte(text))
		docs[uri] = snap
		return nil
	})
	return snap
}

// Close removes a document
func (m *Manager) Close(uri string) {
	_ = m.update(func(docs map[string]*Snapshot) error {
		delete(docs, uri)
		return nil
	})
}

// Get returns the current snapshot of a document
func (m *Manager) Get(uri string) (*Snapshot, bool) {
	snap, ok := m.load()[uri]
	return snap, ok
}

// URIs returns the open documents in sorted order
func (m *Manager) URIs() []string {
	docs := m.load()
	uris := make([]string, 0, len(docs))
	for uri := range docs {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

// ApplyEdits patches a document as one atomic multi-span edit. When version
// is not nil it must match the current version. The patched snapshot gets
// the next version number and is published in a single store, so readers
// see either the old or the new text.
func (m *Manager) ApplyEdits(ctx context.Context, uri string, version *int, edits []protocol.TextEdit) (*Snapshot, error) {
	var result *Snapshot
	err := m.update(func(docs map[string]*Snapshot) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		current, ok := docs[uri]
		if !ok {
			return fmt.Errorf("failed to edit %s: %w", uri, ErrNotOpen)
		}
		if version != nil && *version != current.Version {
			return fmt.Errorf("failed to edit %s at version %d, current is %d: %w", uri, *version, current.Version, ErrVersionMismatch)
		}
		text, err := current.Apply(edits)
		if err != nil {
			return fmt.Errorf("failed to edit %s: %w", uri, err)
		}
		result = newSnapshot(uri, current.LanguageID, current.Version+1, text)
		docs[uri] = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
