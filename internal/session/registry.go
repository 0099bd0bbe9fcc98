package session

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Options configure the sessions created by a Registry
type Options struct {
	// ServerID identifies the language server the markers belong to
	ServerID  string
	Renderer  MarkerRenderer
	Documents DocumentSource
	Logger    *zap.Logger
	// BaseContext parents every generation context
	BaseContext context.Context
}

// Registry holds the sessions of all open documents. Lookups read an
// immutable map snapshot.
type Registry struct {
	opts Options

	mu       sync.Mutex
	sessions atomic.Pointer[map[string]*Session]
}

// NewRegistry creates an empty registry
func NewRegistry(opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.BaseContext == nil {
		opts.BaseContext = context.Background()
	}
	if opts.Renderer == nil {
		opts.Renderer = nopRenderer{}
	}
	if opts.Documents == nil {
		opts.Documents = noDocuments{}
	}
	r := &Registry{opts: opts}
	empty := make(map[string]*Session)
	r.sessions.Store(&empty)
	return r
}

// Open returns the session of a document, creating it when needed
func (r *Registry) Open(uri string) *Session {
	if s, ok := r.Get(uri); ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := *r.sessions.Load()
	if s, ok := current[uri]; ok {
		return s
	}

	s := newSession(uri, r.opts)
	next := make(map[string]*Session, len(current)+1)
	for k, v := range current {
		next[k] = v
	}
	next[uri] = s
	r.sessions.Store(&next)
	return s
}

// Get returns the session of a document
func (r *Registry) Get(uri string) (*Session, bool) {
	s, ok := (*r.sessions.Load())[uri]
	return s, ok
}

// Close closes and forgets the session of a document
func (r *Registry) Close(ctx context.Context, uri string) {
	r.mu.Lock()
	current := *r.sessions.Load()
	s, ok := current[uri]
	if ok {
		next := make(map[string]*Session, len(current))
		for k, v := range current {
			if k != uri {
				next[k] = v
			}
		}
		r.sessions.Store(&next)
	}
	r.mu.Unlock()

	if ok {
		s.Close(ctx)
	}
}

// CloseAll closes every session
func (r *Registry) CloseAll(ctx context.Context) {
	r.mu.Lock()
	current := *r.sessions.Load()
	empty := make(map[string]*Session)
	r.sessions.Store(&empty)
	r.mu.Unlock()

	for _, s := range current {
		s.Close(ctx)
	}
}

// URIs returns the documents with a session, sorted
func (r *Registry) URIs() []string {
	current := *r.sessions.Load()
	uris := make([]string, 0, len(current))
	for uri := range current {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}
