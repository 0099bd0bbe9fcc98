package quickfix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/liberty-tools/liberty-lsp/internal/diagnostic"
	"github.com/liberty-tools/liberty-lsp/internal/dispatch"
	"github.com/liberty-tools/liberty-lsp/internal/document"
	"github.com/liberty-tools/liberty-lsp/internal/fix"
	"github.com/liberty-tools/liberty-lsp/internal/javaast"
	"github.com/liberty-tools/liberty-lsp/internal/lsp/protocol"
	"github.com/liberty-tools/liberty-lsp/internal/session"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultFetchTimeout        = time.Second
	DefaultResolveCacheSize    = 256
	DefaultPrefetchConcurrency = 4
)

var (
	// ErrNoRemote is returned when a fix needs the remote server and none is connected
	ErrNoRemote = errors.New("no remote server connected")
	// ErrUnknownFix is returned when a reference does not name a cached fix
	ErrUnknownFix = errors.New("unknown fix")
)

// Server is the part of the remote analysis server the executor talks to
type Server interface {
	CodeAction(ctx context.Context, params protocol.CodeActionParams) ([]protocol.CodeActionOrCommand, error)
	ResolveCodeAction(ctx context.Context, action protocol.CodeAction) (*protocol.CodeAction, error)
	SupportsResolve() bool
	ExecuteCommand(ctx context.Context, params protocol.ExecuteCommandParams) (json.RawMessage, error)
}

// EditApplier applies a workspace edit in the editor. An implementation must
// apply all edits of one document or none of them.
type EditApplier interface {
	ApplyWorkspaceEdit(ctx context.Context, label string, edit protocol.WorkspaceEdit) error
}

// Source selects where fixes of a diagnostic come from
type Source string

const (
	// SourceAuto uses local providers for catalogued codes and the remote server otherwise
	SourceAuto   Source = "auto"
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
)

// ParseSource validates a fix source name
func ParseSource(s string) (Source, error) {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case "", SourceAuto:
		return SourceAuto, nil
	case SourceLocal:
		return SourceLocal, nil
	case SourceRemote:
		return SourceRemote, nil
	default:
		return "", fmt.Errorf("unknown fix source %q", s)
	}
}

type Options struct {
	Sessions   *session.Registry
	Documents  *document.Manager
	Dispatcher *dispatch.Dispatcher
	// Server may be nil and set later with SetServer
	Server  Server
	Applier EditApplier

	FetchTimeout        time.Duration
	Source              Source
	ResolveCacheSize    int
	PrefetchConcurrency int
	Logger              *zap.Logger
}

type serverRef struct {
	server Server
}

// Executor fetches and applies the fixes of session diagnostics
type Executor struct {
	sessions    *session.Registry
	documents   *document.Manager
	dispatcher  *dispatch.Dispatcher
	applier     EditApplier
	source      Source
	concurrency int
	logger      *zap.Logger

	server   atomic.Pointer[serverRef]
	timeout  atomic.Int64
	fetches  singleflight.Group
	resolved *lru.Cache[string, *protocol.CodeAction]
}

// New creates an executor
func New(opts Options) (*Executor, error) {
	if opts.Sessions == nil || opts.Documents == nil {
		return nil, errors.New("quickfix executor needs sessions and documents")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.Source == "" {
		opts.Source = SourceAuto
	}
	if opts.ResolveCacheSize <= 0 {
		opts.ResolveCacheSize = DefaultResolveCacheSize
	}
	if opts.PrefetchConcurrency <= 0 {
		opts.PrefetchConcurrency = DefaultPrefetchConcurrency
	}

	resolved, err := lru.New[string, *protocol.CodeAction](opts.ResolveCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolve cache: %w", err)
	}

	e := &Executor{
		sessions:    opts.Sessions,
		documents:   opts.Documents,
		dispatcher:  opts.Dispatcher,
		applier:     opts.Applier,
		source:      opts.Source,
		concurrency: opts.PrefetchConcurrency,
		logger:      opts.Logger,
		resolved:    resolved,
	}
	e.SetFetchTimeout(opts.FetchTimeout)
	e.SetServer(opts.Server)
	return e, nil
}

// SetServer swaps the remote server, nil disconnects it
func (e *Executor) SetServer(s Server) {
	if s == nil {
		e.server.Store(nil)
		return
	}
	e.server.Store(&serverRef{server: s})
}

func (e *Executor) remote() Server {
	if ref := e.server.Load(); ref != nil {
		return ref.server
	}
	return nil
}

// SetFetchTimeout changes the timeout of remote fix fetches
func (e *Executor) SetFetchTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultFetchTimeout
	}
	e.timeout.Store(int64(d))
}

// FetchTimeout returns the timeout of remote fix fetches
func (e *Executor) FetchTimeout() time.Duration {
	return time.Duration(e.timeout.Load())
}

type fetchResult struct {
	fixes     []fix.CandidateFix
	cacheable bool
}

// FetchFixes returns the candidate fixes of a diagnostic of the current
// generation. It never fails: errors and timeouts are logged and yield no
// fixes. Concurrent fetches of the same diagnostic share one resolution.
func (e *Executor) FetchFixes(ctx context.Context, uri string, d diagnostic.Diagnostic) []fix.CandidateFix {
	sess, ok := e.sessions.Get(uri)
	if !ok || !d.Actionable() {
		return nil
	}
	gen := sess.Current()
	id := d.Identity()
	if _, ok := gen.Lookup(id); !ok {
		return nil
	}
	if fixes, ok := gen.CachedFixes(id); ok {
		return fixes
	}

	key := fmt.Sprintf("%d|%s", gen.ID(), id)
	ch := e.fetches.DoChan(key, func() (interface{}, error) {
		return e.fetch(sess, gen, d), nil
	})

	select {
	case res := <-ch:
		if gen.Superseded() {
			return nil
		}
		fixes, _ := res.Val.([]fix.CandidateFix)
		return fixes
	case <-ctx.Done():
		return nil
	}
}

// fetch resolves the fixes of d and caches them in gen. A flight that ended
// after the caller checked the cache may have stored them already.
func (e *Executor) fetch(sess *session.Session, gen *session.Generation, d diagnostic.Diagnostic) []fix.CandidateFix {
	id := d.Identity()
	if fixes, ok := gen.CachedFixes(id); ok {
		return fixes
	}

	res := e.resolve(gen, d)
	if res.cacheable && !sess.StoreFixes(gen, id, res.fixes) {
		e.logger.Debug("discarding fixes of superseded generation",
			zap.String("uri", d.URI),
			zap.Uint64("generation", gen.ID()))
	}
	return res.fixes
}

// FetchFixesAsync runs FetchFixes in the background. The channel receives
// exactly one value.
func (e *Executor) FetchFixesAsync(ctx context.Context, uri string, d diagnostic.Diagnostic) <-chan []fix.CandidateFix {
	ch := make(chan []fix.CandidateFix, 1)
	go func() {
		ch <- e.FetchFixes(ctx, uri, d)
	}()
	return ch
}

// Prefetch resolves the fixes of every actionable diagnostic of the current
// generation so code action requests are served from the cache
func (e *Executor) Prefetch(ctx context.Context, uri string) {
	sess, ok := e.sessions.Get(uri)
	if !ok {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for _, d := range sess.Current().Diagnostics() {
		if !d.Actionable() {
			continue
		}
		g.Go(func() error {
			e.FetchFixes(gctx, uri, d)
			return nil
		})
	}
	_ = g.Wait()
}

func (e *Executor) sourceFor(code diagnostic.Code) Source {
	if e.source != SourceAuto {
		return e.source
	}
	if e.dispatcher != nil && e.dispatcher.Handles(code) {
		return SourceLocal
	}
	return SourceRemote
}

func (e *Executor) resolve(gen *session.Generation, d diagnostic.Diagnostic) fetchResult {
	if e.sourceFor(d.Code) == SourceLocal {
		return e.resolveLocal(gen, d)
	}
	return e.resolveRemote(gen, d)
}

func (e *Executor) resolveLocal(gen *session.Generation, d diagnostic.Diagnostic) fetchResult {
	if e.dispatcher == nil {
		return fetchResult{cacheable: true}
	}
	ctx := gen.Context()

	var fc fix.Context
	if snap, ok := e.documents.Get(d.URI); ok {
		fc.Snapshot = snap
		tree, err := javaast.Parse(ctx, snap)
		switch {
		case err == nil:
			defer tree.Close()
			fc.Tree = tree
		case !errors.Is(err, javaast.ErrNotJava):
			e.logger.Debug("failed to parse document", zap.String("uri", d.URI), zap.Error(err))
		}
	}

	fixes := e.dispatcher.ResolveOne(ctx, d, fc)
	return fetchResult{fixes: fixes, cacheable: ctx.Err() == nil}
}

func (e *Executor) resolveRemote(gen *session.Generation, d diagnostic.Diagnostic) fetchResult {
	server := e.remote()
	if server == nil {
		e.logger.Debug("no remote server for fix fetch", zap.String("uri", d.URI), zap.String("code", string(d.Code)))
		return fetchResult{}
	}

	timeout := e.FetchTimeout()
	ctx, cancel := context.WithTimeout(gen.Context(), timeout)
	defer cancel()

	actions, err := server.CodeAction(ctx, protocol.CodeActionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: d.URI},
		Range:        d.Range,
		Context: protocol.CodeActionContext{
			Diagnostics: []protocol.Diagnostic{d.Protocol()},
		},
	})
	if err != nil {
		switch {
		case gen.Context().Err() != nil:
			e.logger.Debug("fix fetch detached from superseded generation",
				zap.String("uri", d.URI),
				zap.Uint64("generation", gen.ID()))
		case errors.Is(err, context.DeadlineExceeded):
			e.logger.Warn("fix fetch timed out",
				zap.String("uri", d.URI),
				zap.String("code", string(d.Code)),
				zap.Duration("timeout", timeout))
		default:
			e.logger.Warn("fix fetch failed",
				zap.String("uri", d.URI),
				zap.String("code", string(d.Code)),
				zap.Error(err))
		}
		return fetchResult{}
	}

	var version *int
	if snap, ok := e.documents.Get(d.URI); ok {
		v := snap.Version
		version = &v
	}
	return fetchResult{fixes: fixesFromActions(d.URI, version, actions), cacheable: true}
}

func isQuickFix(kind protocol.CodeActionKind) bool {
	return kind == protocol.CodeActionQuickFix || strings.HasPrefix(string(kind), string(protocol.CodeActionQuickFix)+".")
}

// fixesFromActions turns a code action response into candidate fixes.
// Commands are always offered, code actions only when they are quick fixes.
func fixesFromActions(uri string, version *int, actions []protocol.CodeActionOrCommand) []fix.CandidateFix {
	var fixes []fix.CandidateFix
	for _, item := range actions {
		switch {
		case item.Command != nil:
			fixes = append(fixes, fix.NewCommand(item.Command.Title, item.Command.Command, item.Command.Arguments...))
		case item.CodeAction != nil && isQuickFix(item.CodeAction.Kind):
			fixes = append(fixes, fixFromAction(uri, version, item.CodeAction))
		}
	}
	for i := range fixes {
		fixes[i].Priority = i
	}
	return fixes
}

func fixFromAction(uri string, version *int, action *protocol.CodeAction) fix.CandidateFix {
	if action.Edit != nil && action.Command == nil {
		uris := action.Edit.URIs()
		if len(uris) == 1 && uris[0] == uri {
			edits, editVersion := action.Edit.EditsFor(uri)
			if editVersion == nil {
				editVersion = version
			}
			return fix.CandidateFix{
				Title:     action.Title,
				Kind:      fix.KindEdit,
				Preferred: action.IsPreferred,
				Edit:      &fix.DocumentEdit{URI: uri, Version: editVersion, Edits: edits},
			}
		}
	}

	name := ""
	var args []json.RawMessage
	if action.Command != nil {
		name = action.Command.Command
		args = action.Command.Arguments
	}
	return fix.CandidateFix{
		Title:     action.Title,
		Kind:      fix.KindCommand,
		Preferred: action.IsPreferred,
		Command:   &fix.Command{Name: name, Arguments: args, Action: action},
	}
}
