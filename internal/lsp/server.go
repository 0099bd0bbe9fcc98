package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/liberty-tools/liberty-lsp/internal/dispatch"
	"github.com/liberty-tools/liberty-lsp/internal/document"
	"github.com/liberty-tools/liberty-lsp/internal/lsp/protocol"
	"github.com/liberty-tools/liberty-lsp/internal/lsp/rpc"
	"github.com/liberty-tools/liberty-lsp/internal/quickfix"
	"github.com/liberty-tools/liberty-lsp/internal/remote"
	"github.com/liberty-tools/liberty-lsp/internal/session"
	"github.com/sourcegraph/jsonrpc2"
	"go.uber.org/zap"
)

const serverName = "liberty-lsp"

var errEditorNotConnected = errors.New("editor not connected")

// Options configure a Server
type Options struct {
	Dispatcher *dispatch.Dispatcher
	// ServerID keys the markers this server renders
	ServerID     string
	FetchTimeout time.Duration
	Source       quickfix.Source
	// Trace enables message tracing while it returns true
	Trace   func() bool
	Version string
	Logger  *zap.Logger
}

type remoteRef struct {
	remote Remote
}

// Server is the language server the editor talks to. It mirrors the open
// documents, keeps a diagnostics session per document and serves quick
// fixes, forwarding everything else to the remote analysis server.
type Server struct {
	documents *document.Manager
	sessions  *session.Registry
	executor  *quickfix.Executor
	router    *rpc.Router
	logger    *zap.Logger
	trace     func() bool
	version   string

	conn     atomic.Pointer[jsonrpc2.Conn]
	remote   atomic.Pointer[remoteRef]
	shutdown atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a server without a remote analysis server
func NewServer(opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Trace == nil {
		opts.Trace = func() bool { return false }
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		documents: document.NewManager(),
		router:    rpc.NewRouter(opts.Logger),
		logger:    opts.Logger,
		trace:     opts.Trace,
		version:   opts.Version,
		ctx:       ctx,
		cancel:    cancel,
	}
	s.sessions = session.NewRegistry(session.Options{
		ServerID:    opts.ServerID,
		Renderer:    markerRenderer{s},
		Documents:   s.documents,
		Logger:      opts.Logger,
		BaseContext: ctx,
	})

	executor, err := quickfix.New(quickfix.Options{
		Sessions:     s.sessions,
		Documents:    s.documents,
		Dispatcher:   opts.Dispatcher,
		Applier:      editorApplier{s},
		FetchTimeout: opts.FetchTimeout,
		Source:       opts.Source,
		Logger:       opts.Logger,
	})
	if err != nil {
		cancel()
		return nil, err
	}
	s.executor = executor
	s.routes()
	return s, nil
}

// Executor returns the quick fix executor
func (s *Server) Executor() *quickfix.Executor {
	return s.executor
}

// Documents returns the document mirror
func (s *Server) Documents() *document.Manager {
	return s.documents
}

// Sessions returns the diagnostics sessions
func (s *Server) Sessions() *session.Registry {
	return s.sessions
}

// ConnectRemote sets the analysis server, nil disconnects it
func (s *Server) ConnectRemote(r Remote) {
	if r == nil {
		s.remote.Store(nil)
		s.executor.SetServer(nil)
		return
	}
	s.remote.Store(&remoteRef{remote: r})
	s.executor.SetServer(r)
}

func (s *Server) remoteServer() Remote {
	if ref := s.remote.Load(); ref != nil {
		return ref.remote
	}
	return nil
}

// Start serves the editor on in and out until the connection closes
func (s *Server) Start(in io.Reader, out io.Writer) error {
	stream := jsonrpc2.NewBufferedStream(rwc{in, out}, jsonrpc2.VSCodeObjectCodec{})
	return s.Serve(context.Background(), stream)
}

// Serve serves the editor on stream until the connection closes
func (s *Server) Serve(ctx context.Context, stream jsonrpc2.ObjectStream) error {
	conn := jsonrpc2.NewConn(ctx, stream, connHandler{s}, rpc.Trace(s.logger, "editor", s.trace)...)
	s.conn.CompareAndSwap(nil, conn)

	<-conn.DisconnectNotify()
	s.router.Wait()
	s.cancel()
	s.wg.Wait()
	return nil
}

// connHandler records the editor connection before the first message is
// handled, so handlers can always reach the editor
type connHandler struct {
	s *Server
}

func (h connHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	h.s.conn.CompareAndSwap(nil, conn)
	h.s.router.Handle(ctx, conn, req)
}

// rwc combines a reader and writer into a single ReadWriteCloser
type rwc struct {
	io.Reader
	io.Writer
}

// Close implements io.Closer
func (rwc) Close() error {
	return nil
}

func (s *Server) routes() {
	s.router.Request("initialize", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		p, err := rpc.Decode[protocol.InitializeParams](params)
		if err != nil {
			return nil, err
		}
		return s.initialize(ctx, p), nil
	})

	s.router.Notification("initialized", func(ctx context.Context, _ json.RawMessage) error {
		s.logger.Debug("editor initialized")
		return nil
	})

	s.router.Request("shutdown", func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
		s.shutdownServer(ctx)
		return nil, nil
	})

	s.router.Notification("exit", func(ctx context.Context, _ json.RawMessage) error {
		s.logger.Info("received exit notification, exiting")
		if conn := s.conn.Load(); conn != nil {
			return conn.Close()
		}
		return nil
	})

	s.router.Notification("textDocument/didOpen", func(ctx context.Context, params json.RawMessage) error {
		p, err := rpc.Decode[protocol.DidOpenTextDocumentParams](params)
		if err != nil {
			return err
		}
		return s.didOpen(ctx, p)
	})

	s.router.Notification("textDocument/didChange", func(ctx context.Context, params json.RawMessage) error {
		p, err := rpc.Decode[protocol.DidChangeTextDocumentParams](params)
		if err != nil {
			return err
		}
		return s.didChange(ctx, p)
	})

	s.router.Notification("textDocument/didClose", func(ctx context.Context, params json.RawMessage) error {
		p, err := rpc.Decode[protocol.DidCloseTextDocumentParams](params)
		if err != nil {
			return err
		}
		return s.didClose(ctx, p)
	})

	s.router.Request("textDocument/codeAction", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		p, err := rpc.Decode[protocol.CodeActionParams](params)
		if err != nil {
			return nil, err
		}
		return s.codeAction(ctx, p)
	})

	s.router.Request("workspace/executeCommand", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		p, err := rpc.Decode[protocol.ExecuteCommandParams](params)
		if err != nil {
			return nil, err
		}
		return s.executeCommand(ctx, p)
	})
}

// initialize answers the editor and performs the handshake with the remote
// server. A failed handshake leaves the server running with local fixes only.
func (s *Server) initialize(ctx context.Context, params protocol.InitializeParams) *protocol.InitializeResult {
	s.logger.Info("initializing", zap.String("root", extractRootPath(params)))

	commands := []string{ApplyFixCommand}
	if r := s.remoteServer(); r != nil {
		if remoteCommands, err := s.initializeRemote(ctx, r, params); err != nil {
			s.logger.Warn("remote server unavailable, serving local fixes only", zap.Error(err))
			s.ConnectRemote(nil)
		} else {
			commands = append(commands, remoteCommands...)
		}
	}

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncFull,
			CodeActionProvider: &protocol.CodeActionOptions{
				CodeActionKinds: []protocol.CodeActionKind{protocol.CodeActionQuickFix},
			},
			ExecuteCommandProvider: &protocol.ExecuteCommandOptions{Commands: commands},
		},
		ServerInfo: &protocol.ServerInfo{Name: serverName, Version: s.version},
	}
}

func (s *Server) initializeRemote(ctx context.Context, r Remote, params protocol.InitializeParams) ([]string, error) {
	options, err := remote.InitializationOptions(s.trace())
	if err != nil {
		return nil, err
	}
	params.InitializationOptions = options

	result, err := r.Initialize(ctx, params)
	if err != nil {
		return nil, err
	}
	if result.Capabilities.ExecuteCommandProvider == nil {
		return nil, nil
	}
	return result.Capabilities.ExecuteCommandProvider.Commands, nil
}

// extractRootPath extracts the root path from the initialize params
func extractRootPath(params protocol.InitializeParams) string {
	if params.RootPath != "" {
		return params.RootPath
	}
	if params.RootURI != "" {
		return strings.TrimPrefix(params.RootURI, "file://")
	}
	if len(params.WorkspaceFolders) > 0 {
		return strings.TrimPrefix(params.WorkspaceFolders[0].URI, "file://")
	}
	wd, _ := os.Getwd()
	return wd
}

// shutdownServer clears every marker and shuts the remote server down
func (s *Server) shutdownServer(ctx context.Context) {
	if s.shutdown.Swap(true) {
		return
	}
	s.sessions.CloseAll(ctx)

	if r := s.remoteServer(); r != nil {
		s.ConnectRemote(nil)
		if err := r.Shutdown(ctx); err != nil {
			s.logger.Warn("failed to shut down remote server", zap.Error(err))
		}
	}
	s.logger.Info("received shutdown request, waiting for exit notification")
}

// goBackground runs fn until the server stops
func (s *Server) goBackground(fn func(ctx context.Context)) {
	if s.ctx.Err() != nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(s.ctx)
	}()
}
