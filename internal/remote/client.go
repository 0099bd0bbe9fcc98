package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/liberty-tools/liberty-lsp/internal/lsp/protocol"
	"github.com/liberty-tools/liberty-lsp/internal/lsp/rpc"
	"github.com/sourcegraph/jsonrpc2"
	"go.uber.org/zap"
)

// Handler receives the messages the analysis server sends to its client
type Handler interface {
	PublishDiagnostics(ctx context.Context, params protocol.PublishDiagnosticsParams)
	ApplyEdit(ctx context.Context, params protocol.ApplyWorkspaceEditParams) (protocol.ApplyWorkspaceEditResult, error)
	CursorContext(ctx context.Context, params protocol.JavaCursorContextParams) (protocol.JavaCursorContextResult, error)
	LogMessage(ctx context.Context, params protocol.LogMessageParams)
}

// Options configure a Client
type Options struct {
	Logger *zap.Logger
	// Trace enables message tracing while it returns true
	Trace func() bool
}

// Client is the connection to the remote analysis server
type Client struct {
	conn         *jsonrpc2.Conn
	router       *rpc.Router
	handler      Handler
	logger       *zap.Logger
	capabilities atomic.Pointer[protocol.ServerCapabilities]
}

// NewClient starts serving a connection to the analysis server
func NewClient(ctx context.Context, stream jsonrpc2.ObjectStream, handler Handler, opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Trace == nil {
		opts.Trace = func() bool { return false }
	}

	c := &Client{
		handler: handler,
		logger:  opts.Logger,
		router:  rpc.NewRouter(opts.Logger),
	}
	c.capabilities.Store(&protocol.ServerCapabilities{})
	c.routes()

	c.conn = jsonrpc2.NewConn(ctx, stream, c.router, rpc.Trace(opts.Logger, "remote", opts.Trace)...)
	return c
}

func (c *Client) routes() {
	c.router.Notification("textDocument/publishDiagnostics", func(ctx context.Context, params json.RawMessage) error {
		p, err := rpc.Decode[protocol.PublishDiagnosticsParams](params)
		if err != nil {
			return err
		}
		c.handler.PublishDiagnostics(ctx, p)
		return nil
	})

	c.router.Notification("window/logMessage", func(ctx context.Context, params json.RawMessage) error {
		p, err := rpc.Decode[protocol.LogMessageParams](params)
		if err != nil {
			return err
		}
		c.handler.LogMessage(ctx, p)
		return nil
	})

	c.router.Notification("window/showMessage", func(ctx context.Context, params json.RawMessage) error {
		p, err := rpc.Decode[protocol.LogMessageParams](params)
		if err != nil {
			return err
		}
		c.handler.LogMessage(ctx, p)
		return nil
	})

	c.router.Request("workspace/applyEdit", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		p, err := rpc.Decode[protocol.ApplyWorkspaceEditParams](params)
		if err != nil {
			return nil, err
		}
		return c.handler.ApplyEdit(ctx, p)
	})

	c.router.Request("jakarta/java/cursorcontext", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		p, err := rpc.Decode[protocol.JavaCursorContextParams](params)
		if err != nil {
			return nil, err
		}
		return c.handler.CursorContext(ctx, p)
	})

	c.router.Request("client/registerCapability", func(context.Context, json.RawMessage) (interface{}, error) {
		return nil, nil
	})

	c.router.Request("window/workDoneProgress/create", func(context.Context, json.RawMessage) (interface{}, error) {
		return nil, nil
	})
}

// Initialize performs the initialize handshake and remembers the server
// capabilities
func (c *Client) Initialize(ctx context.Context, params protocol.InitializeParams) (*protocol.InitializeResult, error) {
	var result protocol.InitializeResult
	if err := c.conn.Call(ctx, "initialize", params, &result); err != nil {
		return nil, fmt.Errorf("failed to initialize remote server: %w", err)
	}
	c.capabilities.Store(&result.Capabilities)

	if err := c.conn.Notify(ctx, "initialized", struct{}{}); err != nil {
		return nil, fmt.Errorf("failed to send initialized: %w", err)
	}
	return &result, nil
}

// Capabilities returns what the server announced during initialize
func (c *Client) Capabilities() protocol.ServerCapabilities {
	return *c.capabilities.Load()
}

// SupportsResolve reports whether the server implements codeAction/resolve
func (c *Client) SupportsResolve() bool {
	caps := c.capabilities.Load()
	return caps.CodeActionProvider != nil && caps.CodeActionProvider.ResolveProvider
}

// CodeAction requests the code actions for a range
func (c *Client) CodeAction(ctx context.Context, params protocol.CodeActionParams) ([]protocol.CodeActionOrCommand, error) {
	var result []protocol.CodeActionOrCommand
	if err := c.conn.Call(ctx, "textDocument/codeAction", params, &result); err != nil {
		return nil, fmt.Errorf("code action request failed: %w", err)
	}
	return result, nil
}

// ResolveCodeAction asks the server to fill in the edit of a code action
func (c *Client) ResolveCodeAction(ctx context.Context, action protocol.CodeAction) (*protocol.CodeAction, error) {
	var result protocol.CodeAction
	if err := c.conn.Call(ctx, "codeAction/resolve", action, &result); err != nil {
		return nil, fmt.Errorf("code action resolve failed: %w", err)
	}
	return &result, nil
}

// ExecuteCommand runs a command on the server
func (c *Client) ExecuteCommand(ctx context.Context, params protocol.ExecuteCommandParams) (json.RawMessage, error) {
	var result json.RawMessage
	if err := c.conn.Call(ctx, "workspace/executeCommand", params, &result); err != nil {
		return nil, fmt.Errorf("execute command %s failed: %w", params.Command, err)
	}
	return result, nil
}

// DidOpen forwards a document open
func (c *Client) DidOpen(ctx context.Context, params protocol.DidOpenTextDocumentParams) error {
	return c.conn.Notify(ctx, "textDocument/didOpen", params)
}

// DidChange forwards a document change
func (c *Client) DidChange(ctx context.Context, params protocol.DidChangeTextDocumentParams) error {
	return c.conn.Notify(ctx, "textDocument/didChange", params)
}

// DidClose forwards a document close
func (c *Client) DidClose(ctx context.Context, params protocol.DidCloseTextDocumentParams) error {
	return c.conn.Notify(ctx, "textDocument/didClose", params)
}

// Shutdown asks the server to shut down, sends exit and closes the connection
func (c *Client) Shutdown(ctx context.Context) error {
	if err := c.conn.Call(ctx, "shutdown", nil, nil); err != nil {
		c.logger.Warn("remote shutdown failed", zap.Error(err))
	}
	if err := c.conn.Notify(ctx, "exit", nil); err != nil {
		c.logger.Debug("remote exit failed", zap.Error(err))
	}
	return c.Close()
}

// Close closes the connection
func (c *Client) Close() error {
	err := c.conn.Close()
	if err != nil && err != jsonrpc2.ErrClosed {
		return err
	}
	return nil
}

// DisconnectNotify is closed when the connection is gone
func (c *Client) DisconnectNotify() <-chan struct{} {
	return c.conn.DisconnectNotify()
}
