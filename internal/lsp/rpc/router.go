package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/sourcegraph/jsonrpc2"
	"go.uber.org/zap"
)

// NotificationFunc handles a notification. It runs on the read loop of the
// connection, so notifications are handled in arrival order.
type NotificationFunc func(ctx context.Context, params json.RawMessage) error

// RequestFunc handles a request. It runs on its own goroutine so a request
// waiting on the peer cannot block the read loop.
type RequestFunc func(ctx context.Context, params json.RawMessage) (interface{}, error)

// Router dispatches JSON-RPC messages by method name
type Router struct {
	logger        *zap.Logger
	notifications map[string]NotificationFunc
	requests      map[string]RequestFunc
	wg            sync.WaitGroup
}

// NewRouter creates an empty router
func NewRouter(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		logger:        logger,
		notifications: make(map[string]NotificationFunc),
		requests:      make(map[string]RequestFunc),
	}
}

// Notification registers a notification handler
func (r *Router) Notification(method string, fn NotificationFunc) {
	r.notifications[method] = fn
}

// Request registers a request handler
func (r *Router) Request(method string, fn RequestFunc) {
	r.requests[method] = fn
}

// Wait blocks until all running request handlers returned
func (r *Router) Wait() {
	r.wg.Wait()
}

// Handle implements jsonrpc2.Handler
func (r *Router) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params json.RawMessage
	if req.Params != nil {
		params = *req.Params
	}

	if req.Notif {
		fn, ok := r.notifications[req.Method]
		if !ok {
			r.logger.Debug("ignoring notification", zap.String("method", req.Method))
			return
		}
		if err := fn(ctx, params); err != nil {
			r.logger.Warn("notification failed", zap.String("method", req.Method), zap.Error(err))
		}
		return
	}

	fn, ok := r.requests[req.Method]
	if !ok {
		r.reply(ctx, conn, req, nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "Method not implemented: " + req.Method})
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		result, err := fn(ctx, params)
		r.reply(ctx, conn, req, result, err)
	}()
}

func (r *Router) reply(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request, result interface{}, err error) {
	if err != nil {
		var rpcErr *jsonrpc2.Error
		if !errors.As(err, &rpcErr) {
			rpcErr = &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: err.Error()}
		}
		if sendErr := conn.ReplyWithError(ctx, req.ID, rpcErr); sendErr != nil && !errors.Is(sendErr, jsonrpc2.ErrClosed) {
			r.logger.Warn("failed to send error reply", zap.String("method", req.Method), zap.Error(sendErr))
		}
		return
	}

	if sendErr := conn.Reply(ctx, req.ID, result); sendErr != nil && !errors.Is(sendErr, jsonrpc2.ErrClosed) {
		r.logger.Warn("failed to send reply", zap.String("method", req.Method), zap.Error(sendErr))
	}
}

// Decode unmarshals params, reporting failures as invalid params
func Decode[T any](params json.RawMessage) (T, error) {
	var v T
	if len(params) == 0 {
		return v, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "missing params"}
	}
	if err := json.Unmarshal(params, &v); err != nil {
		return v, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
	}
	return v, nil
}
