package rpc

import (
	"encoding/json"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"
)

// Trace returns connection options logging every message at debug level
// while enabled reports true. Payloads are pretty printed.
func Trace(logger *zap.Logger, peer string, enabled func() bool) []jsonrpc2.ConnOpt {
	return []jsonrpc2.ConnOpt{
		jsonrpc2.OnRecv(func(req *jsonrpc2.Request, resp *jsonrpc2.Response) {
			if enabled() {
				traceMessage(logger, peer, "recv", req, resp)
			}
		}),
		jsonrpc2.OnSend(func(req *jsonrpc2.Request, resp *jsonrpc2.Response) {
			if enabled() {
				traceMessage(logger, peer, "send", req, resp)
			}
		}),
	}
}

func traceMessage(logger *zap.Logger, peer, direction string, req *jsonrpc2.Request, resp *jsonrpc2.Response) {
	fields := []zap.Field{zap.String("peer", peer), zap.String("direction", direction)}

	var payload []byte
	switch {
	case resp != nil:
		fields = append(fields, zap.String("id", resp.ID.String()))
		if req != nil {
			fields = append(fields, zap.String("method", req.Method))
		}
		if resp.Error != nil {
			payload, _ = json.Marshal(resp.Error)
		} else if resp.Result != nil {
			payload = *resp.Result
		}
	case req != nil:
		fields = append(fields, zap.String("method", req.Method))
		if !req.Notif {
			fields = append(fields, zap.String("id", req.ID.String()))
		}
		if req.Params != nil {
			payload = *req.Params
		}
	}

	if len(payload) > 0 {
		fields = append(fields, zap.ByteString("payload", pretty.Pretty(payload)))
	}
	logger.Debug("jsonrpc message", fields...)
}
