package remote

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/sourcegraph/jsonrpc2"
	jsonrpc2ws "github.com/sourcegraph/jsonrpc2/websocket"
)

// Dial connects to an analysis server. Supported addresses are
// tcp://host:port, host:port, unix:///path/to/socket, ws:// and wss:// URLs.
func Dial(ctx context.Context, address string) (jsonrpc2.ObjectStream, error) {
	network, target, err := parseAddress(address)
	if err != nil {
		return nil, err
	}

	switch network {
	case "ws":
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to dial %s: %w", target, err)
		}
		return jsonrpc2ws.NewObjectStream(conn), nil
	default:
		var dialer net.Dialer
		conn, err := dialer.DialContext(ctx, network, target)
		if err != nil {
			return nil, fmt.Errorf("failed to dial %s %s: %w", network, target, err)
		}
		return jsonrpc2.NewBufferedStream(conn, jsonrpc2.VSCodeObjectCodec{}), nil
	}
}

func parseAddress(address string) (network, target string, err error) {
	if address == "" {
		return "", "", fmt.Errorf("empty remote address")
	}
	if !strings.Contains(address, "://") {
		return "tcp", address, nil
	}

	u, err := url.Parse(address)
	if err != nil {
		return "", "", fmt.Errorf("invalid remote address %q: %w", address, err)
	}

	switch u.Scheme {
	case "tcp":
		if u.Host == "" {
			return "", "", fmt.Errorf("invalid remote address %q: missing host", address)
		}
		return "tcp", u.Host, nil
	case "unix":
		path := u.Path
		if u.Host != "" {
			path = u.Host + path
		}
		if path == "" {
			return "", "", fmt.Errorf("invalid remote address %q: missing socket path", address)
		}
		return "unix", path, nil
	case "ws", "wss":
		return "ws", address, nil
	default:
		return "", "", fmt.Errorf("unsupported remote address scheme %q", u.Scheme)
	}
}
