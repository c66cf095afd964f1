//go:build windows

package api

import (
	"context"
	"net"
	"net/http"

	"github.com/Microsoft/go-winio"
)

// Transport returns an HTTP transport that connects via the daemon's
// named pipe. The request URL host is ignored; all traffic goes through
// the pipe.
func Transport(socketPath string) http.RoundTripper {
	return &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return Dial(ctx, socketPath)
		},
	}
}

// Dial opens one raw connection to the daemon pipe. Websocket clients
// dial this way because they cannot go through http.Transport.
func Dial(ctx context.Context, socketPath string) (net.Conn, error) {
	return winio.DialPipeContext(ctx, pipeName(socketPath))
}
