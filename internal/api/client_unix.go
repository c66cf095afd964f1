//go:build unix

package api

import (
	"context"
	"net"
	"net/http"
)

// Transport returns an HTTP transport that connects via the daemon's
// Unix domain socket. The request URL host is ignored; all traffic goes
// through the socket.
func Transport(socketPath string) http.RoundTripper {
	return &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return Dial(ctx, socketPath)
		},
	}
}

// Dial opens one raw connection to the daemon socket. Websocket clients
// dial this way because they cannot go through http.Transport.
func Dial(ctx context.Context, socketPath string) (net.Conn, error) {
	dialer := &net.Dialer{}
	return dialer.DialContext(ctx, "unix", socketPath)
}
