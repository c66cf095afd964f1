package api

import (
	"net/http"
	"time"
)

// BaseURL is the dummy host for socket-based API requests. The actual
// routing happens via the client transport (Unix socket / named pipe).
const BaseURL = "http://galley-api"

// SocketClient returns an HTTP client wired to the daemon's local
// socket. CLI subcommands use it with BaseURL-relative requests.
func SocketClient(socketPath string) *http.Client {
	return &http.Client{
		Transport: Transport(socketPath),
		Timeout:   5 * time.Second,
	}
}
