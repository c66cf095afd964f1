//go:build windows

package api

import (
	"fmt"
	"net"
	"path/filepath"

	"github.com/Microsoft/go-winio"
)

// pipeName derives the Windows named pipe path from a socket path. Only
// the base name is used; the pipe namespace is flat and the caller
// already embeds the port for uniqueness.
func pipeName(socketPath string) string {
	return `\\.\pipe\` + filepath.Base(socketPath)
}

// Listener creates a Windows named pipe listener.
func Listener(socketPath string) (net.Listener, error) {
	name := pipeName(socketPath)

	cfg := &winio.PipeConfig{
		// Empty SecurityDescriptor inherits the default DACL, which
		// limits connections to the creator and local admins.
		MessageMode: false,
	}

	ln, err := winio.ListenPipe(name, cfg)
	if err != nil {
		return nil, fmt.Errorf("listen pipe %s: %w", name, err)
	}
	return ln, nil
}

// CleanupSocket is a no-op on Windows; named pipes are cleaned up by the kernel.
func CleanupSocket(_ string) {}
