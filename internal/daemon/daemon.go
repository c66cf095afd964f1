// Package daemon manages the background galley process: PID and port
// files under the data directory, single-instance locking, and the
// detach-and-respawn dance behind `galley start`.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BakeLens/galley/internal/config"
	"github.com/BakeLens/galley/internal/fileutil"
)

const (
	pidFileName  = "galley.pid"
	portFileName = "galley.port"
	logFileName  = "galley.log"
	socketPrefix = "galley-api-" // socket file: galley-api-{port}.sock
)

// DataDir returns the galley data directory and creates it if needed
func DataDir() string {
	dir := config.DefaultDataDir()
	_ = fileutil.SecureMkdirAll(dir) //nolint:errcheck // best effort - dir may exist
	return dir
}

// pidFile returns the path to the PID file
func pidFile() string {
	return filepath.Join(DataDir(), pidFileName)
}

// LogFile returns the path to the log file
func LogFile() string {
	return filepath.Join(DataDir(), logFileName)
}

// LogFileDisplay returns a display-friendly log path using ~ for the home directory.
func LogFileDisplay() string {
	p := LogFile()
	if home, err := os.UserHomeDir(); err == nil {
		if rel, err := filepath.Rel(home, p); err == nil && !filepath.IsAbs(rel) {
			return "~/" + rel
		}
	}
	return p
}

// portFile returns the path to the port file.
func portFile() string {
	return filepath.Join(DataDir(), portFileName)
}

// WritePort writes the control API port number to the port file.
func WritePort(port int) error {
	return fileutil.SecureWriteFile(portFile(), []byte(strconv.Itoa(port)))
}

// ReadPort reads the control API port of the running daemon. CLI
// subcommands use it to derive the socket path via SocketFile.
func ReadPort() (int, error) {
	data, err := os.ReadFile(portFile())
	if err != nil {
		return 0, err
	}

	port, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid port file content: %w", err)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid port value: %d", port)
	}
	return port, nil
}

// ReadPID reads the PID from the PID file
func ReadPID() (int, error) {
	data, err := os.ReadFile(pidFile())
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file content: %w", err)
	}

	// SECURITY: Validate PID is in valid range (1 to max PID)
	// Linux max PID is typically 4194304 (2^22), but 32768 is default
	if pid < 1 || pid > 4194304 {
		return 0, fmt.Errorf("invalid PID value: %d", pid)
	}

	return pid, nil
}

// RemovePID removes the PID file
func RemovePID() error {
	return os.Remove(pidFile())
}

// SocketFile returns the control API socket path for a given port.
// Each galley daemon gets its own socket: ~/.galley/galley-api-{port}.sock
func SocketFile(port int) string {
	return filepath.Join(DataDir(), socketPrefix+strconv.Itoa(port)+".sock")
}

// IsDaemonMode checks if we're running in daemon mode
func IsDaemonMode() bool {
	return os.Getenv("GALLEY_DAEMON") == "1"
}
