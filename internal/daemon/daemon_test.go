//go:build unix

package daemon

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPIDRoundTrip(t *testing.T) {
	t.Setenv("GALLEY_DATA_DIR", t.TempDir())

	if err := WritePID(); err != nil {
		t.Fatalf("WritePID: %v", err)
	}
	defer CleanupPID()

	pid, err := ReadPID()
	if err != nil {
		t.Fatalf("ReadPID: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("ReadPID = %d, want %d", pid, os.Getpid())
	}

	running, gotPID := IsRunning()
	if !running {
		t.Error("IsRunning = false for our own live PID")
	}
	if gotPID != os.Getpid() {
		t.Errorf("IsRunning pid = %d, want %d", gotPID, os.Getpid())
	}

	CleanupPID()
	if _, err := ReadPID(); err == nil {
		t.Error("ReadPID should fail after CleanupPID")
	}
}

func TestWritePID_SecondInstanceFails(t *testing.T) {
	t.Setenv("GALLEY_DATA_DIR", t.TempDir())

	if err := WritePID(); err != nil {
		t.Fatalf("first WritePID: %v", err)
	}
	defer CleanupPID()

	// flock treats descriptors from separate opens independently, so a
	// second acquisition conflicts even within a single process.
	err := WritePID()
	if err == nil {
		t.Fatal("second WritePID should fail while the lock is held")
	}
	if !strings.Contains(err.Error(), "another galley is running") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPortRoundTrip(t *testing.T) {
	t.Setenv("GALLEY_DATA_DIR", t.TempDir())

	if err := WritePort(9191); err != nil {
		t.Fatalf("WritePort: %v", err)
	}
	port, err := ReadPort()
	if err != nil {
		t.Fatalf("ReadPort: %v", err)
	}
	if port != 9191 {
		t.Errorf("ReadPort = %d, want 9191", port)
	}
}

func TestReadPort_Invalid(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GALLEY_DATA_DIR", dir)

	if _, err := ReadPort(); err == nil {
		t.Error("ReadPort should fail when no port file exists")
	}

	write := func(content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, portFileName), []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}

	write("not-a-port\n")
	if _, err := ReadPort(); err == nil {
		t.Error("ReadPort should reject non-numeric content")
	}

	write("70000\n")
	if _, err := ReadPort(); err == nil {
		t.Error("ReadPort should reject out-of-range ports")
	}

	write(" 8080\n")
	port, err := ReadPort()
	if err != nil {
		t.Fatalf("ReadPort with surrounding whitespace: %v", err)
	}
	if port != 8080 {
		t.Errorf("ReadPort = %d, want 8080", port)
	}
}

func TestReadPID_Validation(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GALLEY_DATA_DIR", dir)

	write := func(content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, pidFileName), []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}

	write("abc")
	if _, err := ReadPID(); err == nil {
		t.Error("ReadPID should reject non-numeric content")
	}

	write("999999999")
	if _, err := ReadPID(); err == nil {
		t.Error("ReadPID should reject PIDs above the kernel maximum")
	}

	write("0")
	if _, err := ReadPID(); err == nil {
		t.Error("ReadPID should reject PID 0")
	}
}

func TestCleanupPID_RemovesSockets(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GALLEY_DATA_DIR", dir)

	if err := WritePID(); err != nil {
		t.Fatalf("WritePID: %v", err)
	}
	sock := filepath.Join(dir, "galley-api-9191.sock")
	if err := os.WriteFile(sock, nil, 0600); err != nil {
		t.Fatal(err)
	}

	CleanupPID()

	if _, err := os.Stat(sock); !os.IsNotExist(err) {
		t.Error("CleanupPID should remove leftover API sockets")
	}
	if _, err := os.Stat(filepath.Join(dir, pidFileName)); !os.IsNotExist(err) {
		t.Error("CleanupPID should remove the PID file")
	}
}

func TestSocketFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GALLEY_DATA_DIR", dir)

	got := SocketFile(9191)
	want := filepath.Join(dir, "galley-api-9191.sock")
	if got != want {
		t.Errorf("SocketFile = %q, want %q", got, want)
	}
}

func TestIsDaemonMode(t *testing.T) {
	t.Setenv("GALLEY_DAEMON", "")
	if IsDaemonMode() {
		t.Error("IsDaemonMode should be false without GALLEY_DAEMON")
	}

	t.Setenv("GALLEY_DAEMON", "1")
	if !IsDaemonMode() {
		t.Error("IsDaemonMode should be true with GALLEY_DAEMON=1")
	}
}

func TestStop_NotRunning(t *testing.T) {
	t.Setenv("GALLEY_DATA_DIR", t.TempDir())

	err := Stop()
	if err == nil {
		t.Fatal("Stop should fail when no daemon is running")
	}
	if !strings.Contains(err.Error(), "not running") {
		t.Errorf("unexpected error: %v", err)
	}
}
