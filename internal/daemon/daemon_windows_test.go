//go:build windows

package daemon

import (
	"os"
	"strconv"
	"strings"
	"testing"
)

func TestWritePID_Windows(t *testing.T) {
	t.Setenv("GALLEY_DATA_DIR", t.TempDir())

	if err := WritePID(); err != nil {
		t.Fatalf("WritePID: %v", err)
	}
	defer CleanupPID()

	// The exclusive lock sits at a high offset so the PID bytes stay
	// readable while the daemon holds it.
	data, err := os.ReadFile(pidFile())
	if err != nil {
		t.Fatalf("PID file should be readable while locked: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid != os.Getpid() {
		t.Errorf("PID file content = %q, want %d", data, os.Getpid())
	}

	err = WritePID()
	if err == nil {
		t.Fatal("second WritePID should fail while the lock is held")
	}
	if !strings.Contains(err.Error(), "another galley is running") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestIsRunning_Self(t *testing.T) {
	t.Setenv("GALLEY_DATA_DIR", t.TempDir())

	if err := WritePID(); err != nil {
		t.Fatalf("WritePID: %v", err)
	}
	defer CleanupPID()

	running, pid := IsRunning()
	if !running {
		t.Error("IsRunning = false for our own live PID")
	}
	if pid != os.Getpid() {
		t.Errorf("IsRunning pid = %d, want %d", pid, os.Getpid())
	}
}

func TestCleanupPID_ReleasesLock(t *testing.T) {
	t.Setenv("GALLEY_DATA_DIR", t.TempDir())

	if err := WritePID(); err != nil {
		t.Fatalf("WritePID: %v", err)
	}
	CleanupPID()

	// After cleanup the lock is released and a fresh instance can start.
	if err := WritePID(); err != nil {
		t.Fatalf("WritePID after CleanupPID: %v", err)
	}
	CleanupPID()
}
