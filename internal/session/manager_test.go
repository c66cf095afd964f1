package session

import (
	"errors"
	"os"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/BakeLens/galley/internal/types"
)

// requireShell skips tests that must spawn a real PTY when the
// environment cannot support one, and pins SHELL so the manager picks a
// shell that actually exists.
func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("PTY sessions are not supported on Windows")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh available")
	}
	t.Setenv("SHELL", "/bin/sh")
}

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	m := NewManager(cfg)
	t.Cleanup(m.KillAll)
	return m
}

func waitForTerminal(t *testing.T, m *Manager, id string, timeout time.Duration) Session {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s, ok := m.GetSession(id); ok && s.Status != types.StatusRunning {
			return s
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("session %s did not reach a terminal status within %v", id, timeout)
	return Session{}
}

func TestCreateSession_EchoCompletes(t *testing.T) {
	requireShell(t)
	m := newTestManager(t, Config{})

	s, err := m.CreateSession("", "echo hello", t.TempDir(), CreateOptions{})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if s.Status != types.StatusRunning {
		t.Errorf("initial status = %s, want running", s.Status)
	}

	final := waitForTerminal(t, m, s.ID, 10*time.Second)
	if final.Status != types.StatusCompleted {
		t.Errorf("final status = %s, want completed", final.Status)
	}
	if final.ExitCode == nil || *final.ExitCode != 0 {
		t.Errorf("exit code = %v, want 0", final.ExitCode)
	}

	out, ok := m.GetOutput(s.ID)
	if !ok {
		t.Fatal("GetOutput reported the session unknown")
	}
	if !strings.Contains(out, "hello") {
		t.Errorf("output %q does not contain %q", out, "hello")
	}
}

func TestCreateSession_NonZeroExitFails(t *testing.T) {
	requireShell(t)
	m := newTestManager(t, Config{})

	s, err := m.CreateSession("", "exit 3", t.TempDir(), CreateOptions{})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	final := waitForTerminal(t, m, s.ID, 10*time.Second)
	if final.Status != types.StatusFailed {
		t.Errorf("final status = %s, want failed", final.Status)
	}
	if final.ExitCode == nil || *final.ExitCode != 3 {
		t.Errorf("exit code = %v, want 3", final.ExitCode)
	}
}

func TestCreateSession_RejectsTinyTimeout(t *testing.T) {
	m := newTestManager(t, Config{})

	_, err := m.CreateSession("", "echo hi", ".", CreateOptions{TimeoutMs: 500})
	if !errors.Is(err, ErrTimeoutTooSmall) {
		t.Errorf("CreateSession error = %v, want ErrTimeoutTooSmall", err)
	}
}

func TestCreateSession_ClampsLargeTimeout(t *testing.T) {
	requireShell(t)
	m := newTestManager(t, Config{MaxTimeoutMs: 10000})

	s, err := m.CreateSession("", "true", t.TempDir(), CreateOptions{TimeoutMs: 60000})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if s.TimeoutMs != 10000 {
		t.Errorf("effective timeout = %dms, want clamped 10000ms", s.TimeoutMs)
	}
	waitForTerminal(t, m, s.ID, 10*time.Second)
}

func TestCreateSession_BadWorkingDirectory(t *testing.T) {
	m := newTestManager(t, Config{})

	if _, err := m.CreateSession("", "echo hi", "/nonexistent/galley/dir", CreateOptions{}); err == nil {
		t.Error("CreateSession accepted a missing working directory")
	}
}

func TestCreateSession_ConcurrencyLimit(t *testing.T) {
	requireShell(t)
	m := newTestManager(t, Config{MaxConcurrency: 2})
	dir := t.TempDir()

	s1, err := m.CreateSession("", "sleep 5", dir, CreateOptions{})
	if err != nil {
		t.Fatalf("first CreateSession failed: %v", err)
	}
	if _, err := m.CreateSession("", "sleep 5", dir, CreateOptions{}); err != nil {
		t.Fatalf("second CreateSession failed: %v", err)
	}

	_, err = m.CreateSession("", "sleep 5", dir, CreateOptions{})
	if !errors.Is(err, ErrConcurrencyLimit) {
		t.Fatalf("third CreateSession error = %v, want ErrConcurrencyLimit", err)
	}

	// Cancelling one frees a slot immediately; running is counted by
	// status, not by table size.
	if !m.CancelSession(s1.ID, "test") {
		t.Fatal("CancelSession returned false for a running session")
	}
	if _, err := m.CreateSession("", "sleep 5", dir, CreateOptions{}); err != nil {
		t.Errorf("CreateSession after freeing a slot failed: %v", err)
	}
}

func TestCancelSession_Idempotent(t *testing.T) {
	requireShell(t)
	m := newTestManager(t, Config{})

	s, err := m.CreateSession("", "sleep 5", t.TempDir(), CreateOptions{})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if !m.CancelSession(s.ID, "first") {
		t.Fatal("first CancelSession returned false")
	}
	got, ok := m.GetSession(s.ID)
	if !ok || got.Status != types.StatusCancelled {
		t.Errorf("status after cancel = %s, want cancelled", got.Status)
	}
	if m.CancelSession(s.ID, "second") {
		t.Error("second CancelSession returned true on a terminal session")
	}
}

func TestCancelSession_UnknownID(t *testing.T) {
	m := newTestManager(t, Config{})
	if m.CancelSession("no-such-session", "") {
		t.Error("CancelSession returned true for an unknown id")
	}
}

func TestSession_TimeoutFires(t *testing.T) {
	requireShell(t)
	m := newTestManager(t, Config{})

	s, err := m.CreateSession("", "sleep 30", t.TempDir(), CreateOptions{TimeoutMs: 1000})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	final := waitForTerminal(t, m, s.ID, 5*time.Second)
	if final.Status != types.StatusTimedOut {
		t.Errorf("final status = %s, want timed_out", final.Status)
	}
}

func TestWriteToSession_OnlyWhileRunning(t *testing.T) {
	requireShell(t)
	m := newTestManager(t, Config{})

	s, err := m.CreateSession("", "sleep 2", t.TempDir(), CreateOptions{})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if !m.WriteToSession(s.ID, "ignored\n") {
		t.Error("WriteToSession returned false for a running session")
	}

	m.CancelSession(s.ID, "test")
	if m.WriteToSession(s.ID, "late\n") {
		t.Error("WriteToSession returned true for a cancelled session")
	}
	if m.WriteToSession("no-such-session", "x") {
		t.Error("WriteToSession returned true for an unknown session")
	}
}

func TestResizeSession_OnlyWhileRunning(t *testing.T) {
	requireShell(t)
	m := newTestManager(t, Config{})

	s, err := m.CreateSession("", "sleep 2", t.TempDir(), CreateOptions{})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if !m.ResizeSession(s.ID, 120, 40) {
		t.Error("ResizeSession returned false for a running session")
	}

	m.CancelSession(s.ID, "test")
	if m.ResizeSession(s.ID, 80, 30) {
		t.Error("ResizeSession returned true for a cancelled session")
	}
}

func TestCleanupSession(t *testing.T) {
	requireShell(t)
	m := newTestManager(t, Config{})

	s, err := m.CreateSession("", "sleep 5", t.TempDir(), CreateOptions{})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if m.CleanupSession(s.ID) {
		t.Error("CleanupSession removed a running session")
	}

	m.CancelSession(s.ID, "test")
	if !m.CleanupSession(s.ID) {
		t.Error("CleanupSession returned false for a terminal session")
	}
	if _, ok := m.GetSession(s.ID); ok {
		t.Error("session still present after cleanup")
	}
	if m.CleanupSession(s.ID) {
		t.Error("second CleanupSession returned true")
	}
}

func TestCleanupCompleted(t *testing.T) {
	requireShell(t)
	m := newTestManager(t, Config{})
	dir := t.TempDir()

	a, err := m.CreateSession("", "true", dir, CreateOptions{})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	b, err := m.CreateSession("", "true", dir, CreateOptions{})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	waitForTerminal(t, m, a.ID, 10*time.Second)
	waitForTerminal(t, m, b.ID, 10*time.Second)

	if got := m.CleanupCompleted(); got != 2 {
		t.Errorf("CleanupCompleted() = %d, want 2", got)
	}
	if got := len(m.ListSessions()); got != 0 {
		t.Errorf("%d sessions left after cleanup, want 0", got)
	}
}

func TestKillAll_CancelsEverything(t *testing.T) {
	requireShell(t)
	m := newTestManager(t, Config{})
	dir := t.TempDir()

	for i := 0; i < 3; i++ {
		if _, err := m.CreateSession("", "sleep 10", dir, CreateOptions{}); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
	}

	m.KillAll()

	if got := m.RunningCount(); got != 0 {
		t.Errorf("RunningCount() = %d after KillAll, want 0", got)
	}
	for _, s := range m.ListSessions() {
		if s.Status != types.StatusCancelled {
			t.Errorf("session %s status = %s, want cancelled", s.ID, s.Status)
		}
	}
}

func TestSubscribe_ReceivesOutputAndExit(t *testing.T) {
	requireShell(t)
	m := newTestManager(t, Config{})

	s, err := m.CreateSession("", "sleep 1; echo streamed", t.TempDir(), CreateOptions{})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	_, ch, ok := m.Subscribe(s.ID)
	if !ok {
		t.Fatal("Subscribe returned false for a live session")
	}

	var sawData, sawExit bool
	deadline := time.After(10 * time.Second)
	for {
		select {
		case ev, open := <-ch:
			if !open {
				if !sawData || !sawExit {
					t.Errorf("stream closed early: sawData=%v sawExit=%v", sawData, sawExit)
				}
				return
			}
			switch ev.Type {
			case types.EventData:
				if strings.Contains(ev.Data, "streamed") {
					sawData = true
				}
			case types.EventExit:
				if ev.ExitCode == nil || *ev.ExitCode != 0 {
					t.Errorf("exit event code = %v, want 0", ev.ExitCode)
				}
				sawExit = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for session events")
		}
	}
}

func TestSubscribe_TerminalSessionGetsClosedChannel(t *testing.T) {
	requireShell(t)
	m := newTestManager(t, Config{})

	s, err := m.CreateSession("", "true", t.TempDir(), CreateOptions{})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	waitForTerminal(t, m, s.ID, 10*time.Second)

	_, ch, ok := m.Subscribe(s.ID)
	if !ok {
		t.Fatal("Subscribe returned false for a known terminal session")
	}
	select {
	case _, open := <-ch:
		if open {
			t.Error("expected a closed channel, received an event")
		}
	case <-time.After(2 * time.Second):
		t.Error("channel for a terminal session was not closed")
	}
}

func TestSubscribe_UnknownSession(t *testing.T) {
	m := newTestManager(t, Config{})
	if _, _, ok := m.Subscribe("no-such-session"); ok {
		t.Error("Subscribe returned true for an unknown session")
	}
}

func TestUnsubscribe_ClosesChannel(t *testing.T) {
	requireShell(t)
	m := newTestManager(t, Config{})

	s, err := m.CreateSession("", "sleep 3", t.TempDir(), CreateOptions{})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	subID, ch, ok := m.Subscribe(s.ID)
	if !ok {
		t.Fatal("Subscribe failed")
	}
	m.Unsubscribe(s.ID, subID)

	select {
	case _, open := <-ch:
		if open {
			t.Error("received an event on an unsubscribed channel")
		}
	case <-time.After(2 * time.Second):
		t.Error("unsubscribed channel was not closed")
	}
}

func TestCreateSession_MergesEnv(t *testing.T) {
	requireShell(t)
	m := newTestManager(t, Config{})

	s, err := m.CreateSession("", `echo "$GALLEY_TEST_VAR"`, t.TempDir(), CreateOptions{
		Env: map[string]string{"GALLEY_TEST_VAR": "galley-env-value"},
	})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	waitForTerminal(t, m, s.ID, 10*time.Second)

	out, _ := m.GetOutput(s.ID)
	if !strings.Contains(out, "galley-env-value") {
		t.Errorf("output %q does not contain the merged env value", out)
	}
}

func TestCreateSession_DuplicateID(t *testing.T) {
	requireShell(t)
	m := newTestManager(t, Config{})
	dir := t.TempDir()

	if _, err := m.CreateSession("dup", "sleep 2", dir, CreateOptions{}); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := m.CreateSession("dup", "sleep 2", dir, CreateOptions{}); err == nil {
		t.Error("CreateSession accepted a duplicate id")
	}
}
