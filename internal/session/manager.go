package session

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/google/uuid"

	"github.com/BakeLens/galley/internal/logger"
	"github.com/BakeLens/galley/internal/types"
)

var log = logger.New("session")

// Config sets the manager's admission and timeout policy.
type Config struct {
	// MaxConcurrency caps simultaneously running sessions.
	MaxConcurrency int
	// DefaultTimeoutMs applies when a caller passes no timeout.
	DefaultTimeoutMs int
	// MaxTimeoutMs silently clamps larger requested timeouts.
	MaxTimeoutMs int
	// SanitizeEnv restricts the child environment to a safe-key subset
	// instead of the full process environment.
	SanitizeEnv bool
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 5
	}
	if c.DefaultTimeoutMs <= 0 {
		c.DefaultTimeoutMs = 60000
	}
	if c.MaxTimeoutMs <= 0 {
		c.MaxTimeoutMs = 300000
	}
	return c
}

// Manager owns the session table. All snapshot mutation happens under
// the table mutex; PTY reads and subscriber fan-out run on their own
// goroutines against self-locked structures.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*managedSession
	cfg      Config
}

// NewManager creates a manager. Callers own the instance and its
// lifecycle; there is no process-wide manager.
func NewManager(cfg Config) *Manager {
	return &Manager{
		sessions: make(map[string]*managedSession),
		cfg:      cfg.withDefaults(),
	}
}

// MaxConcurrency returns the configured concurrency cap.
func (m *Manager) MaxConcurrency() int { return m.cfg.MaxConcurrency }

// DefaultTimeoutMs returns the timeout applied when callers pass none.
func (m *Manager) DefaultTimeoutMs() int { return m.cfg.DefaultTimeoutMs }

// CreateOptions carries the per-session knobs of CreateSession.
type CreateOptions struct {
	// TimeoutMs overrides the default timeout. Values below MinTimeoutMs
	// are rejected; values above the configured maximum are clamped.
	TimeoutMs int
	// Env is merged over the base environment, overriding on conflict.
	Env map[string]string
}

// CanCreateSession reports whether admission would currently succeed.
func (m *Manager) CanCreateSession() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.runningCountLocked() < m.cfg.MaxConcurrency
}

// CreateSession spawns command under the user's shell on a fresh PTY and
// registers it in the live table. The id may be empty, in which case one
// is generated. A session is only ever registered after the spawn fully
// succeeded; concurrency and timeout violations fail synchronously.
func (m *Manager) CreateSession(id, command, cwd string, opts CreateOptions) (Session, error) {
	if id == "" {
		id = uuid.New().String()
	}

	timeoutMs := opts.TimeoutMs
	if timeoutMs == 0 {
		timeoutMs = m.cfg.DefaultTimeoutMs
	}
	if timeoutMs < MinTimeoutMs {
		return Session{}, fmt.Errorf("%w: %dms < %dms", ErrTimeoutTooSmall, timeoutMs, MinTimeoutMs)
	}
	if timeoutMs > m.cfg.MaxTimeoutMs {
		log.Debug("Requested timeout %dms exceeds maximum, clamping to %dms", timeoutMs, m.cfg.MaxTimeoutMs)
		timeoutMs = m.cfg.MaxTimeoutMs
	}

	info, err := os.Stat(cwd)
	if err != nil {
		return Session{}, fmt.Errorf("working directory does not exist: %s", cwd)
	}
	if !info.IsDir() {
		return Session{}, fmt.Errorf("working directory is not a directory: %s", cwd)
	}

	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/bash"
	}

	// The table lock is held across the spawn: admission stays exact and
	// a session becomes visible only after its process exists.
	m.mu.Lock()
	if _, exists := m.sessions[id]; exists {
		m.mu.Unlock()
		return Session{}, fmt.Errorf("session %s already exists", id)
	}
	if running := m.runningCountLocked(); running >= m.cfg.MaxConcurrency {
		m.mu.Unlock()
		return Session{}, fmt.Errorf("%w: %d of %d running", ErrConcurrencyLimit, running, m.cfg.MaxConcurrency)
	}

	cmd := exec.Command(shell, "-c", command)
	cmd.Dir = cwd
	cmd.Env = buildEnv(opts.Env, m.cfg.SanitizeEnv)
	setProcAttr(cmd)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: ptyCols, Rows: ptyRows})
	if err != nil {
		m.mu.Unlock()
		return Session{}, &SpawnError{Shell: shell, Err: err}
	}

	ms := &managedSession{
		session: Session{
			ID:        id,
			Command:   command,
			Cwd:       cwd,
			Status:    types.StatusRunning,
			TimeoutMs: timeoutMs,
			StartedAt: time.Now().UTC(),
		},
		cmd:         cmd,
		ptmx:        ptmx,
		buffer:      NewBoundedBuffer(OutputBufferMaxSize),
		subscribers: make(map[string]chan Event),
		readDone:    make(chan struct{}),
	}
	m.sessions[id] = ms
	ms.timer = time.AfterFunc(time.Duration(timeoutMs)*time.Millisecond, func() {
		m.handleTimeout(id)
	})
	snapshot := ms.session
	m.mu.Unlock()

	log.Info("Session %s started: %q in %s (pid %d, timeout %dms)",
		id, command, cwd, cmd.Process.Pid, timeoutMs)

	go m.readLoop(ms)
	go m.waitForExit(ms)

	return snapshot, nil
}

// readLoop pumps PTY output into the bounded buffer and out to
// subscribers until the PTY reports an error (EIO once the child side
// closes).
func (m *Manager) readLoop(ms *managedSession) {
	defer close(ms.readDone)
	defer ms.closePTY()

	buf := make([]byte, 4096)
	for {
		n, err := ms.ptmx.Read(buf)
		if n > 0 {
			data := string(buf[:n])
			ms.buffer.Append(data)
			m.fanOut(ms, Event{
				SessionID: ms.session.ID,
				Type:      types.EventData,
				Data:      data,
				Timestamp: time.Now().UTC(),
			})
		}
		if err != nil {
			return
		}
	}
}

// waitForExit reaps the child, drains the read loop, finalizes the
// buffer and records the terminal status unless cancellation or timeout
// already claimed it.
func (m *Manager) waitForExit(ms *managedSession) {
	err := ms.cmd.Wait()

	// Let the read loop drain what the PTY still holds; a grandchild
	// keeping the slave side open must not stall finalization forever.
	select {
	case <-ms.readDone:
	case <-time.After(500 * time.Millisecond):
		ms.closePTY()
		<-ms.readDone
	}

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	ms.buffer.Flush()

	m.mu.Lock()
	ms.timer.Stop()
	code := exitCode
	ms.session.ExitCode = &code
	ms.session.Truncated = ms.buffer.Truncated()
	if ms.session.Status == types.StatusRunning {
		if exitCode == 0 {
			ms.session.Status = types.StatusCompleted
		} else {
			ms.session.Status = types.StatusFailed
		}
		now := time.Now().UTC()
		ms.session.EndedAt = &now
	}
	id := ms.session.ID
	status := ms.session.Status
	m.mu.Unlock()

	log.Info("Session %s ended: status=%s exit=%d", id, status, exitCode)

	m.fanOut(ms, Event{
		SessionID: id,
		Type:      types.EventExit,
		ExitCode:  &code,
		Timestamp: time.Now().UTC(),
	})
	m.closeSubscribers(ms)
}

// handleTimeout fires from the session timer. Only a still-running
// session is claimed; the exit handler records nothing further once a
// terminal status exists.
func (m *Manager) handleTimeout(id string) {
	m.mu.Lock()
	ms, ok := m.sessions[id]
	if !ok || ms.session.Status != types.StatusRunning {
		m.mu.Unlock()
		return
	}
	ms.session.Status = types.StatusTimedOut
	now := time.Now().UTC()
	ms.session.EndedAt = &now
	timeoutMs := ms.session.TimeoutMs
	m.mu.Unlock()

	log.Warn("Session %s timed out after %dms, escalating kill", id, timeoutMs)
	gracefulKill(ms.cmd.Process)

	m.fanOut(ms, Event{
		SessionID: id,
		Type:      types.EventTimeout,
		Data:      fmt.Sprintf("session timed out after %dms", timeoutMs),
		TimeoutMs: timeoutMs,
		Timestamp: time.Now().UTC(),
	})
}

// CancelSession terminates a running session. It is idempotent: unknown
// or already-terminal sessions return false, never an error. Cancelled
// means termination initiated; the process disappears only after the
// kill escalation completes.
func (m *Manager) CancelSession(id, reason string) bool {
	m.mu.Lock()
	ms, ok := m.sessions[id]
	if !ok || ms.session.Status != types.StatusRunning {
		m.mu.Unlock()
		return false
	}
	ms.timer.Stop()
	ms.session.Status = types.StatusCancelled
	now := time.Now().UTC()
	ms.session.EndedAt = &now
	m.mu.Unlock()

	if reason == "" {
		reason = "session cancelled"
	}
	log.Info("Session %s cancelled: %s", id, reason)
	gracefulKill(ms.cmd.Process)

	m.fanOut(ms, Event{
		SessionID: id,
		Type:      types.EventError,
		Data:      reason,
		Timestamp: time.Now().UTC(),
	})
	return true
}

// WriteToSession writes data to the session's PTY. Only running sessions
// accept writes; anything else returns false.
func (m *Manager) WriteToSession(id, data string) bool {
	m.mu.RLock()
	ms, ok := m.sessions[id]
	running := ok && ms.session.Status == types.StatusRunning
	m.mu.RUnlock()
	if !running {
		return false
	}
	_, err := ms.ptmx.Write([]byte(data))
	return err == nil
}

// ResizeSession changes the PTY window size of a running session.
func (m *Manager) ResizeSession(id string, cols, rows uint16) bool {
	m.mu.RLock()
	ms, ok := m.sessions[id]
	running := ok && ms.session.Status == types.StatusRunning
	m.mu.RUnlock()
	if !running {
		return false
	}
	return pty.Setsize(ms.ptmx, &pty.Winsize{Cols: cols, Rows: rows}) == nil
}

// GetSession returns a snapshot of the session, false if unknown.
func (m *Manager) GetSession(id string) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ms, ok := m.sessions[id]
	if !ok {
		return Session{}, false
	}
	return m.snapshotLocked(ms), true
}

// GetOutput returns the retained output of the session, false if
// unknown. The result is capped by the buffer limit with a marker when
// truncation occurred.
func (m *Manager) GetOutput(id string) (string, bool) {
	m.mu.RLock()
	ms, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return "", false
	}
	return ms.buffer.String(), true
}

// ListSessions returns snapshots of every tracked session, oldest first.
func (m *Manager) ListSessions() []Session {
	m.mu.RLock()
	out := make([]Session, 0, len(m.sessions))
	for _, ms := range m.sessions {
		out = append(out, m.snapshotLocked(ms))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// RunningCount returns the number of live sessions.
func (m *Manager) RunningCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.runningCountLocked()
}

// CleanupSession drops a terminal session from the table, releasing its
// buffer. Running sessions are never cleaned up; returns false for them
// and for unknown ids.
func (m *Manager) CleanupSession(id string) bool {
	m.mu.Lock()
	ms, ok := m.sessions[id]
	if !ok || ms.session.Status == types.StatusRunning {
		m.mu.Unlock()
		return false
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	m.closeSubscribers(ms)
	log.Debug("Session %s cleaned up", id)
	return true
}

// CleanupCompleted drops every terminal session, returning how many were
// removed.
func (m *Manager) CleanupCompleted() int {
	m.mu.Lock()
	var removed []*managedSession
	for id, ms := range m.sessions {
		if ms.session.Status != types.StatusRunning {
			delete(m.sessions, id)
			removed = append(removed, ms)
		}
	}
	m.mu.Unlock()

	for _, ms := range removed {
		m.closeSubscribers(ms)
	}
	if len(removed) > 0 {
		log.Debug("Cleaned up %d terminal sessions", len(removed))
	}
	return len(removed)
}

// KillAll cancels every running session in parallel. Used at shutdown.
func (m *Manager) KillAll() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id, ms := range m.sessions {
		if ms.session.Status == types.StatusRunning {
			ids = append(ids, id)
		}
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			m.CancelSession(id, "shutdown")
		}(id)
	}
	wg.Wait()
}

// Subscribe attaches a buffered event channel to the session. The
// channel closes when the session ends or is cleaned up; subscribing to
// an already-terminal session yields an immediately-closed channel.
// Callers that stop reading early must Unsubscribe or the registration
// stays until session end.
func (m *Manager) Subscribe(id string) (string, <-chan Event, bool) {
	m.mu.RLock()
	ms, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return "", nil, false
	}

	subID := uuid.New().String()
	ch := make(chan Event, subscriberBufCap)

	ms.subMu.Lock()
	if ms.ended {
		close(ch)
	} else {
		ms.subscribers[subID] = ch
	}
	ms.subMu.Unlock()

	return subID, ch, true
}

// Unsubscribe detaches and closes a subscription. Unknown ids are
// ignored.
func (m *Manager) Unsubscribe(id, subID string) {
	m.mu.RLock()
	ms, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return
	}

	ms.subMu.Lock()
	if ch, exists := ms.subscribers[subID]; exists {
		close(ch)
		delete(ms.subscribers, subID)
	}
	ms.subMu.Unlock()
}

// fanOut delivers an event to every subscriber without blocking; a full
// subscriber channel drops the event for that subscriber only.
func (m *Manager) fanOut(ms *managedSession, ev Event) {
	ms.subMu.RLock()
	defer ms.subMu.RUnlock()
	for _, ch := range ms.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// closeSubscribers ends every subscription and marks the session so
// late Subscribe calls get a closed channel instead of one that never
// delivers.
func (m *Manager) closeSubscribers(ms *managedSession) {
	ms.subMu.Lock()
	defer ms.subMu.Unlock()
	if ms.ended {
		return
	}
	ms.ended = true
	for subID, ch := range ms.subscribers {
		close(ch)
		delete(ms.subscribers, subID)
	}
}

// snapshotLocked copies the session record; the caller holds the table
// lock in either mode.
func (m *Manager) snapshotLocked(ms *managedSession) Session {
	s := ms.session
	s.Truncated = ms.buffer.Truncated()
	return s
}

func (m *Manager) runningCountLocked() int {
	n := 0
	for _, ms := range m.sessions {
		if ms.session.Status == types.StatusRunning {
			n++
		}
	}
	return n
}
