package session

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/BakeLens/galley/internal/types"
)

const (
	// MinTimeoutMs is the floor below which a requested timeout is
	// rejected rather than clamped.
	MinTimeoutMs = 1000

	// KillGracePeriod is the window between SIGTERM and SIGKILL.
	KillGracePeriod = 5 * time.Second

	// PTY dimensions are fixed; output consumers are machines, not
	// humans resizing windows.
	ptyCols = 80
	ptyRows = 30

	subscriberBufCap = 100
)

// Sentinel errors callers branch on. Both are configuration/programming
// errors and are returned synchronously from CreateSession; security
// denials never surface as Go errors.
var (
	ErrConcurrencyLimit = errors.New("session concurrency limit reached")
	ErrTimeoutTooSmall  = errors.New("session timeout below minimum")
)

// SpawnError wraps the OS error behind a failed shell spawn.
type SpawnError struct {
	Shell string
	Err   error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn shell %s: %v", e.Shell, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Session is a point-in-time snapshot of one terminal session. Mutable
// state lives inside the manager; snapshots are safe to retain and
// serialize.
type Session struct {
	ID        string              `json:"id"`
	Command   string              `json:"command"`
	Cwd       string              `json:"cwd"`
	Status    types.SessionStatus `json:"status"`
	ExitCode  *int                `json:"exitCode,omitempty"`
	TimeoutMs int                 `json:"timeoutMs"`
	StartedAt time.Time           `json:"startedAt"`
	EndedAt   *time.Time          `json:"endedAt,omitempty"`
	Truncated bool                `json:"truncated"`
}

// Running reports whether the snapshot was taken while the session was
// still live.
func (s Session) Running() bool {
	return s.Status == types.StatusRunning
}

// Event is one item on a session's output stream.
type Event struct {
	SessionID string          `json:"sessionId"`
	Type      types.EventType `json:"type"`
	Data      string          `json:"data,omitempty"`
	ExitCode  *int            `json:"exitCode,omitempty"`
	TimeoutMs int             `json:"timeoutMs,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// managedSession pairs the public snapshot fields with the runtime
// handles the manager owns. Snapshot fields are guarded by the manager
// mutex; the buffer and subscriber map carry their own locks.
type managedSession struct {
	session Session

	cmd    *exec.Cmd
	ptmx   *os.File
	buffer *BoundedBuffer
	timer  *time.Timer

	subMu       sync.RWMutex
	subscribers map[string]chan Event
	// ended flips once subscriptions are torn down; late Subscribe calls
	// then receive a closed channel.
	ended bool

	readDone chan struct{}
	ptyOnce  sync.Once
}

// closePTY closes the master side exactly once. Safe to call from the
// read loop and the exit path concurrently.
func (ms *managedSession) closePTY() {
	ms.ptyOnce.Do(func() {
		if ms.ptmx != nil {
			ms.ptmx.Close()
		}
	})
}
