// Package stream bridges raw session output to live consumers. It is
// independent of the session manager: callers pump data and lifecycle
// notices in by session id, subscribers get notifications out.
//
// Its per-session buffer is a live tail, not an audit trail: past the
// cap the oldest bytes are dropped from the front so the buffer always
// reflects the most recent output. The session manager's own buffer has
// the opposite policy and keeps the head of the stream.
package stream

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BakeLens/galley/internal/logger"
	"github.com/google/uuid"
)

var log = logger.New("stream")

// DefaultMaxBufferSize caps each session's tail buffer.
const DefaultMaxBufferSize = 1 << 20

const subscriberBufCap = 100

// Kind classifies stream notifications.
type Kind string

const (
	// KindOutput carries a raw chunk of session output.
	KindOutput Kind = "output"
	// KindLine carries one trimmed, non-empty output line.
	KindLine Kind = "line"
	// KindExit reports process exit.
	KindExit Kind = "exit"
	// KindError reports a session error or cancellation.
	KindError Kind = "error"
	// KindTimeout reports a timer-driven termination.
	KindTimeout Kind = "timeout"
	// KindSessionEnd is the final summary; the stream closes after it.
	KindSessionEnd Kind = "sessionEnd"
)

// Notification is one item on a session's notification stream.
type Notification struct {
	SessionID string    `json:"sessionId"`
	Kind      Kind      `json:"kind"`
	Data      string    `json:"data,omitempty"`
	ExitCode  *int      `json:"exitCode,omitempty"`
	TimeoutMs int       `json:"timeoutMs,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Config tunes a Handler.
type Config struct {
	// MaxBufferSize caps each per-session tail buffer; non-positive
	// falls back to DefaultMaxBufferSize.
	MaxBufferSize int
	// EmitLines turns each output chunk into additional per-line
	// notifications.
	EmitLines bool
}

// Handler fans session output out to subscribers and keeps a bounded
// tail per session.
type Handler struct {
	mu      sync.RWMutex
	buffers map[string]*tailBuffer
	subs    map[string]map[string]chan Notification
	ended   map[string]bool

	maxSize   int
	emitLines bool
}

// NewHandler creates a Handler.
func NewHandler(cfg Config) *Handler {
	max := cfg.MaxBufferSize
	if max <= 0 {
		max = DefaultMaxBufferSize
	}
	return &Handler{
		buffers:   make(map[string]*tailBuffer),
		subs:      make(map[string]map[string]chan Notification),
		ended:     make(map[string]bool),
		maxSize:   max,
		emitLines: cfg.EmitLines,
	}
}

// HandleOutput records a chunk for the session and notifies subscribers,
// emitting per-line notifications when enabled.
func (h *Handler) HandleOutput(sessionID, data string) {
	if data == "" {
		return
	}

	h.mu.Lock()
	buf, ok := h.buffers[sessionID]
	if !ok {
		buf = newTailBuffer(h.maxSize)
		h.buffers[sessionID] = buf
	}
	h.mu.Unlock()

	buf.append(data)

	now := time.Now().UTC()
	h.publish(sessionID, Notification{
		SessionID: sessionID,
		Kind:      KindOutput,
		Data:      data,
		Timestamp: now,
	})

	if h.emitLines {
		for _, line := range strings.Split(data, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			h.publish(sessionID, Notification{
				SessionID: sessionID,
				Kind:      KindLine,
				Data:      line,
				Timestamp: now,
			})
		}
	}
}

// HandleExit reports process exit and ends the session's stream.
func (h *Handler) HandleExit(sessionID string, exitCode int) {
	code := exitCode
	h.publish(sessionID, Notification{
		SessionID: sessionID,
		Kind:      KindExit,
		ExitCode:  &code,
		Timestamp: time.Now().UTC(),
	})
	h.endSession(sessionID, fmt.Sprintf("exit:%d", exitCode))
}

// HandleError reports a session error or cancellation and ends the
// session's stream.
func (h *Handler) HandleError(sessionID, message string) {
	h.publish(sessionID, Notification{
		SessionID: sessionID,
		Kind:      KindError,
		Data:      message,
		Timestamp: time.Now().UTC(),
	})
	h.endSession(sessionID, "error")
}

// HandleTimeout reports a timed-out session and ends its stream.
func (h *Handler) HandleTimeout(sessionID string, timeoutMs int) {
	h.publish(sessionID, Notification{
		SessionID: sessionID,
		Kind:      KindTimeout,
		Data:      fmt.Sprintf("session timed out after %dms", timeoutMs),
		TimeoutMs: timeoutMs,
		Timestamp: time.Now().UTC(),
	})
	h.endSession(sessionID, "timeout")
}

// endSession emits the sessionEnd summary and closes every subscription
// for the session. Repeat ends are ignored.
func (h *Handler) endSession(sessionID, reason string) {
	h.mu.Lock()
	if h.ended[sessionID] {
		h.mu.Unlock()
		return
	}
	h.ended[sessionID] = true
	size := 0
	if buf, ok := h.buffers[sessionID]; ok {
		size = buf.size()
	}
	h.mu.Unlock()

	h.publish(sessionID, Notification{
		SessionID: sessionID,
		Kind:      KindSessionEnd,
		Reason:    reason,
		Data:      fmt.Sprintf("session ended (%s), %d bytes buffered", reason, size),
		Timestamp: time.Now().UTC(),
	})

	h.mu.Lock()
	for subID, ch := range h.subs[sessionID] {
		close(ch)
		delete(h.subs[sessionID], subID)
	}
	delete(h.subs, sessionID)
	h.mu.Unlock()
}

// Subscribe attaches a notification channel to the session. Sessions
// need not have produced output yet; subscribing to an ended session
// yields an immediately-closed channel.
func (h *Handler) Subscribe(sessionID string) (string, <-chan Notification) {
	subID := uuid.New().String()
	ch := make(chan Notification, subscriberBufCap)

	h.mu.Lock()
	if h.ended[sessionID] {
		close(ch)
	} else {
		if h.subs[sessionID] == nil {
			h.subs[sessionID] = make(map[string]chan Notification)
		}
		h.subs[sessionID][subID] = ch
	}
	h.mu.Unlock()

	return subID, ch
}

// Unsubscribe detaches and closes one subscription. Unknown ids are
// ignored.
func (h *Handler) Unsubscribe(sessionID, subID string) {
	h.mu.Lock()
	if ch, ok := h.subs[sessionID][subID]; ok {
		close(ch)
		delete(h.subs[sessionID], subID)
	}
	h.mu.Unlock()
}

// publish delivers without blocking; a full subscriber drops the
// notification for that subscriber only.
func (h *Handler) publish(sessionID string, n Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs[sessionID] {
		select {
		case ch <- n:
		default:
		}
	}
}

// GetBuffer returns the retained tail for the session.
func (h *Handler) GetBuffer(sessionID string) (string, bool) {
	h.mu.RLock()
	buf, ok := h.buffers[sessionID]
	h.mu.RUnlock()
	if !ok {
		return "", false
	}
	return buf.String(), true
}

// GetBufferSize returns the retained tail size in bytes, 0 for unknown
// sessions.
func (h *Handler) GetBufferSize(sessionID string) int {
	h.mu.RLock()
	buf, ok := h.buffers[sessionID]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	return buf.size()
}

// HasBuffer reports whether the session has produced any output.
func (h *Handler) HasBuffer(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.buffers[sessionID]
	return ok
}

// ActiveSessions returns the ids with a retained buffer, sorted.
func (h *Handler) ActiveSessions() []string {
	h.mu.RLock()
	ids := make([]string, 0, len(h.buffers))
	for id := range h.buffers {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Clear drops the session's buffer and end marker, returning false if
// no buffer existed.
func (h *Handler) Clear(sessionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.buffers[sessionID]
	delete(h.buffers, sessionID)
	delete(h.ended, sessionID)
	return ok
}

// ClearAll drops every buffer, returning how many were dropped.
func (h *Handler) ClearAll() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.buffers)
	h.buffers = make(map[string]*tailBuffer)
	h.ended = make(map[string]bool)
	if n > 0 {
		log.Debug("Cleared %d stream buffers", n)
	}
	return n
}

// tailBuffer keeps the newest max bytes of a stream.
type tailBuffer struct {
	mu   sync.Mutex
	data []byte
	max  int
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (b *tailBuffer) append(data string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(data) >= b.max {
		b.data = append(b.data[:0], data[len(data)-b.max:]...)
		return
	}
	b.data = append(b.data, data...)
	if len(b.data) > b.max {
		b.data = b.data[len(b.data)-b.max:]
	}
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.data)
}

func (b *tailBuffer) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}
