// Package types defines common type-safe enums used across the codebase.
package types

// SessionStatus represents the lifecycle state of a terminal session.
// Running is the only non-terminal value; a session never leaves a
// terminal status once one is recorded.
type SessionStatus string

const (
	// StatusRunning means the PTY process is alive.
	StatusRunning SessionStatus = "running"
	// StatusCompleted means the process exited with code 0.
	StatusCompleted SessionStatus = "completed"
	// StatusFailed means the process exited with a non-zero code.
	StatusFailed SessionStatus = "failed"
	// StatusCancelled means the session was killed on explicit request.
	StatusCancelled SessionStatus = "cancelled"
	// StatusTimedOut means the session timer fired before the process exited.
	StatusTimedOut SessionStatus = "timed_out"
)

// Valid returns true if the SessionStatus is a known valid value.
func (s SessionStatus) Valid() bool {
	switch s {
	case StatusRunning, StatusCompleted, StatusFailed, StatusCancelled, StatusTimedOut:
		return true
	}
	return false
}

// Terminal returns true for every status except running.
func (s SessionStatus) Terminal() bool {
	return s.Valid() && s != StatusRunning
}

// EventType classifies session output events.
type EventType string

const (
	// EventData carries a chunk of PTY output.
	EventData EventType = "data"
	// EventExit reports process exit with a code.
	EventExit EventType = "exit"
	// EventError reports a session-level error (including cancellation).
	EventError EventType = "error"
	// EventTimeout reports a timer-driven termination.
	EventTimeout EventType = "timeout"
)

// Valid returns true if the EventType is a known valid value.
func (e EventType) Valid() bool {
	switch e {
	case EventData, EventExit, EventError, EventTimeout:
		return true
	}
	return false
}

// Decision is a policy engine verdict for a requested action.
type Decision string

const (
	// DecisionAllow permits the action.
	DecisionAllow Decision = "allow"
	// DecisionDeny refuses the action.
	DecisionDeny Decision = "deny"
	// DecisionRequireApproval defers the action to a human.
	DecisionRequireApproval Decision = "require_approval"
)

// Valid returns true if the Decision is a known valid value.
func (d Decision) Valid() bool {
	return d == DecisionAllow || d == DecisionDeny || d == DecisionRequireApproval
}

// Allowed returns true only for an explicit allow.
func (d Decision) Allowed() bool {
	return d == DecisionAllow
}

// RiskLevel grades how dangerous a policy engine considers an action.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Valid returns true if the RiskLevel is a known valid value.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// LogLevel represents the configured logging verbosity.
// The empty string is valid and means the default (info).
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Valid returns true if the LogLevel is a known valid value or empty.
func (l LogLevel) Valid() bool {
	switch l {
	case LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, "":
		return true
	}
	return false
}
