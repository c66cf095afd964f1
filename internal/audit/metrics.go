package audit

import (
	"sync/atomic"

	"github.com/BakeLens/galley/internal/types"
)

// Metrics tracks execution counters without touching the database.
// Counters survive only for the process lifetime; the table is the
// durable record.
type Metrics struct {
	Executions atomic.Int64 // commands that reached a spawn
	Denials    atomic.Int64 // refused by path, allowlist, gate or policy
	Errors     atomic.Int64 // spawn or configuration failures

	Completed atomic.Int64
	Failed    atomic.Int64
	Killed    atomic.Int64
	TimedOut  atomic.Int64
}

// NewMetrics returns zeroed counters.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// CountAdmission records an admission-time status ("running", "denied"
// or "error").
func (m *Metrics) CountAdmission(status string) {
	switch status {
	case "running":
		m.Executions.Add(1)
	case "denied":
		m.Denials.Add(1)
	case "error":
		m.Errors.Add(1)
	}
}

// CountOutcome records a terminal session status.
func (m *Metrics) CountOutcome(status types.SessionStatus) {
	switch status {
	case types.StatusCompleted:
		m.Completed.Add(1)
	case types.StatusFailed:
		m.Failed.Add(1)
	case types.StatusCancelled:
		m.Killed.Add(1)
	case types.StatusTimedOut:
		m.TimedOut.Add(1)
	}
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"executions": m.Executions.Load(),
		"denials":    m.Denials.Load(),
		"errors":     m.Errors.Load(),
		"completed":  m.Completed.Load(),
		"failed":     m.Failed.Load(),
		"killed":     m.Killed.Load(),
		"timed_out":  m.TimedOut.Load(),
	}
}

// DenialRate returns the percentage of attempted commands that were
// denied.
func (m *Metrics) DenialRate() float64 {
	attempts := m.Executions.Load() + m.Denials.Load() + m.Errors.Load()
	if attempts == 0 {
		return 0
	}
	return float64(m.Denials.Load()) / float64(attempts) * 100
}

// Reset clears all counters (for testing).
func (m *Metrics) Reset() {
	m.Executions.Store(0)
	m.Denials.Store(0)
	m.Errors.Store(0)
	m.Completed.Store(0)
	m.Failed.Store(0)
	m.Killed.Store(0)
	m.TimedOut.Store(0)
}
