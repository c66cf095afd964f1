package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SessionSummary holds one terminal session for the Sessions tab.
// Decodes the subset of fields the TUI needs — avoids importing the
// tools package.
type SessionSummary struct {
	SessionID string     `json:"sessionId"`
	Command   string     `json:"command"`
	Status    string     `json:"status"`
	ExitCode  *int       `json:"exitCode,omitempty"`
	Running   bool       `json:"running"`
	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
}

// SessionList carries the session listing plus the concurrency figures
// that frame it.
type SessionList struct {
	Sessions       []SessionSummary `json:"sessions"`
	ActiveCount    int              `json:"activeCount"`
	MaxConcurrency int              `json:"maxConcurrency"`
}

// SessionDetail holds the full view of one session, including the
// output preview tail.
type SessionDetail struct {
	SessionID     string     `json:"sessionId"`
	Exists        bool       `json:"exists"`
	Command       string     `json:"command"`
	Cwd           string     `json:"cwd"`
	Status        string     `json:"status"`
	ExitCode      *int       `json:"exitCode,omitempty"`
	Running       bool       `json:"running"`
	OutputPreview string     `json:"outputPreview,omitempty"`
	StartedAt     *time.Time `json:"startedAt,omitempty"`
	TimeoutMs     int        `json:"timeoutMs,omitempty"`
}

// StatusData holds all data for the dashboard display.
type StatusData struct {
	Running bool
	PID     int
	Healthy bool
	LogFile string

	Version        string
	UptimeSeconds  int64
	WorkspaceRoot  string
	ActiveSessions int
	TotalSessions  int
	MaxConcurrency int
	AllowlistSize  int
	AuditEnabled   bool

	// Session-scoped counters since daemon start, from /metrics.
	Counters   map[string]int64
	DenialRate float64
}

// Executions returns the spawned-command counter.
func (d StatusData) Executions() int64 { return d.Counters["executions"] }

// Denials returns the refused-command counter.
func (d StatusData) Denials() int64 { return d.Counters["denials"] }

// FetchStatus fetches health, daemon status, and metrics from the galley API.
// The client may carry a Unix socket / named pipe transport; apiBase is the
// URL prefix requests are issued against.
func FetchStatus(client *http.Client, apiBase string, pid int, logFile string) StatusData {
	data := StatusData{Running: true, PID: pid, LogFile: logFile}

	// Health check
	if resp, err := client.Get(apiBase + "/health"); err == nil && resp != nil { //nolint:noctx
		resp.Body.Close()
		data.Healthy = resp.StatusCode == http.StatusOK
	}

	// Daemon status
	if resp, err := client.Get(apiBase + "/api/galley/status"); err == nil && resp != nil { //nolint:noctx
		defer resp.Body.Close()
		var result struct {
			Version        string `json:"version"`
			UptimeSeconds  int64  `json:"uptime_seconds"`
			WorkspaceRoot  string `json:"workspace_root"`
			ActiveSessions int    `json:"active_sessions"`
			TotalSessions  int    `json:"total_sessions"`
			MaxConcurrency int    `json:"max_concurrency"`
			AllowlistSize  int    `json:"allowlist_size"`
			AuditEnabled   bool   `json:"audit_enabled"`
		}
		if json.NewDecoder(resp.Body).Decode(&result) == nil {
			data.Version = result.Version
			data.UptimeSeconds = result.UptimeSeconds
			data.WorkspaceRoot = result.WorkspaceRoot
			data.ActiveSessions = result.ActiveSessions
			data.TotalSessions = result.TotalSessions
			data.MaxConcurrency = result.MaxConcurrency
			data.AllowlistSize = result.AllowlistSize
			data.AuditEnabled = result.AuditEnabled
		}
	}

	// Admission counters (absent when audit is disabled)
	if resp, err := client.Get(apiBase + "/api/galley/metrics"); err == nil && resp != nil { //nolint:noctx
		defer resp.Body.Close()
		var metrics struct {
			Counters   map[string]int64 `json:"counters"`
			DenialRate float64          `json:"denial_rate"`
		}
		if json.NewDecoder(resp.Body).Decode(&metrics) == nil {
			data.Counters = metrics.Counters
			data.DenialRate = metrics.DenialRate
		}
	}

	return data
}

// FetchSessions fetches the session listing from the galley API.
// Returns a zero list on any error so the TUI can degrade gracefully.
func FetchSessions(client *http.Client, apiBase string) SessionList {
	resp, err := client.Get(apiBase + "/api/galley/sessions") //nolint:noctx
	if err != nil || resp == nil {
		return SessionList{}
	}
	defer resp.Body.Close()

	var list SessionList
	if json.NewDecoder(resp.Body).Decode(&list) != nil {
		return SessionList{}
	}
	return list
}

// FetchSessionDetail fetches one session with its output preview.
// Returns nil on any error so the TUI can degrade gracefully.
func FetchSessionDetail(client *http.Client, apiBase string, sessionID string) *SessionDetail {
	resp, err := client.Get(apiBase + "/api/galley/sessions/" + sessionID + "?output=true") //nolint:noctx
	if err != nil || resp == nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var detail SessionDetail
	if json.NewDecoder(resp.Body).Decode(&detail) != nil {
		return nil
	}
	return &detail
}

// RenderPlain renders a plain text status display (no colors, no TUI).
func RenderPlain(data StatusData) string {
	var sb strings.Builder
	if data.Running {
		fmt.Fprintf(&sb, "[galley] Status:    running (PID %d)\n", data.PID)
		if data.Healthy {
			sb.WriteString("[galley] Health:    healthy\n")
		} else {
			sb.WriteString("[galley] Health:    unhealthy\n")
		}
		if data.WorkspaceRoot != "" {
			fmt.Fprintf(&sb, "[galley] Workspace: %s\n", data.WorkspaceRoot)
		}
		fmt.Fprintf(&sb, "[galley] Allowlist: %d entries\n", data.AllowlistSize)
		fmt.Fprintf(&sb, "[galley] Sessions:  %d active / %d max\n", data.ActiveSessions, data.MaxConcurrency)
		if data.AuditEnabled {
			sb.WriteString("[galley] Audit:     enabled\n")
		} else {
			sb.WriteString("[galley] Audit:     disabled\n")
		}
		if attempts := data.Executions() + data.Denials(); attempts > 0 {
			fmt.Fprintf(&sb, "[galley] Commands:  %d executed, %d denied (%.1f%%)\n",
				data.Executions(), data.Denials(), data.DenialRate)
		}
		sb.WriteString("[galley] Logs:      " + data.LogFile)
	} else {
		sb.WriteString("[galley] Status: not running")
	}
	return sb.String()
}
