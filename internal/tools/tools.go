// Package tools is the execution façade agents talk to. It composes the
// workspace boundary, the command allowlist, and the session manager into
// four JSON-shaped operations: execute, status, kill, and list.
//
// Security denials come back as data (status "denied" with a reason), never
// as Go errors; only the caller decides whether a denial is fatal. The
// optional policy engine and execution recorder hooks observe and veto, but
// their absence never changes what the sandbox allows.
package tools

import (
	"fmt"
	"time"

	"github.com/BakeLens/galley/internal/allowlist"
	"github.com/BakeLens/galley/internal/logger"
	"github.com/BakeLens/galley/internal/session"
	"github.com/BakeLens/galley/internal/stream"
	"github.com/BakeLens/galley/internal/types"
	"github.com/BakeLens/galley/internal/workspace"
	"github.com/google/uuid"
)

var log = logger.New("tools")

// Execute result statuses.
const (
	StatusRunning = "running"
	StatusDenied  = "denied"
	StatusError   = "error"
)

// ActionExecute is the action type reported to the policy engine.
const ActionExecute = "terminal_execute"

// Default byte limits for status previews and audit records.
const (
	DefaultPreviewOutputLimit = 4096
	DefaultAuditOutputLimit   = 64 * 1024
)

// PolicyResult is a policy engine verdict.
type PolicyResult struct {
	Decision  types.Decision  `json:"decision"`
	RiskLevel types.RiskLevel `json:"riskLevel,omitempty"`
	Reason    string          `json:"reason,omitempty"`
}

// PolicyEngine is consulted before every spawn. Anything but an explicit
// allow blocks the command.
type PolicyEngine interface {
	Evaluate(actionType string, details map[string]any) PolicyResult
}

// ExecutionRecord captures a command at the moment it is admitted or
// denied.
type ExecutionRecord struct {
	SessionID string
	Command   string
	Cwd       string
	Status    string
	Reason    string
	StartedAt time.Time
}

// ExecutionRecorder persists command lifecycle for auditing. Recorder
// failures are logged and otherwise ignored.
type ExecutionRecorder interface {
	Create(rec ExecutionRecord) error
	UpdateStatus(sessionID string, status types.SessionStatus, exitCode *int, output string) error
}

// Deps wires a Terminal. Workspace, Allowlist and Sessions are required;
// Stream, Policy and Recorder are optional observers.
type Deps struct {
	Workspace *workspace.Validator
	Allowlist *allowlist.List
	Sessions  *session.Manager
	Stream    *stream.Handler
	Policy    PolicyEngine
	Recorder  ExecutionRecorder

	// Gates holds the configured shell-feature defaults. A request can
	// override pipes and redirections per call; the other gates only
	// change through configuration.
	Gates allowlist.Options

	// PreviewOutputLimit bounds status previews (newest bytes kept);
	// AuditOutputLimit bounds recorded output (oldest bytes kept).
	// Non-positive values take the package defaults.
	PreviewOutputLimit int
	AuditOutputLimit   int
}

// Terminal implements the tool contract.
type Terminal struct {
	workspace *workspace.Validator
	allowlist *allowlist.List
	sessions  *session.Manager
	stream    *stream.Handler
	policy    PolicyEngine
	recorder  ExecutionRecorder

	gates        allowlist.Options
	previewLimit int
	auditLimit   int
}

// New builds a Terminal from its dependencies.
func New(d Deps) (*Terminal, error) {
	if d.Workspace == nil {
		return nil, fmt.Errorf("tools: workspace validator is required")
	}
	if d.Allowlist == nil {
		return nil, fmt.Errorf("tools: allowlist is required")
	}
	if d.Sessions == nil {
		return nil, fmt.Errorf("tools: session manager is required")
	}
	preview := d.PreviewOutputLimit
	if preview <= 0 {
		preview = DefaultPreviewOutputLimit
	}
	audit := d.AuditOutputLimit
	if audit <= 0 {
		audit = DefaultAuditOutputLimit
	}
	return &Terminal{
		workspace:    d.Workspace,
		allowlist:    d.Allowlist,
		sessions:     d.Sessions,
		stream:       d.Stream,
		policy:       d.Policy,
		recorder:     d.Recorder,
		gates:        d.Gates,
		previewLimit: preview,
		auditLimit:   audit,
	}, nil
}

// Sessions exposes the underlying manager for callers that stream.
func (t *Terminal) Sessions() *session.Manager { return t.sessions }

// Workspace exposes the bound path validator.
func (t *Terminal) Workspace() *workspace.Validator { return t.workspace }

// ExecuteRequest is the terminal_execute input. Nil gate overrides keep
// the configured defaults.
type ExecuteRequest struct {
	Command           string            `json:"command"`
	Cwd               string            `json:"cwd,omitempty"`
	TimeoutMs         int               `json:"timeout,omitempty"`
	Env               map[string]string `json:"env,omitempty"`
	AllowPipes        *bool             `json:"allowPipes,omitempty"`
	AllowRedirections *bool             `json:"allowRedirections,omitempty"`
}

// ExecuteResult is the terminal_execute output.
type ExecuteResult struct {
	SessionID    string        `json:"sessionId"`
	Command      string        `json:"command"`
	Cwd          string        `json:"cwd"`
	Status       string        `json:"status"`
	Message      string        `json:"message,omitempty"`
	PolicyResult *PolicyResult `json:"policyResult,omitempty"`
}

// Execute validates and spawns one command. The result status is
// "running" on success, "denied" for any security refusal, and "error"
// for spawn or configuration failures.
func (t *Terminal) Execute(req ExecuteRequest) ExecuteResult {
	id := uuid.New().String()
	res := ExecuteResult{SessionID: id, Command: req.Command}

	cwd := req.Cwd
	if cwd == "" {
		cwd = t.workspace.Root()
	}
	pathRes := t.workspace.Validate(cwd)
	if !pathRes.Valid {
		res.Status = StatusDenied
		res.Message = fmt.Sprintf("path validation failed: %s", pathRes.Reason)
		t.recordCreate(res)
		return res
	}
	res.Cwd = pathRes.ResolvedPath

	cmdRes := allowlist.ValidateCommand(req.Command, t.allowlist, t.requestGates(req))
	if !cmdRes.Allowed {
		res.Status = StatusDenied
		res.Message = cmdRes.Reason
		t.recordCreate(res)
		return res
	}

	if t.policy != nil {
		verdict := t.policy.Evaluate(ActionExecute, map[string]any{
			"sessionId": id,
			"command":   req.Command,
			"cwd":       res.Cwd,
		})
		res.PolicyResult = &verdict
		if !verdict.Decision.Allowed() {
			res.Status = StatusDenied
			res.Message = denialMessage(verdict)
			t.recordCreate(res)
			return res
		}
	}

	s, err := t.sessions.CreateSession(id, req.Command, res.Cwd, session.CreateOptions{
		TimeoutMs: req.TimeoutMs,
		Env:       req.Env,
	})
	if err != nil {
		res.Status = StatusError
		res.Message = err.Error()
		t.recordCreate(res)
		return res
	}

	res.Status = StatusRunning
	t.recordCreate(res)
	if t.stream != nil || t.recorder != nil {
		go t.pump(s.ID)
	}
	return res
}

// requestGates applies per-request overrides to the configured gates.
func (t *Terminal) requestGates(req ExecuteRequest) allowlist.Options {
	gates := t.gates
	if req.AllowPipes != nil {
		gates.AllowPipes = *req.AllowPipes
	}
	if req.AllowRedirections != nil {
		gates.AllowRedirections = *req.AllowRedirections
	}
	return gates
}

func denialMessage(v PolicyResult) string {
	reason := v.Reason
	if reason == "" {
		reason = "no reason given"
	}
	if v.Decision == types.DecisionRequireApproval {
		return fmt.Sprintf("command requires approval: %s", reason)
	}
	return fmt.Sprintf("denied by policy: %s", reason)
}

// pump forwards session events into the stream handler and, once the
// session finishes, records the final outcome.
func (t *Terminal) pump(id string) {
	subID, ch, ok := t.sessions.Subscribe(id)
	if !ok {
		return
	}
	defer t.sessions.Unsubscribe(id, subID)

	for ev := range ch {
		if t.stream == nil {
			continue
		}
		switch ev.Type {
		case types.EventData:
			t.stream.HandleOutput(id, ev.Data)
		case types.EventExit:
			code := -1
			if ev.ExitCode != nil {
				code = *ev.ExitCode
			}
			t.stream.HandleExit(id, code)
		case types.EventError:
			t.stream.HandleError(id, ev.Data)
		case types.EventTimeout:
			t.stream.HandleTimeout(id, ev.TimeoutMs)
		}
	}

	t.recordOutcome(id)
}

// recordCreate logs the admission outcome and writes the audit record.
func (t *Terminal) recordCreate(res ExecuteResult) {
	if res.Status == StatusDenied {
		log.Warn("Denied %q: %s", res.Command, res.Message)
	}
	if t.recorder == nil {
		return
	}
	var reason string
	if res.Status != StatusRunning {
		reason = res.Message
	}
	err := t.recorder.Create(ExecutionRecord{
		SessionID: res.SessionID,
		Command:   res.Command,
		Cwd:       res.Cwd,
		Status:    res.Status,
		Reason:    reason,
		StartedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Warn("Audit create failed for %s: %v", res.SessionID, err)
	}
}

// recordOutcome writes the terminal-state audit record.
func (t *Terminal) recordOutcome(id string) {
	if t.recorder == nil {
		return
	}
	s, ok := t.sessions.GetSession(id)
	if !ok {
		return
	}
	output, _ := t.sessions.GetOutput(id)
	if err := t.recorder.UpdateStatus(id, s.Status, s.ExitCode, headBytes(output, t.auditLimit)); err != nil {
		log.Warn("Audit update failed for %s: %v", id, err)
	}
}

// StatusRequest is the terminal_status input.
type StatusRequest struct {
	SessionID     string `json:"sessionId"`
	IncludeOutput bool   `json:"includeOutput,omitempty"`
}

// StatusResult is the terminal_status output. Exists is false for
// unknown ids and the optional fields stay empty.
type StatusResult struct {
	SessionID     string              `json:"sessionId"`
	Exists        bool                `json:"exists"`
	Command       string              `json:"command,omitempty"`
	Cwd           string              `json:"cwd,omitempty"`
	Status        types.SessionStatus `json:"status,omitempty"`
	ExitCode      *int                `json:"exitCode,omitempty"`
	Running       bool                `json:"running"`
	OutputPreview string              `json:"outputPreview,omitempty"`
	StartedAt     *time.Time          `json:"startedAt,omitempty"`
	TimeoutMs     int                 `json:"timeoutMs,omitempty"`
}

// Status reports one session. An unknown id is not an error.
func (t *Terminal) Status(req StatusRequest) StatusResult {
	res := StatusResult{SessionID: req.SessionID}

	s, ok := t.sessions.GetSession(req.SessionID)
	if !ok {
		return res
	}
	res.Exists = true
	res.Command = s.Command
	res.Cwd = s.Cwd
	res.Status = s.Status
	res.ExitCode = s.ExitCode
	res.Running = s.Running()
	started := s.StartedAt
	res.StartedAt = &started
	res.TimeoutMs = s.TimeoutMs

	if req.IncludeOutput {
		if output, ok := t.sessions.GetOutput(req.SessionID); ok {
			res.OutputPreview = tailBytes(output, t.previewLimit)
		}
	}
	return res
}

// KillRequest is the terminal_kill input.
type KillRequest struct {
	SessionID string `json:"sessionId"`
	Reason    string `json:"reason,omitempty"`
}

// KillResult is the terminal_kill output.
type KillResult struct {
	SessionID  string `json:"sessionId"`
	Killed     bool   `json:"killed"`
	WasRunning bool   `json:"wasRunning"`
	Message    string `json:"message,omitempty"`
}

// Kill cancels one session. Unknown ids and already-finished sessions
// report false, never an error.
func (t *Terminal) Kill(req KillRequest) KillResult {
	res := KillResult{SessionID: req.SessionID}

	s, ok := t.sessions.GetSession(req.SessionID)
	if !ok {
		res.Message = "session not found"
		return res
	}
	res.WasRunning = s.Running()
	res.Killed = t.sessions.CancelSession(req.SessionID, req.Reason)
	if res.Killed {
		res.Message = "session killed"
	} else {
		res.Message = fmt.Sprintf("session already %s", s.Status)
	}
	return res
}

// ListRequest is the terminal_list input.
type ListRequest struct {
	ActiveOnly bool `json:"activeOnly,omitempty"`
}

// SessionSummary is one row of a terminal_list result.
type SessionSummary struct {
	SessionID string              `json:"sessionId"`
	Command   string              `json:"command"`
	Cwd       string              `json:"cwd"`
	Status    types.SessionStatus `json:"status"`
	ExitCode  *int                `json:"exitCode,omitempty"`
	Running   bool                `json:"running"`
	StartedAt time.Time           `json:"startedAt"`
	EndedAt   *time.Time          `json:"endedAt,omitempty"`
	TimeoutMs int                 `json:"timeoutMs"`
	Truncated bool                `json:"truncated,omitempty"`
}

// ListResult is the terminal_list output. ActiveCount always counts the
// running sessions even when the listing is unfiltered.
type ListResult struct {
	Sessions       []SessionSummary `json:"sessions"`
	ActiveCount    int              `json:"activeCount"`
	MaxConcurrency int              `json:"maxConcurrency"`
}

// List reports sessions ordered by start time.
func (t *Terminal) List(req ListRequest) ListResult {
	all := t.sessions.ListSessions()
	res := ListResult{
		Sessions:       make([]SessionSummary, 0, len(all)),
		MaxConcurrency: t.sessions.MaxConcurrency(),
	}
	for _, s := range all {
		if s.Running() {
			res.ActiveCount++
		} else if req.ActiveOnly {
			continue
		}
		res.Sessions = append(res.Sessions, SessionSummary{
			SessionID: s.ID,
			Command:   s.Command,
			Cwd:       s.Cwd,
			Status:    s.Status,
			ExitCode:  s.ExitCode,
			Running:   s.Running(),
			StartedAt: s.StartedAt,
			EndedAt:   s.EndedAt,
			TimeoutMs: s.TimeoutMs,
			Truncated: s.Truncated,
		})
	}
	return res
}

// CheckRequest is the dry-run input: validate without spawning.
type CheckRequest struct {
	Command string `json:"command"`
	Cwd     string `json:"cwd,omitempty"`
}

// CheckResult reports what Execute would have decided.
type CheckResult struct {
	Allowed     bool   `json:"allowed"`
	Reason      string `json:"reason,omitempty"`
	ResolvedCwd string `json:"resolvedCwd,omitempty"`
}

// Check runs the path and command validations that gate Execute, but
// never spawns and never consults the policy engine.
func (t *Terminal) Check(req CheckRequest) CheckResult {
	cwd := req.Cwd
	if cwd == "" {
		cwd = t.workspace.Root()
	}
	pathRes := t.workspace.Validate(cwd)
	if !pathRes.Valid {
		return CheckResult{Reason: fmt.Sprintf("path validation failed: %s", pathRes.Reason)}
	}
	cmdRes := allowlist.ValidateCommand(req.Command, t.allowlist, t.gates)
	if !cmdRes.Allowed {
		return CheckResult{Reason: cmdRes.Reason, ResolvedCwd: pathRes.ResolvedPath}
	}
	return CheckResult{Allowed: true, ResolvedCwd: pathRes.ResolvedPath}
}

// tailBytes keeps the newest limit bytes, marking a cut head.
func tailBytes(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return "..." + s[len(s)-limit:]
}

// headBytes keeps the oldest limit bytes, marking a cut tail.
func headBytes(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
