package tools

import (
	"os"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BakeLens/galley/internal/allowlist"
	"github.com/BakeLens/galley/internal/session"
	"github.com/BakeLens/galley/internal/stream"
	"github.com/BakeLens/galley/internal/types"
	"github.com/BakeLens/galley/internal/workspace"
)

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

func testAllowlist(t *testing.T, patterns ...string) *allowlist.List {
	t.Helper()
	entries := make([]allowlist.Entry, 0, len(patterns))
	for _, p := range patterns {
		e, err := allowlist.EntrySpec{Pattern: p}.Compile(allowlist.SourceConfig)
		if err != nil {
			t.Fatalf("compile %q: %v", p, err)
		}
		entries = append(entries, e)
	}
	return allowlist.NewTestList(entries)
}

func newTestTerminal(t *testing.T, d Deps) *Terminal {
	t.Helper()
	if d.Workspace == nil {
		v, err := workspace.NewValidator(t.TempDir())
		if err != nil {
			t.Fatalf("NewValidator: %v", err)
		}
		d.Workspace = v
	}
	if d.Allowlist == nil {
		d.Allowlist = testAllowlist(t, "echo", "cat", "sleep")
	}
	if d.Sessions == nil {
		d.Sessions = session.NewManager(session.Config{MaxConcurrency: 3})
	}
	t.Cleanup(d.Sessions.KillAll)

	term, err := New(d)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return term
}

func waitForStatus(t *testing.T, term *Terminal, id string, timeout time.Duration) StatusResult {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		st := term.Status(StatusRequest{SessionID: id, IncludeOutput: true})
		if st.Exists && !st.Running {
			return st
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("session %s still running after %v", id, timeout)
	return StatusResult{}
}

type stubPolicy struct {
	verdict PolicyResult

	mu      sync.Mutex
	action  string
	details map[string]any
}

func (p *stubPolicy) Evaluate(actionType string, details map[string]any) PolicyResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.action = actionType
	p.details = details
	return p.verdict
}

type stubRecorder struct {
	mu      sync.Mutex
	created []ExecutionRecord
	updates []recordedUpdate
}

type recordedUpdate struct {
	SessionID string
	Status    types.SessionStatus
	ExitCode  *int
	Output    string
}

func (r *stubRecorder) Create(rec ExecutionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, rec)
	return nil
}

func (r *stubRecorder) UpdateStatus(sessionID string, status types.SessionStatus, exitCode *int, output string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, recordedUpdate{sessionID, status, exitCode, output})
	return nil
}

func (r *stubRecorder) lastCreate(t *testing.T) ExecutionRecord {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.created) == 0 {
		t.Fatal("no execution records created")
	}
	return r.created[len(r.created)-1]
}

func TestExecute_AllowlistedCommandRuns(t *testing.T) {
	requireShell(t)
	term := newTestTerminal(t, Deps{})

	res := term.Execute(ExecuteRequest{Command: "echo hello"})
	if res.Status != StatusRunning {
		t.Fatalf("status = %q (%s), want running", res.Status, res.Message)
	}
	if res.SessionID == "" {
		t.Fatal("empty session id")
	}
	if res.Cwd != term.Workspace().Root() {
		t.Errorf("cwd = %q, want workspace root %q", res.Cwd, term.Workspace().Root())
	}

	st := waitForStatus(t, term, res.SessionID, 10*time.Second)
	if st.Status != types.StatusCompleted {
		t.Errorf("final status = %s, want completed", st.Status)
	}
	if st.ExitCode == nil || *st.ExitCode != 0 {
		t.Errorf("exit code = %v, want 0", st.ExitCode)
	}
	if !strings.Contains(st.OutputPreview, "hello") {
		t.Errorf("preview %q does not contain %q", st.OutputPreview, "hello")
	}
	if st.StartedAt == nil || st.TimeoutMs == 0 {
		t.Errorf("status missing timing fields: %+v", st)
	}
}

func TestExecute_UnlistedCommandDenied(t *testing.T) {
	term := newTestTerminal(t, Deps{})

	res := term.Execute(ExecuteRequest{Command: "terraform apply"})
	if res.Status != StatusDenied {
		t.Fatalf("status = %q, want denied", res.Status)
	}
	if !strings.Contains(res.Message, "terraform") {
		t.Errorf("message %q does not name the command", res.Message)
	}
	if res.SessionID == "" {
		t.Error("denied result still needs a session id for correlation")
	}
}

func TestExecute_InjectionDenied(t *testing.T) {
	term := newTestTerminal(t, Deps{})

	res := term.Execute(ExecuteRequest{Command: "cat /etc/hosts; rm -rf /"})
	if res.Status != StatusDenied {
		t.Fatalf("status = %q, want denied", res.Status)
	}
	if !strings.Contains(res.Message, "dangerous pattern") {
		t.Errorf("message = %q, want an injection reason", res.Message)
	}
}

func TestExecute_CwdOutsideWorkspaceDenied(t *testing.T) {
	term := newTestTerminal(t, Deps{})

	res := term.Execute(ExecuteRequest{Command: "echo hi", Cwd: "/etc"})
	if res.Status != StatusDenied {
		t.Fatalf("status = %q, want denied", res.Status)
	}
	if !strings.Contains(res.Message, "outside workspace") {
		t.Errorf("message = %q, want a boundary reason", res.Message)
	}
}

func TestExecute_GateOverridePerRequest(t *testing.T) {
	term := newTestTerminal(t, Deps{})

	// Default gates refuse the pipe before the allowlist is consulted.
	res := term.Execute(ExecuteRequest{Command: "foo | bar"})
	if res.Status != StatusDenied || !strings.Contains(res.Message, "pipes") {
		t.Fatalf("result = %q %q, want pipe denial", res.Status, res.Message)
	}

	// With the override the pipe passes and the allowlist answers instead.
	allow := true
	res = term.Execute(ExecuteRequest{Command: "foo | bar", AllowPipes: &allow})
	if res.Status != StatusDenied {
		t.Fatalf("status = %q, want denied", res.Status)
	}
	if !strings.Contains(res.Message, "foo") {
		t.Errorf("message = %q, want allowlist miss for foo", res.Message)
	}
}

func TestExecute_ConfiguredGatesApply(t *testing.T) {
	term := newTestTerminal(t, Deps{Gates: allowlist.Options{AllowPipes: true}})

	res := term.Execute(ExecuteRequest{Command: "foo | bar"})
	if strings.Contains(res.Message, "pipes") {
		t.Errorf("configured AllowPipes ignored: %q", res.Message)
	}
}

func TestExecute_PolicyDeny(t *testing.T) {
	policy := &stubPolicy{verdict: PolicyResult{
		Decision:  types.DecisionDeny,
		RiskLevel: types.RiskHigh,
		Reason:    "manual block",
	}}
	term := newTestTerminal(t, Deps{Policy: policy})

	res := term.Execute(ExecuteRequest{Command: "echo hi"})
	if res.Status != StatusDenied {
		t.Fatalf("status = %q, want denied", res.Status)
	}
	if res.PolicyResult == nil || res.PolicyResult.Decision != types.DecisionDeny {
		t.Fatalf("policy result missing: %+v", res.PolicyResult)
	}
	if !strings.Contains(res.Message, "manual block") {
		t.Errorf("message = %q, want the policy reason", res.Message)
	}

	policy.mu.Lock()
	defer policy.mu.Unlock()
	if policy.action != ActionExecute {
		t.Errorf("action = %q, want %q", policy.action, ActionExecute)
	}
	if policy.details["command"] != "echo hi" {
		t.Errorf("details = %v, want the command", policy.details)
	}
	if policy.details["sessionId"] != res.SessionID {
		t.Errorf("details session id = %v, want %s", policy.details["sessionId"], res.SessionID)
	}
}

func TestExecute_PolicyRequireApproval(t *testing.T) {
	policy := &stubPolicy{verdict: PolicyResult{
		Decision: types.DecisionRequireApproval,
		Reason:   "sensitive path",
	}}
	term := newTestTerminal(t, Deps{Policy: policy})

	res := term.Execute(ExecuteRequest{Command: "echo hi"})
	if res.Status != StatusDenied {
		t.Fatalf("status = %q, want denied", res.Status)
	}
	if !strings.Contains(res.Message, "requires approval") {
		t.Errorf("message = %q, want approval wording", res.Message)
	}
}

func TestExecute_PolicyNotConsultedForDeniedCommand(t *testing.T) {
	policy := &stubPolicy{verdict: PolicyResult{Decision: types.DecisionAllow}}
	term := newTestTerminal(t, Deps{Policy: policy})

	term.Execute(ExecuteRequest{Command: "terraform apply"})

	policy.mu.Lock()
	defer policy.mu.Unlock()
	if policy.action != "" {
		t.Error("policy engine ran for a command the allowlist already denied")
	}
}

func TestExecute_TimeoutBelowFloorIsError(t *testing.T) {
	term := newTestTerminal(t, Deps{})

	res := term.Execute(ExecuteRequest{Command: "echo hi", TimeoutMs: 500})
	if res.Status != StatusError {
		t.Fatalf("status = %q, want error", res.Status)
	}
	if !strings.Contains(res.Message, "timeout") {
		t.Errorf("message = %q, want a timeout reason", res.Message)
	}
}

func TestExecute_RecorderSeesDenials(t *testing.T) {
	rec := &stubRecorder{}
	term := newTestTerminal(t, Deps{Recorder: rec})

	res := term.Execute(ExecuteRequest{Command: "terraform apply"})

	created := rec.lastCreate(t)
	if created.SessionID != res.SessionID {
		t.Errorf("record session id = %q, want %q", created.SessionID, res.SessionID)
	}
	if created.Status != StatusDenied {
		t.Errorf("record status = %q, want denied", created.Status)
	}
	if created.Reason == "" {
		t.Error("denial recorded without a reason")
	}
}

func TestExecute_RecorderSeesOutcome(t *testing.T) {
	requireShell(t)
	rec := &stubRecorder{}
	term := newTestTerminal(t, Deps{Recorder: rec})

	res := term.Execute(ExecuteRequest{Command: "echo audited"})
	if res.Status != StatusRunning {
		t.Fatalf("status = %q (%s), want running", res.Status, res.Message)
	}

	created := rec.lastCreate(t)
	if created.Status != StatusRunning {
		t.Errorf("record status = %q, want running", created.Status)
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		rec.mu.Lock()
		n := len(rec.updates)
		rec.mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no outcome recorded")
		}
		time.Sleep(10 * time.Millisecond)
	}

	rec.mu.Lock()
	update := rec.updates[0]
	rec.mu.Unlock()
	if update.SessionID != res.SessionID {
		t.Errorf("update session id = %q, want %q", update.SessionID, res.SessionID)
	}
	if update.Status != types.StatusCompleted {
		t.Errorf("update status = %s, want completed", update.Status)
	}
	if update.ExitCode == nil || *update.ExitCode != 0 {
		t.Errorf("update exit code = %v, want 0", update.ExitCode)
	}
	if !strings.Contains(update.Output, "audited") {
		t.Errorf("update output %q does not contain %q", update.Output, "audited")
	}
}

func TestExecute_StreamReceivesOutput(t *testing.T) {
	requireShell(t)
	h := stream.NewHandler(stream.Config{})
	term := newTestTerminal(t, Deps{Stream: h})

	res := term.Execute(ExecuteRequest{Command: "echo streamed"})
	if res.Status != StatusRunning {
		t.Fatalf("status = %q (%s), want running", res.Status, res.Message)
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		if buf, ok := h.GetBuffer(res.SessionID); ok && strings.Contains(buf, "streamed") {
			break
		}
		if time.Now().After(deadline) {
			buf, _ := h.GetBuffer(res.SessionID)
			t.Fatalf("stream buffer = %q, want %q", buf, "streamed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStatus_UnknownSession(t *testing.T) {
	term := newTestTerminal(t, Deps{})

	st := term.Status(StatusRequest{SessionID: "nope"})
	if st.Exists || st.Running {
		t.Errorf("unknown session reported as %+v", st)
	}
	if st.SessionID != "nope" {
		t.Errorf("session id = %q, want echoed back", st.SessionID)
	}
}

func TestKill_RunningThenFinished(t *testing.T) {
	requireShell(t)
	term := newTestTerminal(t, Deps{})

	res := term.Execute(ExecuteRequest{Command: "sleep 5"})
	if res.Status != StatusRunning {
		t.Fatalf("status = %q (%s), want running", res.Status, res.Message)
	}

	kill := term.Kill(KillRequest{SessionID: res.SessionID, Reason: "test"})
	if !kill.Killed || !kill.WasRunning {
		t.Fatalf("first kill = %+v, want killed+wasRunning", kill)
	}

	again := term.Kill(KillRequest{SessionID: res.SessionID})
	if again.Killed || again.WasRunning {
		t.Errorf("second kill = %+v, want no-op", again)
	}
	if !strings.Contains(again.Message, "already") {
		t.Errorf("message = %q, want already-finished wording", again.Message)
	}
}

func TestKill_UnknownSession(t *testing.T) {
	term := newTestTerminal(t, Deps{})

	kill := term.Kill(KillRequest{SessionID: "nope"})
	if kill.Killed || kill.WasRunning {
		t.Errorf("kill of unknown session = %+v", kill)
	}
	if kill.Message != "session not found" {
		t.Errorf("message = %q", kill.Message)
	}
}

func TestList_ActiveFilterAndCounts(t *testing.T) {
	requireShell(t)
	term := newTestTerminal(t, Deps{})

	first := term.Execute(ExecuteRequest{Command: "echo done"})
	second := term.Execute(ExecuteRequest{Command: "sleep 5"})
	if first.Status != StatusRunning || second.Status != StatusRunning {
		t.Fatalf("setup failed: %q %q", first.Message, second.Message)
	}
	waitForStatus(t, term, first.SessionID, 10*time.Second)

	all := term.List(ListRequest{})
	if len(all.Sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(all.Sessions))
	}
	if all.ActiveCount != 1 {
		t.Errorf("activeCount = %d, want 1", all.ActiveCount)
	}
	if all.MaxConcurrency != 3 {
		t.Errorf("maxConcurrency = %d, want 3", all.MaxConcurrency)
	}

	active := term.List(ListRequest{ActiveOnly: true})
	if len(active.Sessions) != 1 || active.Sessions[0].SessionID != second.SessionID {
		t.Errorf("active listing = %+v, want only the sleeper", active.Sessions)
	}
	if active.ActiveCount != 1 {
		t.Errorf("filtered activeCount = %d, want 1", active.ActiveCount)
	}
}

func TestCheck_DryRunDecisions(t *testing.T) {
	term := newTestTerminal(t, Deps{})

	tests := []struct {
		name    string
		req     CheckRequest
		allowed bool
		reason  string
	}{
		{"allowed command", CheckRequest{Command: "echo hi"}, true, ""},
		{"unlisted command", CheckRequest{Command: "terraform apply"}, false, "terraform"},
		{"injection", CheckRequest{Command: "echo hi; rm -rf /"}, false, "dangerous pattern"},
		{"cwd outside root", CheckRequest{Command: "echo hi", Cwd: "/etc"}, false, "outside workspace"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := term.Check(tt.req)
			if got.Allowed != tt.allowed {
				t.Fatalf("allowed = %v (%s), want %v", got.Allowed, got.Reason, tt.allowed)
			}
			if tt.reason != "" && !strings.Contains(got.Reason, tt.reason) {
				t.Errorf("reason = %q, want mention of %q", got.Reason, tt.reason)
			}
			if tt.allowed && got.ResolvedCwd == "" {
				t.Error("allowed check missing resolved cwd")
			}
		})
	}

	// Check never starts anything.
	if got := term.List(ListRequest{}); len(got.Sessions) != 0 {
		t.Errorf("Check created sessions: %+v", got.Sessions)
	}
}

func TestNew_RequiresCoreDeps(t *testing.T) {
	v, err := workspace.NewValidator(t.TempDir())
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	list := testAllowlist(t, "echo")
	mgr := session.NewManager(session.Config{})

	if _, err := New(Deps{Allowlist: list, Sessions: mgr}); err == nil {
		t.Error("New accepted missing workspace")
	}
	if _, err := New(Deps{Workspace: v, Sessions: mgr}); err == nil {
		t.Error("New accepted missing allowlist")
	}
	if _, err := New(Deps{Workspace: v, Allowlist: list}); err == nil {
		t.Error("New accepted missing session manager")
	}
}

func TestTailAndHeadBytes(t *testing.T) {
	if got := tailBytes("abcdef", 3); got != "...def" {
		t.Errorf("tailBytes = %q", got)
	}
	if got := tailBytes("ab", 3); got != "ab" {
		t.Errorf("tailBytes short = %q", got)
	}
	if got := headBytes("abcdef", 3); got != "abc..." {
		t.Errorf("headBytes = %q", got)
	}
	if got := headBytes("ab", 3); got != "ab" {
		t.Errorf("headBytes short = %q", got)
	}
}
