//go:build !notui

package dashboard

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/BakeLens/galley/internal/tui"
)

// Tab indices.
const (
	tabOverview   = 0
	tabSessions   = 1
	numTabs       = 2
	listPaneWidth = 30 // fixed width of the session list pane
)

// tickMsg triggers a refresh.
type tickMsg time.Time

// statsMsg carries fetched overview data.
type statsMsg struct {
	data StatusData
	err  error
}

// sessionsMsg carries the fetched session listing.
type sessionsMsg struct {
	list SessionList
}

// sessionDetailMsg carries the fetched detail for the selected session.
type sessionDetailMsg struct {
	sessionID string
	detail    *SessionDetail
}

// model is the bubbletea model for the live dashboard.
type model struct {
	data    StatusData
	client  *http.Client
	apiBase string

	denialBar progress.Model
	spinner   spinner.Model

	// shimmer triggers when the denial count increases
	shimmer     tui.ShimmerState
	prevDenials int64

	err    error
	width  int
	height int

	// tab state
	activeTab int

	// sessions tab state
	sessions        []SessionSummary
	activeCount     int
	maxConcurrency  int
	selectedSession int // index into sessions; clamped on every update
	sessionDetail   *SessionDetail
	activeSessionID string // ID whose detail is currently loaded
}

func newModel(client *http.Client, apiBase string, pid int) model {
	denialBar := progress.New(progress.WithGradient("#3EC5DC", "#E06552"), progress.WithoutPercentage(), progress.WithWidth(20))
	denialBar.EmptyColor = "#1E2A30"

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(tui.ColorSuccess)

	shimCfg := tui.SubtleShimmerConfig()
	shimCfg.TickInterval = 25 * time.Millisecond // coarser for alt-screen redraws

	return model{
		client:    client,
		apiBase:   apiBase,
		data:      StatusData{Running: true, PID: pid},
		denialBar: denialBar,
		spinner:   s,
		shimmer:   tui.NewShimmer(shimCfg),
		width:     60,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.fetchStats(),
		m.fetchSessions(),
	)
}

// fetchStats fetches the overview status data.
func (m model) fetchStats() tea.Cmd {
	return func() tea.Msg {
		data := FetchStatus(m.client, m.apiBase, m.data.PID, m.data.LogFile)
		return statsMsg{data: data}
	}
}

// fetchSessions fetches the session listing from the API.
func (m model) fetchSessions() tea.Cmd {
	return func() tea.Msg {
		return sessionsMsg{list: FetchSessions(m.client, m.apiBase)}
	}
}

// fetchSessionDetail fetches the detail for the currently selected session.
// Safe to call when sessions is empty — returns nil cmd.
func (m model) fetchSessionDetail() tea.Cmd {
	if len(m.sessions) == 0 {
		return nil
	}
	idx := m.clampedSelection()
	sid := m.sessions[idx].SessionID
	return func() tea.Msg {
		return sessionDetailMsg{
			sessionID: sid,
			detail:    FetchSessionDetail(m.client, m.apiBase, sid),
		}
	}
}

// clampedSelection returns selectedSession clamped to valid bounds.
// Call this before indexing into m.sessions to avoid panics when the list
// shrinks between refreshes.
func (m model) clampedSelection() int {
	if len(m.sessions) == 0 {
		return 0
	}
	if m.selectedSession >= len(m.sessions) {
		return len(m.sessions) - 1
	}
	if m.selectedSession < 0 {
		return 0
	}
	return m.selectedSession
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	// ── Overview data ──────────────────────────────────────────────────────
	case statsMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			if msg.data.Denials() > m.prevDenials && m.prevDenials > 0 {
				m.shimmer.Start(20)
			}
			m.prevDenials = msg.data.Denials()
			m.data = msg.data
		}
		cmds := []tea.Cmd{tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
			return tickMsg(t)
		})}
		if m.shimmer.Active {
			cmds = append(cmds, m.shimmer.Tick())
		}
		return m, tea.Batch(cmds...)

	case tickMsg:
		cmds := []tea.Cmd{m.fetchStats()}
		if m.activeTab == tabSessions {
			cmds = append(cmds, m.fetchSessions())
		}
		return m, tea.Batch(cmds...)

	// ── Sessions data ──────────────────────────────────────────────────────
	case sessionsMsg:
		prev := m.activeSessionID

		// Preserve the selected session across refreshes by matching on ID,
		// falling back to clamping if the previously selected session disappears.
		prevSel := m.clampedSelection()
		if len(m.sessions) > prevSel {
			prev = m.sessions[prevSel].SessionID
		}

		m.sessions = msg.list.Sessions
		m.activeCount = msg.list.ActiveCount
		m.maxConcurrency = msg.list.MaxConcurrency

		// Re-find selected session by ID to avoid jumping on list reorder.
		m.selectedSession = 0
		for i, s := range m.sessions {
			if s.SessionID == prev {
				m.selectedSession = i
				break
			}
		}

		// Fetch detail if the active session changed or we have none yet.
		newSel := m.clampedSelection()
		var newID string
		if len(m.sessions) > newSel {
			newID = m.sessions[newSel].SessionID
		}
		if newID != m.activeSessionID || m.sessionDetail == nil {
			return m, m.fetchSessionDetail()
		}
		return m, nil

	case sessionDetailMsg:
		// Only apply if this response matches the currently selected session
		// to avoid a stale detail from a previous selection appearing.
		if len(m.sessions) > 0 {
			idx := m.clampedSelection()
			if msg.sessionID == m.sessions[idx].SessionID {
				m.sessionDetail = msg.detail
				m.activeSessionID = msg.sessionID
			}
		}
		return m, nil

	// ── Animation ─────────────────────────────────────────────────────────
	case tui.ShimmerTickMsg:
		if !m.shimmer.Advance() {
			return m, m.shimmer.Tick()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.denialBar.Update(msg)
		m.denialBar = pm.(progress.Model)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	// ── Keyboard ───────────────────────────────────────────────────────────
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit

		case "r":
			cmds := []tea.Cmd{m.fetchStats()}
			if m.activeTab == tabSessions {
				cmds = append(cmds, m.fetchSessions())
			}
			return m, tea.Batch(cmds...)

		case "tab":
			m.activeTab = (m.activeTab + 1) % numTabs
			if m.activeTab == tabSessions {
				return m, m.fetchSessions()
			}
			return m, nil

		case "1":
			m.activeTab = tabOverview
			return m, nil

		case "2":
			m.activeTab = tabSessions
			return m, m.fetchSessions()

		case "up", "k":
			if m.activeTab == tabSessions && m.selectedSession > 0 {
				m.selectedSession--
				m.sessionDetail = nil // clear stale detail immediately
				return m, m.fetchSessionDetail()
			}

		case "down", "j":
			if m.activeTab == tabSessions && m.selectedSession < len(m.sessions)-1 {
				m.selectedSession++
				m.sessionDetail = nil // clear stale detail immediately
				return m, m.fetchSessionDetail()
			}
		}
	}
	return m, nil
}

// ── View ──────────────────────────────────────────────────────────────────────

func (m model) View() string {
	d := m.data

	// Shared header: brand title + live status indicator
	title := tui.BrandGradient("GALLEY", true) + " " + tui.BrandGradient("STATUS", true)
	var statusDot string
	if d.Running && d.Healthy {
		statusDot = tui.StyleSuccess.Render(m.spinner.View() + " running")
	} else if d.Running {
		statusDot = tui.StyleWarning.Render(tui.IconWarning + " unhealthy")
	} else {
		statusDot = tui.StyleError.Render(tui.IconCross + " stopped")
	}
	header := title + strings.Repeat(" ", max(2, 40-lipgloss.Width(title))) + statusDot

	// Tab bar
	tabBar := m.renderTabBar()

	// Tab content + help line
	var content, helpStr string
	if m.activeTab == tabOverview {
		content = m.renderOverview()
		helpStr = tui.StyleMuted.Render("  [tab]/[2] sessions  q quit  r refresh")
	} else {
		content = m.renderSessions()
		helpStr = tui.StyleMuted.Render("  [tab]/[1] overview  [↑↓] select  q quit  r refresh")
	}

	var sb strings.Builder
	sb.WriteString(header + "\n\n")
	sb.WriteString(tabBar + "\n\n")
	sb.WriteString(content + "\n\n")
	sb.WriteString(helpStr)

	return tui.StyleBox.Render(sb.String()) + "\n"
}

// renderTabBar renders the two tab labels with the active one highlighted.
func (m model) renderTabBar() string {
	activeStyle := lipgloss.NewStyle().Bold(true).Foreground(tui.ColorPrimary)
	inactiveStyle := tui.StyleMuted

	label0 := "Overview"
	label1 := fmt.Sprintf("Sessions (%d)", len(m.sessions))

	var t0, t1 string
	if m.activeTab == tabOverview {
		t0 = activeStyle.Render("[ " + label0 + " ]")
		t1 = inactiveStyle.Render("  " + label1 + "  ")
	} else {
		t0 = inactiveStyle.Render("  " + label0 + "  ")
		t1 = activeStyle.Render("[ " + label1 + " ]")
	}
	return t0 + t1
}

// renderSlots renders concurrency occupancy as filled/empty slot glyphs.
// Falls back to a plain ratio when max is large or unknown.
func renderSlots(active, maxConc int) string {
	if maxConc <= 0 || maxConc > 20 {
		return fmt.Sprintf("%d/%d active", active, maxConc)
	}
	var b strings.Builder
	for i := 0; i < maxConc; i++ {
		if i < active {
			b.WriteString(tui.StyleRunning.Render("▰"))
		} else {
			b.WriteString(tui.StyleMuted.Render("▱"))
		}
	}
	return fmt.Sprintf("%s  %d/%d active", b.String(), active, maxConc)
}

// renderOverview renders the daemon status and admission metrics.
// Counters here are in-memory since daemon start, across all sessions.
func (m model) renderOverview() string {
	d := m.data

	// Info section
	pidStr := fmt.Sprintf("  %s  %d", tui.Faint("PID"), d.PID)
	allowStr := fmt.Sprintf("  %s  %d entries", tui.Faint("Allowlist"), d.AllowlistSize)
	healthStr := fmt.Sprintf("  %s  %s healthy", tui.Faint("Health"), tui.StyleSuccess.Render(tui.IconCheck))
	if !d.Healthy {
		healthStr = fmt.Sprintf("  %s  %s unhealthy", tui.Faint("Health"), tui.StyleError.Render(tui.IconCross))
	}
	auditStr := "disabled"
	if d.AuditEnabled {
		auditStr = "enabled"
	}
	auditLine := fmt.Sprintf("  %s  %s", tui.Faint("Audit"), auditStr)

	info := fmt.Sprintf("%-30s%s\n%-30s%s", pidStr, allowStr, healthStr, auditLine)

	workspaceStr := fmt.Sprintf("  %s  %s", tui.Faint("Workspace"), truncate(d.WorkspaceRoot, 44))
	slotsStr := fmt.Sprintf("  %s  %s", tui.Faint("Slots"), renderSlots(d.ActiveSessions, d.MaxConcurrency))

	// Metrics — in-memory counters since daemon start
	metricsTitle := tui.Separator("Command Metrics  (since daemon start)")

	executions := d.Executions()
	denials := d.Denials()

	execStr := fmt.Sprintf("  %s  %s", tui.Faint("Executed"), formatCount(executions))
	var deniedStr string
	if m.shimmer.Active {
		label := fmt.Sprintf("  %s  %s (%.1f%%)", tui.Faint("Denied"), formatCount(denials), d.DenialRate)
		runes := []rune(label)
		var bb strings.Builder
		for i, r := range runes {
			color := m.shimmer.ShimmerColor("#E06552", i)
			style := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true)
			bb.WriteString(style.Render(string(r)))
		}
		deniedStr = bb.String()
	} else {
		deniedStr = fmt.Sprintf("  %s  %s (%.1f%%)", tui.Faint("Denied"), formatCount(denials), d.DenialRate)
	}

	denialBarView := fmt.Sprintf("  %s  %s  %.1f%%", tui.Faint("Denial Rate"), m.denialBar.ViewAs(d.DenialRate/100), d.DenialRate)

	logStr := fmt.Sprintf("  %s  %s", tui.Faint("Logs"), tui.Hyperlink("file://"+d.LogFile, d.LogFile))

	var sb strings.Builder
	sb.WriteString(info + "\n")
	sb.WriteString(workspaceStr + "\n")
	sb.WriteString(slotsStr + "\n\n")
	sb.WriteString(metricsTitle + "\n\n")
	sb.WriteString(execStr + "\n")
	sb.WriteString(deniedStr + "\n\n")
	sb.WriteString(denialBarView + "\n\n")
	sb.WriteString(logStr)
	return sb.String()
}

// renderSessions renders the split-pane sessions view: the listing on the
// left, the selected session's detail and output tail on the right.
func (m model) renderSessions() string {
	if len(m.sessions) == 0 {
		return tui.StyleMuted.Render("  No sessions yet.\n  Commands will appear here as agents execute them.")
	}

	now := time.Now()
	sel := m.clampedSelection()

	// ── Left pane: session list ──────────────────────────────────────────
	var left strings.Builder
	left.WriteString(tui.StyleMuted.Render(fmt.Sprintf("Sessions  %s", renderSlots(m.activeCount, m.maxConcurrency))) + "\n")
	left.WriteString(tui.StyleMuted.Render(strings.Repeat("─", listPaneWidth)) + "\n")

	highlightStyle := lipgloss.NewStyle().
		Background(lipgloss.AdaptiveColor{Light: "#D8EEF3", Dark: "#14333C"}).
		Width(listPaneWidth)

	for i, s := range m.sessions {
		dot := sessionStatusDot(s)
		shortID := shortSessionID(s.SessionID)
		command := truncate(s.Command, 15)
		age := timeAgo(s.StartedAt, now)

		line := fmt.Sprintf("%s %-8s\n  %-15s %s", dot, shortID, command, tui.StyleMuted.Render(age))
		if i == sel {
			line = highlightStyle.Render(line)
		}
		left.WriteString(line + "\n")
	}

	// ── Right pane: detail for selected session ──────────────────────────
	// Inner width available for the right pane (terminal width - box padding - list pane - separator)
	innerWidth := m.width - 10
	rightWidth := innerWidth - listPaneWidth - 3
	rightWidth = max(rightWidth, 30)

	var right strings.Builder
	selSession := m.sessions[sel]

	rightHeader := fmt.Sprintf("%s  %s",
		tui.StyleBold.Render(shortSessionID(selSession.SessionID)),
		tui.StatusBadge(selSession.Status),
	)
	right.WriteString(rightHeader + "\n")

	if m.sessionDetail == nil || !m.sessionDetail.Exists {
		right.WriteString(tui.StyleMuted.Render(strings.Repeat("─", min(rightWidth, 48))) + "\n")
		right.WriteString(tui.StyleMuted.Render("Loading..."))
	} else {
		det := m.sessionDetail
		right.WriteString(tui.StyleCommand.Render("$ "+truncate(det.Command, rightWidth-2)) + "\n")
		right.WriteString(tui.StyleMuted.Render(truncate(det.Cwd, rightWidth)) + "\n")

		meta := timeAgo(selSession.StartedAt, now) + " ago"
		if det.ExitCode != nil {
			meta += fmt.Sprintf("  exit %d", *det.ExitCode)
		}
		if det.TimeoutMs > 0 {
			meta += fmt.Sprintf("  timeout %ds", det.TimeoutMs/1000)
		}
		right.WriteString(tui.StyleMuted.Render(meta) + "\n")
		right.WriteString(tui.StyleMuted.Render(strings.Repeat("─", min(rightWidth, 48))) + "\n")

		if det.OutputPreview == "" {
			right.WriteString(tui.StyleMuted.Render("No output"))
		} else {
			for _, line := range tailLines(det.OutputPreview, 10) {
				right.WriteString(truncate(line, rightWidth) + "\n")
			}
		}
	}

	// ── Join horizontally ────────────────────────────────────────────────
	sep := tui.StyleMuted.Render(strings.Repeat("│\n", max(len(m.sessions)*3+4, 6)))

	return lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(listPaneWidth).Render(left.String()),
		sep,
		lipgloss.NewStyle().Width(rightWidth).PaddingLeft(1).Render(right.String()),
	)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// sessionStatusDot returns a colored indicator matching the session status.
func sessionStatusDot(s SessionSummary) string {
	if s.Running {
		return tui.StyleRunning.Render(tui.IconDot)
	}
	switch s.Status {
	case "completed":
		return tui.StyleSuccess.Render(tui.IconCheck)
	case "failed":
		return tui.StyleError.Render(tui.IconCross)
	case "cancelled":
		return tui.StyleKilled.Render(tui.IconSquare)
	case "timed_out":
		return tui.StyleWarning.Render(tui.IconClock)
	default:
		return tui.StyleMuted.Render(tui.IconCircle)
	}
}

// shortSessionID returns the first 8 characters of a session ID with a trailing ellipsis.
func shortSessionID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "…"
}

// truncate shortens a string to at most n runes, adding an ellipsis if cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// tailLines returns the last n lines of s.
func tailLines(s string, n int) []string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

// timeAgo formats a duration since t as a short human-readable string.
func timeAgo(t, now time.Time) string {
	if t.IsZero() {
		return "?"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
}

// formatCount formats a number with comma separators.
func formatCount(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var result []byte
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c)) //nolint:gosec // c is an ASCII digit (0-9) or comma, always fits in byte
	}
	return string(result)
}

// Run launches the live dashboard that refreshes every 2 seconds.
// Press q to quit, r for immediate refresh, tab to switch tabs.
func Run(client *http.Client, apiBase string, pid int, logFile string) error {
	if tui.IsPlainMode() {
		data := FetchStatus(client, apiBase, pid, logFile)
		fmt.Println(RenderPlain(data))
		return nil
	}

	m := newModel(client, apiBase, pid)
	m.data.LogFile = logFile
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderStatic renders a one-shot enhanced status display (no interactivity).
func RenderStatic(data StatusData) string {
	if tui.IsPlainMode() {
		return RenderPlain(data)
	}

	var sb strings.Builder

	// Status line
	var status string
	if data.Running && data.Healthy {
		status = tui.StyleSuccess.Render(tui.IconDot + " running")
	} else if data.Running {
		status = tui.StyleWarning.Render(tui.IconWarning + " unhealthy")
	} else {
		status = tui.StyleError.Render(tui.IconCross + " stopped")
	}

	sb.WriteString(tui.BrandGradient("GALLEY", true) + "  " + status + "\n\n")

	if data.Running {
		fmt.Fprintf(&sb, "  %s  %d\n", tui.Faint("PID"), data.PID)
		if data.Version != "" {
			fmt.Fprintf(&sb, "  %s  %s\n", tui.Faint("Version"), data.Version)
		}
		if data.WorkspaceRoot != "" {
			fmt.Fprintf(&sb, "  %s  %s\n", tui.Faint("Workspace"), data.WorkspaceRoot)
		}
		fmt.Fprintf(&sb, "  %s  %d entries\n", tui.Faint("Allowlist"), data.AllowlistSize)
		fmt.Fprintf(&sb, "  %s  %s\n", tui.Faint("Slots"), renderSlots(data.ActiveSessions, data.MaxConcurrency))

		if attempts := data.Executions() + data.Denials(); attempts > 0 {
			fmt.Fprintf(&sb, "  %s  %s executed, %s denied (%.1f%%)\n",
				tui.Faint("Commands"), formatCount(data.Executions()), formatCount(data.Denials()), data.DenialRate)
		}

		fmt.Fprintf(&sb, "  %s  %s",
			tui.Faint("Logs"), tui.Hyperlink("file://"+data.LogFile, data.LogFile))
	}

	return tui.StyleBox.Render(sb.String())
}
