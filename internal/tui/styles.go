package tui

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/BakeLens/galley/internal/tui/terminal"
)

// plainMode disables all TUI styling: no colors, no icons, no animations, no boxes.
// When enabled, output is clean plain text suitable for CI/CD, piped output, or --no-color.
var (
	plainMode bool
	plainOnce sync.Once
	plainMu   sync.RWMutex
)

// initPlainMode auto-detects plain mode from environment on first call.
// Precedence: NO_COLOR > TTY detection > terminal capability detection.
func initPlainMode() {
	plainOnce.Do(func() {
		// NO_COLOR wins — https://no-color.org
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			plainMode = true
			return
		}
		// Not a terminal (piped, redirected, daemon) → plain mode
		if !term.IsTerminal(int(os.Stdout.Fd())) { //nolint:gosec // Fd() fits in int on all supported platforms
			plainMode = true
			return
		}
		// Unknown terminal with no detected capabilities → plain mode.
		// Known emulators and terminals with COLORTERM=truecolor get TUI.
		if terminal.Detect().Caps == terminal.CapNone {
			plainMode = true
		}
	})
}

// SetPlainMode explicitly enables or disables plain mode.
// Call this early (e.g. when parsing --no-color flag) before any TUI output.
func SetPlainMode(plain bool) {
	plainMu.Lock()
	defer plainMu.Unlock()
	plainMode = plain
	// Mark as initialized so auto-detect doesn't override
	plainOnce.Do(func() {})
}

// IsPlainMode returns true if TUI styling is disabled.
func IsPlainMode() bool {
	initPlainMode()
	plainMu.RLock()
	defer plainMu.RUnlock()
	return plainMode
}

// Color palette — cool maritime tones with a brass accent. Adapts to OS theme.
var (
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#0F6E84", Dark: "#3EC5DC"} // Bright Cyan
	ColorAccent  = lipgloss.AdaptiveColor{Light: "#8C6D1F", Dark: "#D4B35A"} // Brass
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#3E7557", Dark: "#6FBF8F"} // Seafoam
	ColorError   = lipgloss.AdaptiveColor{Light: "#B33E34", Dark: "#E06552"} // Coral
	ColorWarning = lipgloss.AdaptiveColor{Light: "#9A6B0B", Dark: "#E8B93E"} // Buoy Amber
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#33687D", Dark: "#8FD3E8"} // Pale Cyan
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#64748B", Dark: "#8C9BAB"} // Slate
	ColorKilled  = lipgloss.AdaptiveColor{Light: "#A5542C", Dark: "#D97742"} // Rust
)

// Reusable styles.
var (
	// Text styles
	StyleTitle    = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	StyleSubtitle = lipgloss.NewStyle().Foreground(ColorAccent)
	StyleSuccess  = lipgloss.NewStyle().Foreground(ColorSuccess)
	StyleError    = lipgloss.NewStyle().Foreground(ColorError)
	StyleWarning  = lipgloss.NewStyle().Foreground(ColorWarning)
	StyleInfo     = lipgloss.NewStyle().Foreground(ColorInfo)
	StyleMuted    = lipgloss.NewStyle().Foreground(ColorMuted)
	StyleBold     = lipgloss.NewStyle().Bold(true)
	StyleCommand  = lipgloss.NewStyle().Foreground(ColorPrimary)

	// Accent style (brass)
	StyleAccent = lipgloss.NewStyle().Foreground(ColorAccent)

	// Branded prefix: [galley] (unexported — use Prefix() instead)
	stylePrefix = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)

	// Box style for branded containers — rounded border
	StyleBox = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(1, 2)

	// Session status styles
	StyleRunning = lipgloss.NewStyle().Foreground(ColorPrimary)
	StyleKilled  = lipgloss.NewStyle().Foreground(ColorKilled)
)

// Prefix returns the branded [galley] prefix string.
func Prefix() string {
	if IsPlainMode() {
		return "[galley]"
	}
	return stylePrefix.Render("[galley]")
}

// brandGradientHex is the banner gradient (sea foam → cyan → deep teal) for brand text.
var brandGradientHex = []string{
	"#C6F1F7", "#B8ECF4", "#AAE7F1", "#9CE2EE", "#8EDDEB",
	"#80D8E8", "#72D3E5", "#64CEE2", "#56C9DF", "#48C4DC",
	"#3FBED6", "#39B5CE", "#33ACC6", "#2DA3BE", "#279AB6",
	"#2391AE", "#2088A6", "#1D7F9E", "#1A7696", "#186D8E",
	"#166486", "#145B7E", "#125276", "#10496E", "#0E4066",
}

// BrandGradient renders text with the banner's sea foam → deep teal gradient.
// In plain mode, returns the text unstyled.
func BrandGradient(text string, bold bool) string {
	if IsPlainMode() {
		return text
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return ""
	}
	width := len(runes)
	var b strings.Builder
	for i, r := range runes {
		if r == ' ' {
			b.WriteRune(r)
			continue
		}
		idx := i * (len(brandGradientHex) - 1) / max(width-1, 1)
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(brandGradientHex[idx]))
		if bold {
			style = style.Bold(true)
		}
		b.WriteString(style.Render(string(r)))
	}
	return b.String()
}

// StatusStyle returns the style for a session status.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "running":
		return StyleRunning
	case "completed":
		return StyleSuccess
	case "failed", "denied":
		return StyleError
	case "cancelled":
		return StyleKilled
	case "timed_out":
		return StyleWarning
	case "error":
		return StyleWarning
	default:
		return StyleMuted
	}
}

// StatusBadge returns a styled session status badge like "● RUNNING".
func StatusBadge(status string) string {
	label := statusLabel(status)
	if IsPlainMode() {
		return "[" + label + "]"
	}
	icon := statusIcon(status)
	style := StatusStyle(status)
	return style.Render(icon + " " + label)
}

func statusIcon(status string) string {
	switch status {
	case "running":
		return IconDot
	case "completed":
		return IconCheck
	case "failed":
		return IconCross
	case "cancelled":
		return IconSquare
	case "timed_out":
		return IconClock
	case "denied":
		return IconBlock
	case "error":
		return IconWarning
	default:
		return IconCircle
	}
}

func statusLabel(status string) string {
	switch status {
	case "timed_out":
		return "TIMED OUT"
	case "running", "completed", "failed", "cancelled", "denied", "error":
		return strings.ToUpper(status)
	default:
		return status
	}
}

// hasCapability reports whether the current terminal supports the given capability.
// Always returns false in plain mode (no styled output).
func hasCapability(c terminal.Capability) bool {
	if IsPlainMode() {
		return false
	}
	return terminal.Detect().Caps.Has(c)
}

// Separator returns a gradient-colored section separator bar.
// The trailing bar fades from cyan → dark slate using GenerateGradient.
func Separator(title string) string {
	if IsPlainMode() {
		if title == "" {
			return "---"
		}
		return "--- " + title + " ---"
	}
	bar := "≈≈"
	trail := gradientTrail("━", 24, "#3EC5DC", "#22333B")
	if title == "" {
		return StyleMuted.Render(bar) + trail
	}
	return StyleAccent.Render(bar+" ") + StyleBold.Render(title) + StyleAccent.Render(" "+bar) + trail
}

// gradientTrail renders a repeated character with a smooth color gradient fade.
func gradientTrail(char string, length int, from, to string) string {
	colors := GenerateGradient(from, to, length)
	var b strings.Builder
	for _, c := range colors {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(c)).Render(char))
	}
	return b.String()
}

// GradientText renders text with a smooth color gradient from one hex color to another.
// In plain mode, returns the text unstyled.
func GradientText(text, from, to string) string {
	if IsPlainMode() {
		return text
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return ""
	}
	colors := GenerateGradient(from, to, len(runes))
	var b strings.Builder
	for i, r := range runes {
		if r == ' ' {
			b.WriteRune(r)
			continue
		}
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(colors[i])).Render(string(r)))
	}
	return b.String()
}

// Hyperlink wraps text in an OSC 8 clickable link if the terminal supports it.
// Falls back to plain text when unsupported or in plain mode.
func Hyperlink(url, text string) string {
	if url == "" || !hasCapability(terminal.CapHyperlinks) {
		return text
	}
	return termenv.Hyperlink(url, text)
}

// WindowTitle sets the terminal window title via OSC 2.
// No-op if the terminal doesn't support it or in plain mode.
// Not goroutine-safe — call only from the main goroutine.
func WindowTitle(title string) {
	if !hasCapability(terminal.CapWindowTitle) {
		return
	}
	termenv.DefaultOutput().SetWindowTitle(title)
}

// Capability-aware styles (unexported — use the helper functions below).
var (
	styleFaint         = lipgloss.NewStyle().Faint(true)
	styleItalic        = lipgloss.NewStyle().Italic(true)
	styleStrikethrough = lipgloss.NewStyle().Strikethrough(true)
)

// Faint returns text with faint/dim formatting if supported.
func Faint(text string) string {
	if !hasCapability(terminal.CapFaint) {
		return text
	}
	return styleFaint.Render(text)
}

// Italic returns text with italic formatting if supported.
func Italic(text string) string {
	if !hasCapability(terminal.CapItalic) {
		return text
	}
	return styleItalic.Render(text)
}

// Strikethrough returns text with strikethrough formatting if supported.
func Strikethrough(text string) string {
	if !hasCapability(terminal.CapStrikethrough) {
		return text
	}
	return styleStrikethrough.Render(text)
}

// ─── Color utilities ─────────────────────────────────────────────────────────

// HexToRGB parses a "#RRGGBB" hex string into its components.
func HexToRGB(hex string) (uint8, uint8, uint8) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0
	}
	var r, g, b uint8
	fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b) //nolint:errcheck // invalid hex returns 0,0,0
	return r, g, b
}

// InterpolateColor linearly interpolates between two hex colors.
// t ranges from 0.0 (from) to 1.0 (to).
func InterpolateColor(from, to string, t float64) string {
	r1, g1, b1 := HexToRGB(from)
	r2, g2, b2 := HexToRGB(to)
	r := uint8(float64(r1) + t*(float64(r2)-float64(r1)))
	g := uint8(float64(g1) + t*(float64(g2)-float64(g1)))
	b := uint8(float64(b1) + t*(float64(b2)-float64(b1)))
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

// GenerateGradient creates n hex colors interpolated between two endpoints.
func GenerateGradient(from, to string, n int) []string {
	if n <= 0 {
		return []string{}
	}
	if n == 1 {
		return []string{from}
	}
	colors := make([]string, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1)
		colors[i] = InterpolateColor(from, to, t)
	}
	return colors
}
