package tui

import (
	"testing"

	"github.com/BakeLens/galley/internal/tui/terminal"
)

// These tests modify global state (plainMode) and must not run in parallel.

func enablePlainMode(t *testing.T) {
	t.Helper()
	SetPlainMode(true)
	t.Cleanup(func() { SetPlainMode(false) })
}

func TestHasCapability_PlainMode(t *testing.T) {
	enablePlainMode(t)

	caps := []terminal.Capability{
		terminal.CapTruecolor,
		terminal.CapHyperlinks,
		terminal.CapItalic,
		terminal.CapFaint,
		terminal.CapStrikethrough,
		terminal.CapWindowTitle,
	}
	for _, c := range caps {
		if hasCapability(c) {
			t.Errorf("hasCapability(%d) should return false in plain mode", c)
		}
	}
}

func TestCapabilityHelpers_PlainMode(t *testing.T) {
	enablePlainMode(t)

	tests := []struct {
		name string
		fn   func(string) string
	}{
		{"Faint", Faint},
		{"Italic", Italic},
		{"Strikethrough", Strikethrough},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn("hello")
			if got != "hello" {
				t.Errorf("%s in plain mode = %q, want %q", tt.name, got, "hello")
			}
		})
	}
}

func TestHyperlink_PlainMode(t *testing.T) {
	enablePlainMode(t)

	got := Hyperlink("https://example.com", "click")
	if got != "click" {
		t.Errorf("Hyperlink in plain mode = %q, want %q", got, "click")
	}
}

func TestHyperlink_EmptyURL(t *testing.T) {
	SetPlainMode(false)
	defer SetPlainMode(false)

	got := Hyperlink("", "click")
	if got != "click" {
		t.Errorf("Hyperlink with empty URL = %q, want %q", got, "click")
	}
}

func TestPrefix_PlainMode(t *testing.T) {
	enablePlainMode(t)

	got := Prefix()
	if got != "[galley]" {
		t.Errorf("Prefix() in plain mode = %q, want %q", got, "[galley]")
	}
}

func TestStatusBadge_PlainMode(t *testing.T) {
	enablePlainMode(t)

	tests := []struct {
		status string
		want   string
	}{
		{"running", "[RUNNING]"},
		{"completed", "[COMPLETED]"},
		{"failed", "[FAILED]"},
		{"cancelled", "[CANCELLED]"},
		{"timed_out", "[TIMED OUT]"},
		{"denied", "[DENIED]"},
		{"error", "[ERROR]"},
		{"unknown", "[unknown]"},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			got := StatusBadge(tt.status)
			if got != tt.want {
				t.Errorf("StatusBadge(%q) = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}

func TestStatusStyle_MapsCorrectly(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{"running", "running"},
		{"completed", "success"},
		{"failed", "error"},
		{"denied", "error"},
		{"cancelled", "killed"},
		{"timed_out", "warning"},
		{"error", "warning"},
		{"unknown", "muted"},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			got := StatusStyle(tt.status)
			var expected string
			switch tt.want {
			case "running":
				expected = StyleRunning.Render("x")
			case "success":
				expected = StyleSuccess.Render("x")
			case "error":
				expected = StyleError.Render("x")
			case "killed":
				expected = StyleKilled.Render("x")
			case "warning":
				expected = StyleWarning.Render("x")
			case "muted":
				expected = StyleMuted.Render("x")
			}
			if got.Render("x") != expected {
				t.Errorf("StatusStyle(%q) returned wrong style", tt.status)
			}
		})
	}
}

func TestSeparator_PlainMode(t *testing.T) {
	enablePlainMode(t)

	got := Separator("")
	if got != "---" {
		t.Errorf("Separator(\"\") in plain mode = %q, want %q", got, "---")
	}

	got = Separator("Title")
	if got != "--- Title ---" {
		t.Errorf("Separator(\"Title\") in plain mode = %q, want %q", got, "--- Title ---")
	}
}

func TestSetPlainMode_Overrides(t *testing.T) {
	SetPlainMode(true)
	if !IsPlainMode() {
		t.Error("IsPlainMode() should be true after SetPlainMode(true)")
	}

	SetPlainMode(false)
	if IsPlainMode() {
		t.Error("IsPlainMode() should be false after SetPlainMode(false)")
	}

	SetPlainMode(false)
}

func TestGenerateGradient(t *testing.T) {
	got := GenerateGradient("#000000", "#FFFFFF", 3)
	if len(got) != 3 {
		t.Fatalf("got %d colors, want 3", len(got))
	}
	if got[0] != "#000000" {
		t.Errorf("first color = %q, want #000000", got[0])
	}
	if got[2] != "#FFFFFF" {
		t.Errorf("last color = %q, want #FFFFFF", got[2])
	}
	if got[1] != "#7F7F7F" {
		t.Errorf("midpoint = %q, want #7F7F7F", got[1])
	}

	if n := len(GenerateGradient("#000000", "#FFFFFF", 0)); n != 0 {
		t.Errorf("zero-length gradient returned %d colors", n)
	}
	one := GenerateGradient("#102030", "#FFFFFF", 1)
	if len(one) != 1 || one[0] != "#102030" {
		t.Errorf("single-color gradient = %v, want [#102030]", one)
	}
}

func TestInterpolateColor_Endpoints(t *testing.T) {
	if got := InterpolateColor("#3EC5DC", "#22333B", 0); got != "#3EC5DC" {
		t.Errorf("t=0 = %q, want start color", got)
	}
	if got := InterpolateColor("#3EC5DC", "#22333B", 1); got != "#22333B" {
		t.Errorf("t=1 = %q, want end color", got)
	}
}
