package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{"trace", LevelTrace, false},
		{"debug", LevelDebug, false},
		{"info", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"", LevelInfo, false},       // empty defaults to info
		{"TRACE", LevelTrace, false}, // case-insensitive
		{"Debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"invalid", 0, true},
		{"verbose", 0, true},
		{"fatal", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseLevel(%q) should return error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLevel(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelTrace, "TRACE"},
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetColored(false)
	SetGlobalLevel(LevelWarn)
	defer func() {
		SetOutput(os.Stderr)
		SetGlobalLevel(LevelInfo)
		SetColored(true)
	}()

	log := New("test")
	log.Debug("hidden %d", 1)
	log.Info("hidden too")
	log.Warn("visible warning")
	log.Error("visible error")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below the global level leaked into output: %q", out)
	}
	if !strings.Contains(out, "visible warning") || !strings.Contains(out, "visible error") {
		t.Errorf("expected warn and error lines, got: %q", out)
	}
	if !strings.Contains(out, "[test]") {
		t.Errorf("prefix missing from output: %q", out)
	}
}
