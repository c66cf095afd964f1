package terminal

import "testing"

func mockEnv(vars map[string]string) EnvFunc {
	return func(key string) string {
		return vars[key]
	}
}

func TestCapabilityBitOps(t *testing.T) {
	c := CapNone.With(CapTruecolor).With(CapItalic)
	if !c.Has(CapTruecolor) {
		t.Error("expected truecolor after With")
	}
	if !c.Has(CapItalic) {
		t.Error("expected italic after With")
	}
	if c.Has(CapHyperlinks) {
		t.Error("did not expect hyperlinks")
	}
	c = c.Without(CapItalic)
	if c.Has(CapItalic) {
		t.Error("expected italic removed after Without")
	}
	if !CapAll.Has(CapTruecolor | CapWindowTitle) {
		t.Error("CapAll should include every capability")
	}
}

func TestDetectWith_DumbTerminal(t *testing.T) {
	// TERM=dumb wins even when other identifying vars are present.
	info := DetectWith(mockEnv(map[string]string{
		"TERM":            "dumb",
		"KITTY_WINDOW_ID": "1",
		"COLORTERM":       "truecolor",
	}))
	if info.Caps != CapNone {
		t.Errorf("expected CapNone for TERM=dumb, got %b", info.Caps)
	}
}

func TestDetectWith_FullCapabilityTerminals(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"windows terminal", map[string]string{"WT_SESSION": "abc-123"}},
		{"kitty", map[string]string{"KITTY_WINDOW_ID": "1"}},
		{"ghostty env", map[string]string{"GHOSTTY_RESOURCES_DIR": "/usr/share/ghostty"}},
		{"ghostty term program", map[string]string{"TERM_PROGRAM": "ghostty"}},
		{"alacritty", map[string]string{"ALACRITTY_LOG": "/tmp/alacritty.log"}},
		{"wezterm", map[string]string{"WEZTERM_EXECUTABLE": "/usr/bin/wezterm"}},
		{"tilix", map[string]string{"TILIX_ID": "uuid"}},
		{"gnome terminal", map[string]string{"GNOME_TERMINAL_SCREEN": "/org/gnome/x"}},
		{"vscode", map[string]string{"TERM_PROGRAM": "vscode"}},
		{"iterm2", map[string]string{"TERM_PROGRAM": "iTerm.app"}},
		{"foot", map[string]string{"TERM": "foot"}},
		{"foot extra", map[string]string{"TERM": "foot-extra"}},
		{"vte", map[string]string{"VTE_VERSION": "7200"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := DetectWith(mockEnv(tt.env))
			if info.Caps != CapAll {
				t.Errorf("expected CapAll, got %b", info.Caps)
			}
		})
	}
}

func TestDetectWith_LimitedTerminals(t *testing.T) {
	info := DetectWith(mockEnv(map[string]string{"TERM_PROGRAM": "Apple_Terminal"}))
	if info.Caps.Has(CapTruecolor) {
		t.Error("Apple Terminal should not report truecolor")
	}
	if info.Caps.Has(CapStrikethrough) {
		t.Error("Apple Terminal should not report strikethrough")
	}
	if !info.Caps.Has(CapWindowTitle) {
		t.Error("Apple Terminal should support window titles")
	}

	info = DetectWith(mockEnv(map[string]string{"KONSOLE_VERSION": "230400"}))
	if info.Caps.Has(CapHyperlinks) {
		t.Error("Konsole profile should not enable hyperlinks")
	}
	if !info.Caps.Has(CapTruecolor) {
		t.Error("Konsole should report truecolor")
	}
}

func TestDetectWith_UnknownTerminal(t *testing.T) {
	info := DetectWith(mockEnv(map[string]string{"TERM": "xterm-256color"}))
	if info.Caps != CapNone {
		t.Errorf("unknown terminal without COLORTERM should be CapNone, got %b", info.Caps)
	}

	info = DetectWith(mockEnv(map[string]string{
		"TERM":      "xterm-256color",
		"COLORTERM": "truecolor",
	}))
	if !info.Caps.Has(CapTruecolor) {
		t.Error("COLORTERM=truecolor should enable truecolor")
	}
	if info.Caps.Has(CapHyperlinks) {
		t.Error("COLORTERM should not enable hyperlinks")
	}

	info = DetectWith(mockEnv(map[string]string{"COLORTERM": "24bit"}))
	if !info.Caps.Has(CapTruecolor) {
		t.Error("COLORTERM=24bit should enable truecolor")
	}
}

func TestDetectWith_Multiplexer(t *testing.T) {
	info := DetectWith(mockEnv(map[string]string{
		"TMUX":            "/tmp/tmux-1000/default,1234,0",
		"KITTY_WINDOW_ID": "1",
	}))
	if !info.Multiplexed {
		t.Error("TMUX should set Multiplexed")
	}
	if info.Caps != CapAll {
		t.Error("multiplexed kitty should keep full capabilities")
	}

	info = DetectWith(mockEnv(map[string]string{"STY": "1234.pts-0.host"}))
	if !info.Multiplexed {
		t.Error("STY should set Multiplexed")
	}
}
