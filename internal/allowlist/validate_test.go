package allowlist

import (
	"strings"
	"testing"
)

func testList(t *testing.T) *List {
	t.Helper()
	return NewTestList([]Entry{
		mustEntry(t, "echo", nil),
		mustEntry(t, "cat", nil),
		mustEntry(t, "ls", nil),
		mustEntry(t, "npm", nil),
	})
}

func TestValidateCommand_AllowlistedCommand(t *testing.T) {
	got := ValidateCommand("echo hello", testList(t), Options{})
	if !got.Allowed {
		t.Fatalf("ValidateCommand(echo hello) denied: %s", got.Reason)
	}
	if got.Entry == nil || got.Entry.Pattern.String() != "echo" {
		t.Errorf("matched entry = %+v, want the echo entry", got.Entry)
	}
}

func TestValidateCommand_UnlistedCommand(t *testing.T) {
	got := ValidateCommand("deploytool --now", testList(t), Options{})
	if got.Allowed {
		t.Fatal("ValidateCommand allowed an unlisted command")
	}
	if !strings.Contains(got.Reason, "deploytool") {
		t.Errorf("reason %q does not name the command", got.Reason)
	}
}

func TestValidateCommand_InjectionHardFail(t *testing.T) {
	// The base command is allowlisted and pipes are enabled, but the
	// injection signature must still win.
	got := ValidateCommand("cat /tmp/x; rm -rf /", testList(t), Options{AllowPipes: true, AllowBackground: true})
	if got.Allowed {
		t.Fatal("ValidateCommand allowed an injection signature")
	}
	if !strings.Contains(got.Reason, "dangerous pattern") {
		t.Errorf("reason %q, want an injection denial", got.Reason)
	}
}

func TestValidateCommand_FeatureGates(t *testing.T) {
	tests := []struct {
		name    string
		command string
		opts    Options
		allowed bool
		reason  string
	}{
		{"pipes denied by default", "cat a.txt | head", Options{}, false, "pipes"},
		{"pipes enabled", "cat a.txt | head", Options{AllowPipes: true}, true, ""},
		{"redirection denied by default", "echo hi > out.txt", Options{}, false, "redirections"},
		{"redirection enabled", "echo hi > out.txt", Options{AllowRedirections: true}, true, ""},
		{"substitution denied by default", "echo $(whoami)", Options{}, false, "substitution"},
		{"substitution enabled", "echo $(whoami)", Options{AllowCommandSubstitution: true}, true, ""},
		{"background denied by default", "npm run watch &", Options{}, false, "background"},
		{"background enabled", "npm run watch &", Options{AllowBackground: true}, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateCommand(tt.command, testList(t), tt.opts)
			if got.Allowed != tt.allowed {
				t.Fatalf("ValidateCommand(%q).Allowed = %v, want %v (reason: %s)",
					tt.command, got.Allowed, tt.allowed, got.Reason)
			}
			if !tt.allowed && !strings.Contains(got.Reason, tt.reason) {
				t.Errorf("reason %q does not mention %q", got.Reason, tt.reason)
			}
		})
	}
}

func TestValidateCommand_GatesPrecedeAllowlist(t *testing.T) {
	// The base command is not allowlisted either, but the gate denial
	// must be reported first.
	got := ValidateCommand("deploytool | tee log", testList(t), Options{})
	if got.Allowed {
		t.Fatal("ValidateCommand allowed a piped unlisted command")
	}
	if !strings.Contains(got.Reason, "pipes") {
		t.Errorf("reason %q, want the pipe gate to fire before the allowlist", got.Reason)
	}
}

func TestValidateCommand_ScreenRejectsControlCharacters(t *testing.T) {
	tests := []struct {
		name    string
		command string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"null byte", "echo hi\x00"},
		{"newline smuggle", "echo hi\nrm -rf /"},
		{"escape sequence", "echo \x1b[31mred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateCommand(tt.command, testList(t), Options{}); got.Allowed {
				t.Errorf("ValidateCommand(%q) allowed", tt.command)
			}
		})
	}
}

func TestValidateCommand_NormalizedInjectionCaught(t *testing.T) {
	// Fullwidth characters hide the signature from the raw scan; the
	// normalized form must still be checked.
	command := "cat /etc/hosts; ｒｍ －ｒｆ /"
	got := ValidateCommand(command, testList(t), Options{})
	if got.Allowed {
		t.Fatal("ValidateCommand allowed a homoglyph-obfuscated injection")
	}
	if !strings.Contains(got.Reason, "dangerous pattern") {
		t.Errorf("reason %q, want an injection denial", got.Reason)
	}
}

func TestValidateCommand_NormalizedMetacharGated(t *testing.T) {
	// A fullwidth pipe normalizes to a real pipe and must hit the gate.
	got := ValidateCommand("cat a.txt ｜ head", testList(t), Options{})
	if got.Allowed {
		t.Fatal("ValidateCommand allowed a fullwidth pipe")
	}
	if !strings.Contains(got.Reason, "pipes") {
		t.Errorf("reason %q, want the pipe gate", got.Reason)
	}
}

func TestValidateCommand_MatchesOnNormalizedForm(t *testing.T) {
	// Zero-width characters inside the base command must not defeat
	// allowlist matching: the normalized form is what is matched.
	got := ValidateCommand("echo​ hello", testList(t), Options{})
	if !got.Allowed {
		t.Fatalf("ValidateCommand denied a zero-width-obfuscated echo: %s", got.Reason)
	}
}
