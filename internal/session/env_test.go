package session

import (
	"os"
	"strings"
	"testing"
)

func envContains(env []string, kv string) bool {
	for _, e := range env {
		if e == kv {
			return true
		}
	}
	return false
}

func envHasKey(env []string, key string) bool {
	for _, e := range env {
		if strings.HasPrefix(e, key+"=") {
			return true
		}
	}
	return false
}

func TestBuildEnv_OverlayWins(t *testing.T) {
	t.Setenv("GALLEY_ENV_TEST", "base")

	env := buildEnv(map[string]string{"GALLEY_ENV_TEST": "overlay"}, false)

	if !envContains(env, "GALLEY_ENV_TEST=overlay") {
		t.Error("overlay value missing from environment")
	}
	if envContains(env, "GALLEY_ENV_TEST=base") {
		t.Error("base value survived the overlay")
	}
}

func TestBuildEnv_OverlayAddsNewKeys(t *testing.T) {
	env := buildEnv(map[string]string{"GALLEY_EXTRA_VAR": "v1"}, false)
	if !envContains(env, "GALLEY_EXTRA_VAR=v1") {
		t.Error("overlay-only key missing from environment")
	}
}

func TestBuildEnv_SanitizeDropsUnknownKeys(t *testing.T) {
	t.Setenv("GALLEY_FAKE_API_KEY", "secret")

	env := buildEnv(nil, true)

	if envHasKey(env, "GALLEY_FAKE_API_KEY") {
		t.Error("sanitized environment leaked a non-allowlisted variable")
	}
	if !envHasKey(env, "PATH") {
		t.Error("sanitized environment dropped PATH")
	}
}

func TestBuildEnv_SanitizedOverlayStillApplies(t *testing.T) {
	env := buildEnv(map[string]string{"GALLEY_TASK": "build"}, true)
	if !envContains(env, "GALLEY_TASK=build") {
		t.Error("overlay not applied on top of the sanitized base")
	}
}

func TestBuildEnv_EnsuresTERM(t *testing.T) {
	// Register restoration, then genuinely unset.
	t.Setenv("TERM", "xterm")
	os.Unsetenv("TERM")

	env := buildEnv(nil, true)

	if !envContains(env, "TERM=xterm-256color") {
		t.Error("TERM default missing when the variable is unset")
	}
}
