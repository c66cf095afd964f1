package session

import (
	"os"
	"runtime"
	"sort"
	"strings"
)

// buildEnv assembles the child environment: the process environment (or
// the safe-key subset when sanitize is set) with overlay merged over it,
// overlay winning on conflict. TERM is ensured since the child always
// runs on a PTY.
func buildEnv(overlay map[string]string, sanitize bool) []string {
	var base []string
	if sanitize {
		base = sanitizedEnv()
	} else {
		base = os.Environ()
	}

	vars := make(map[string]string, len(base)+len(overlay))
	order := make([]string, 0, len(base)+len(overlay))
	for _, kv := range base {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if _, seen := vars[k]; !seen {
			order = append(order, k)
		}
		vars[k] = v
	}

	overlayKeys := make([]string, 0, len(overlay))
	for k := range overlay {
		overlayKeys = append(overlayKeys, k)
	}
	sort.Strings(overlayKeys)
	for _, k := range overlayKeys {
		if _, seen := vars[k]; !seen {
			order = append(order, k)
		}
		vars[k] = overlay[k]
	}

	if _, ok := vars["TERM"]; !ok {
		vars["TERM"] = "xterm-256color"
		order = append(order, "TERM")
	}

	env := make([]string, 0, len(order))
	for _, k := range order {
		env = append(env, k+"="+vars[k])
	}
	return env
}

// sanitizedEnv returns a minimal environment for the child process. Only
// allowlisted variables pass through, so API keys and tokens in the
// parent environment never reach sandboxed commands.
func sanitizedEnv() []string {
	var env []string
	for _, key := range safeEnvKeys() {
		if val, ok := os.LookupEnv(key); ok {
			env = append(env, key+"="+val)
		}
	}
	return env
}

// safeEnvKeys returns the platform-appropriate set of safe variable names.
func safeEnvKeys() []string {
	if runtime.GOOS == "windows" {
		return []string{
			"PATH", "USERPROFILE", "USERNAME", "HOMEDRIVE", "HOMEPATH",
			"LANG", "TERM", "TEMP", "TMP", "TZ",
			"SYSTEMROOT", "COMSPEC", "PATHEXT",
		}
	}
	return []string{"PATH", "HOME", "USER", "LANG", "LC_ALL", "TERM", "SHELL", "TMPDIR", "TZ"}
}
