// Package completion provides CLI tab-completion for galley.
//
// The binary itself handles completions: when invoked with COMP_LINE set
// (by the shell), it outputs matching completions and exits.
// Works across bash, zsh, and fish with a one-time install.
//
// This package has no TUI dependency — it compiles in both normal and notui
// builds. User-facing output (styled messages, spinners) is handled by the
// caller in main.go, which can use TUI when available.
package completion

import (
	"os"

	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/install"
	"github.com/posener/complete/v2/predict"
)

// command defines the full galley CLI completion tree.
var command = &complete.Command{
	Sub: map[string]*complete.Command{
		"start": {
			Flags: map[string]complete.Predictor{
				"config":          predict.Files("*.yaml"),
				"workspace-root":  predict.Dirs("*"),
				"port":            predict.Nothing,
				"log-level":       predict.Set{"trace", "debug", "info", "warn", "error"},
				"no-color":        predict.Nothing,
				"disable-builtin": predict.Nothing,
				"max-concurrency": predict.Nothing,
				"db-key":          predict.Nothing,
				"audit":           predict.Nothing,
				"retention-days":  predict.Nothing,
				"sanitize-env":    predict.Nothing,
				"foreground":      predict.Nothing,
			},
		},
		"stop":   {},
		"status": {Flags: map[string]complete.Predictor{"json": predict.Nothing}},
		"logs":   {Flags: map[string]complete.Predictor{"f": predict.Nothing, "n": predict.Nothing}},
		"exec": {
			Flags: map[string]complete.Predictor{
				"cwd":        predict.Dirs("*"),
				"timeout-ms": predict.Nothing,
				"json":       predict.Nothing,
			},
			Args: predict.Something,
		},
		"check":        {Flags: map[string]complete.Predictor{"cwd": predict.Dirs("*"), "json": predict.Nothing}, Args: predict.Something},
		"sessions":     {Flags: map[string]complete.Predictor{"json": predict.Nothing, "active": predict.Nothing}},
		"kill":         {Flags: map[string]complete.Predictor{"reason": predict.Nothing}, Args: predict.Something},
		"allow-add":    {Args: predict.Files("*.yaml")},
		"allow-list":   {Flags: map[string]complete.Predictor{"json": predict.Nothing, "source": predict.Set{"builtin", "user", "config", "cli"}}},
		"allow-reload": {},
		"allow-lint":   {Flags: map[string]complete.Predictor{"info": predict.Nothing}, Args: predict.Files("*.yaml")},
		"init":         {},
		"top":          {},
		"version":      {Flags: map[string]complete.Predictor{"json": predict.Nothing}},
		"uninstall":    {},
		"help":         {},
		"completion":   {Flags: map[string]complete.Predictor{"install": predict.Nothing, "uninstall": predict.Nothing}},
	},
}

// Run checks if the binary was invoked for shell completion.
// If COMP_LINE is set, it outputs completions and exits (never returns).
// Otherwise it returns false and the program continues normally.
func Run() bool {
	if os.Getenv("COMP_LINE") != "" || os.Getenv("COMP_INSTALL") != "" || os.Getenv("COMP_UNINSTALL") != "" {
		command.Complete("galley")
		return true
	}
	return false
}

// Install sets up shell completion for the detected shells.
// Returns nil on success. The caller handles user-facing output.
func Install() error {
	return install.Install("galley")
}

// Uninstall removes shell completion for the detected shells.
// Returns nil on success. The caller handles user-facing output.
func Uninstall() error {
	return install.Uninstall("galley")
}

// IsInstalled reports whether shell completion is already set up.
func IsInstalled() bool {
	return install.IsInstalled("galley")
}
