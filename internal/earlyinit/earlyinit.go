// Package earlyinit neutralizes terminal probes before any
// charmbracelet package gets a chance to run its init().
//
// bubbletea's init() path ends in lipgloss.HasDarkBackground(), which
// writes OSC 11 and DSR escape sequences to stdout to ask the terminal
// for its background color. `galley start --foreground` under a
// detached TTY (docker run -d -t, CI log capture) has a TTY on stdout
// but nothing interpreting it, so those sequences land verbatim in the
// captured logs.
//
// The fix runs before the probe exists: this package imports only "os",
// so the runtime initializes it ahead of bubbletea (dependency order
// first, then lexicographic path order, and "BakeLens" sorts before
// "charmbracelet"). When --foreground appears in os.Args, init() swaps
// TERM for "dumb"; termenv's termStatusReport() bails out on a dumb
// terminal without writing anything. OrigTERM keeps the real value so
// main can restore the color profile once bubbletea's init() is past.
package earlyinit

import "os"

// Foreground is true when --foreground was detected in os.Args.
var Foreground bool

// OrigTERM holds the TERM value from before init() replaced it with
// "dumb". main restores it after the charmbracelet inits have run.
var OrigTERM string

// HasForeground reports whether args contains a bare "--foreground"
// ahead of any "--" terminator. init() calls this with os.Args;
// exported so tests can feed crafted argument lists.
func HasForeground(args []string) bool {
	if len(args) < 2 {
		return false
	}
	for _, arg := range args[1:] {
		if arg == "--foreground" {
			return true
		}
		if arg == "--" {
			return false
		}
	}
	return false
}

func init() {
	Foreground = HasForeground(os.Args)
	if !Foreground {
		return
	}

	// termenv checks strings.HasPrefix(TERM, "dumb") and skips all
	// status-report queries, so "dumb" silences the probe entirely.
	// TERM is restored by main once the risky inits are done.
	OrigTERM = os.Getenv("TERM")
	os.Setenv("TERM", "dumb")
}
