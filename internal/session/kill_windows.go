//go:build windows

package session

import (
	"os"
	"os/exec"
)

func setProcAttr(cmd *exec.Cmd) {}

// gracefulKill degrades on Windows: no process groups, no SIGTERM, so
// the direct child is killed outright. Children it spawned are not
// reached; see the package notes on per-OS termination.
func gracefulKill(proc *os.Process) {
	if proc == nil {
		return
	}
	_ = proc.Kill()
}
