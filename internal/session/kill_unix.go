//go:build !windows

package session

import (
	"os"
	"os/exec"
	"syscall"
	"time"
)

// setProcAttr places the child in its own process group so negative-PID
// signals reach whatever the shell spawns.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// gracefulKill escalates termination: SIGTERM to the process and its
// group immediately, SIGKILL to both after the grace period. Every
// failure is swallowed; a target that is already gone is the goal state,
// not an error.
func gracefulKill(proc *os.Process) {
	if proc == nil {
		return
	}
	pid := proc.Pid

	_ = proc.Signal(syscall.SIGTERM)
	_ = syscall.Kill(-pid, syscall.SIGTERM)

	time.AfterFunc(KillGracePeriod, func() {
		_ = proc.Kill()
		_ = syscall.Kill(-pid, syscall.SIGKILL)
	})
}
