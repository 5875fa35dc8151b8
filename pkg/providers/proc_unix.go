//go:build unix

package providers

import (
	"os/exec"
	"syscall"
)

// configureProcess starts the child in its own process group so a timeout
// kills everything it spawned, not just the direct child.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		// Negative pid targets the whole group.
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
