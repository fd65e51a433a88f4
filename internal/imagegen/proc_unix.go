//go:build !windows

package imagegen

import (
	"os/exec"
	"syscall"
)

// configureProcess starts the tool in its own process group so that a kill
// on timeout also reaches anything python spawned.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
