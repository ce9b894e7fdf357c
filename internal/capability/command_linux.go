//go:build linux

package capability

import (
	"os/exec"
	"syscall"
)

// configureProcessGroup starts the command in its own process group and
// kills the whole group on cancel, so children of a shell can't hold the
// output pipes open.
func configureProcessGroup(command *exec.Cmd) {
	command.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	command.Cancel = func() error {
		return syscall.Kill(-command.Process.Pid, syscall.SIGKILL)
	}
}
