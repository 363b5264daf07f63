//go:build windows

package launch

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"
)

// setProcGroup configures the command to run in its own process group.
// On Windows, CREATE_NEW_PROCESS_GROUP is the equivalent of Unix Setpgid.
func setProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// signalGroup terminates a process and its children on Windows. There is no
// graceful signal, so every request kills the tree with taskkill /T.
func signalGroup(p *os.Process, sig syscall.Signal) error {
	cmd := exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(p.Pid))
	if err := cmd.Run(); err != nil {
		if killErr := p.Kill(); killErr == nil || errors.Is(killErr, os.ErrProcessDone) {
			return nil
		}
		return fmt.Errorf("taskkill failed for pid %d: %w", p.Pid, err)
	}
	return nil
}

func (l *Launcher) startPTY(h *Handle) error {
	return errors.New("pseudo-terminals are not supported on windows")
}

func exitFromState(ps *os.ProcessState) Exit {
	return Exit{Code: ps.ExitCode()}
}

// SignalName returns the conventional name of sig, such as SIGTERM.
func SignalName(sig syscall.Signal) string {
	return sig.String()
}
