//go:build !windows

package launch

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// setProcGroup configures the command to run in its own process group.
func setProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// signalGroup sends a signal to the entire process group led by p.
func signalGroup(p *os.Process, sig syscall.Signal) error {
	err := unix.Kill(-p.Pid, sig)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}

// startPTY starts the child as a session leader whose controlling terminal is
// the slave side of a new pseudo-terminal. stdin, stdout and stderr all refer
// to the slave; the parent keeps only the master.
func (l *Launcher) startPTY(h *Handle) error {
	master, slave, err := pty.Open()
	if err != nil {
		return err
	}

	rows, cols := l.size()
	if err := pty.Setsize(master, &pty.Winsize{Rows: rows, Cols: cols}); err != nil {
		master.Close()
		slave.Close()
		return err
	}

	h.cmd.Stdin = slave
	h.cmd.Stdout = slave
	h.cmd.Stderr = slave
	h.cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true, Setctty: true, Ctty: 0}

	err = h.cmd.Start()
	slave.Close()
	if err != nil {
		master.Close()
		return err
	}

	h.streams = []Stream{{Name: StreamPTY, ReadCloser: &ptyReader{master}}}
	return nil
}

// ptyReader reports EIO from the master as end-of-file. Linux returns EIO
// once every slave descriptor is closed, which is how a finished child looks.
type ptyReader struct {
	*os.File
}

func (r *ptyReader) Read(p []byte) (int, error) {
	n, err := r.File.Read(p)
	if err != nil && errors.Is(err, unix.EIO) {
		return n, io.EOF
	}
	return n, err
}

func exitFromState(ps *os.ProcessState) Exit {
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return Exit{Code: -1, Signal: ws.Signal()}
	}
	return Exit{Code: ps.ExitCode()}
}

// SignalName returns the conventional name of sig, such as SIGTERM.
func SignalName(sig syscall.Signal) string {
	if name := unix.SignalName(sig); name != "" {
		return name
	}
	return sig.String()
}
