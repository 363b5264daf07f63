// Package launch starts child processes on a pseudo-terminal or on pipes.
//
// A Launcher turns a resolved command into a running Handle. The handle owns
// the process and its output streams; callers drain every stream to
// end-of-file, call Wait exactly once per child, and signal the child's whole
// process group through Signal.
package launch

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"golang.org/x/term"

	"github.com/revyl/shunt/internal/resolve"
)

// Stream names.
const (
	StreamPTY    = "pty"
	StreamStdout = "stdout"
	StreamStderr = "stderr"
)

// Default pseudo-terminal size when the outer terminal's size is unknown.
const (
	DefaultRows = 24
	DefaultCols = 80
)

var (
	// ErrNotFound means the executable could not be found.
	ErrNotFound = errors.New("command not found")

	// ErrPermission means the executable could not be run.
	ErrPermission = errors.New("permission denied")

	// ErrInvalidWorkdir means the working directory is missing or not a directory.
	ErrInvalidWorkdir = resolve.ErrInvalidWorkdir

	// ErrSpawn covers every other start failure.
	ErrSpawn = errors.New("failed to start")
)

// Error is a launch failure for one command. Reason is one of the sentinel
// errors above and is matched with errors.Is.
type Error struct {
	Command string
	Reason  error
	Err     error
}

func (e *Error) Error() string {
	if errors.Is(e.Err, e.Reason) {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v: %v", e.Reason, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Reason, e.Err}
}

// Stream is one output stream of a child.
type Stream struct {
	Name string
	io.ReadCloser
}

// Exit describes how a child ended. Signal is zero unless the child was
// terminated by a signal, in which case Code is -1.
type Exit struct {
	Code   int
	Signal syscall.Signal
}

// Signaled reports whether the child was terminated by a signal.
func (e Exit) Signaled() bool {
	return e.Signal != 0
}

func (e Exit) String() string {
	if e.Signaled() {
		return "terminated by signal " + SignalName(e.Signal)
	}
	return fmt.Sprintf("exited with code %d", e.Code)
}

// Launcher starts commands. Its zero value launches with pipes for the auto
// policy and an 80x24 pseudo-terminal for the always policy.
type Launcher struct {
	// OuterTTY reports whether shunt's own stdout is a terminal. It decides
	// the auto policy.
	OuterTTY bool

	// Rows and Cols size every pseudo-terminal. Zero means the default.
	Rows, Cols uint16
}

// NewLauncher creates a launcher. When outerTTY is set, pseudo-terminals copy
// the size of the terminal on stdout.
func NewLauncher(outerTTY bool) *Launcher {
	l := &Launcher{OuterTTY: outerTTY, Rows: DefaultRows, Cols: DefaultCols}
	if outerTTY {
		if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 && h > 0 {
			l.Rows, l.Cols = uint16(h), uint16(w)
		}
	}
	return l
}

// Launch starts one command.
//
// The working directory is checked first so that a missing directory is
// reported as ErrInvalidWorkdir instead of a confusing exec error. The
// executable is looked up on the parent's PATH.
//
// Parameters:
//   - cmd: The resolved command to start
//
// Returns:
//   - *Handle: The running child
//   - error: A *Error describing why the child could not be started
func (l *Launcher) Launch(cmd resolve.Command) (*Handle, error) {
	if err := resolve.CheckWorkdir(cmd.Dir); err != nil {
		return nil, &Error{Command: cmd.Name, Reason: ErrInvalidWorkdir, Err: err}
	}

	c := exec.Command(cmd.Argv[0], cmd.Argv[1:]...)
	c.Dir = cmd.Dir
	c.Env = cmd.Env

	h := &Handle{name: cmd.Name, cmd: c, tty: cmd.TTY.Attach(l.OuterTTY)}

	var err error
	if h.tty {
		err = l.startPTY(h)
	} else {
		err = startPipes(h)
	}
	if err != nil {
		return nil, &Error{Command: cmd.Name, Reason: classify(err), Err: err}
	}
	return h, nil
}

func (l *Launcher) size() (rows, cols uint16) {
	rows, cols = l.Rows, l.Cols
	if rows == 0 {
		rows = DefaultRows
	}
	if cols == 0 {
		cols = DefaultCols
	}
	return rows, cols
}

// startPipes starts the child with separate stdout and stderr pipes and the
// null device on stdin. The read ends are plain files so that Wait never
// closes them under a reader.
func startPipes(h *Handle) error {
	outR, outW, err := os.Pipe()
	if err != nil {
		return err
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return err
	}

	h.cmd.Stdin = nil
	h.cmd.Stdout = outW
	h.cmd.Stderr = errW
	setProcGroup(h.cmd)

	err = h.cmd.Start()
	outW.Close()
	errW.Close()
	if err != nil {
		outR.Close()
		errR.Close()
		return err
	}

	h.streams = []Stream{
		{Name: StreamStdout, ReadCloser: outR},
		{Name: StreamStderr, ReadCloser: errR},
	}
	return nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	case errors.Is(err, fs.ErrPermission):
		return ErrPermission
	default:
		return ErrSpawn
	}
}

// Handle is a running child.
type Handle struct {
	name    string
	cmd     *exec.Cmd
	tty     bool
	streams []Stream

	waitOnce sync.Once
	exit     Exit
	waitErr  error
}

// Name returns the command name.
func (h *Handle) Name() string { return h.name }

// TTY reports whether the child runs on a pseudo-terminal.
func (h *Handle) TTY() bool { return h.tty }

// Pid returns the child's process id, which is also its process group id.
func (h *Handle) Pid() int { return h.cmd.Process.Pid }

// Streams returns the child's output streams: one combined stream on a
// pseudo-terminal, stdout and stderr otherwise. Each stream must be read to
// end-of-file and closed by exactly one reader.
func (h *Handle) Streams() []Stream { return h.streams }

// Wait blocks until the child exits and reports how it ended. It is safe to
// call more than once; later calls return the first result.
func (h *Handle) Wait() (Exit, error) {
	h.waitOnce.Do(func() {
		err := h.cmd.Wait()
		if h.cmd.ProcessState == nil {
			h.exit = Exit{Code: -1}
			h.waitErr = err
			return
		}
		h.exit = exitFromState(h.cmd.ProcessState)

		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			h.waitErr = err
		}
	})
	return h.exit, h.waitErr
}

// Signal delivers sig to the child's process group. A group that no longer
// exists is not an error.
func (h *Handle) Signal(sig syscall.Signal) error {
	return signalGroup(h.cmd.Process, sig)
}
