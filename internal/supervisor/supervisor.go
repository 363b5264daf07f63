// Package supervisor runs a set of commands concurrently and merges their
// output.
//
// A Supervisor launches every command, starts one reader per output stream
// and one waiter per child, and collects exactly one Outcome per command.
// Termination requests go to each child's whole process group: first the
// requested signal, then SIGKILL for anything still alive after the grace
// period.
package supervisor

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/revyl/shunt/internal/launch"
	"github.com/revyl/shunt/internal/mux"
	"github.com/revyl/shunt/internal/resolve"
	"github.com/revyl/shunt/internal/status"
)

// DefaultGracePeriod is how long children get to exit after a termination
// request before they are killed.
const DefaultGracePeriod = 5 * time.Second

// Output receives child lines and supervisor status lines. Both must be safe
// for concurrent use and write each line atomically.
type Output interface {
	mux.Sink
	Status(command, category, msg string) error
}

// Launcher starts one command.
type Launcher interface {
	Launch(resolve.Command) (*launch.Handle, error)
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithPolicy sets the shutdown policy. The default is PolicyContinue.
func WithPolicy(p Policy) Option {
	return func(s *Supervisor) {
		s.policy = p
	}
}

// WithGracePeriod sets how long children get between the termination signal
// and SIGKILL.
func WithGracePeriod(d time.Duration) Option {
	return func(s *Supervisor) {
		s.grace = d
	}
}

// WithLogger sets the logger for lifecycle messages. The default is the
// charmbracelet/log default logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Supervisor) {
		s.logger = l
	}
}

// child is the supervisor's record of one command.
type child struct {
	cmd     resolve.Command
	index   int
	handle  *launch.Handle
	state   status.ChildState
	started time.Time

	// done is closed once the child reaches StateExited.
	done chan struct{}
}

// Supervisor runs commands. A Supervisor is used for a single RunAll call.
type Supervisor struct {
	out      Output
	launcher Launcher
	policy   Policy
	grace    time.Duration
	logger   *log.Logger
	runID    string

	mu         sync.Mutex
	children   []*child
	outcomes   []Outcome
	stopping   bool
	interrupts int

	stopped   chan struct{}
	force     chan struct{}
	forceOnce sync.Once
}

// New creates a Supervisor that writes to out and starts children with
// launcher.
//
// Parameters:
//   - out: Destination for child lines and status lines
//   - launcher: Starts each command
//   - opts: Policy, grace period and logger options
//
// Returns:
//   - *Supervisor: A supervisor with a fresh run id
func New(out Output, launcher Launcher, opts ...Option) *Supervisor {
	s := &Supervisor{
		out:      out,
		launcher: launcher,
		policy:   PolicyContinue,
		grace:    DefaultGracePeriod,
		logger:   log.Default(),
		runID:    uuid.NewString(),
		stopped:  make(chan struct{}),
		force:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("run", s.runID)
	return s
}

// RunID returns the identifier attached to this run's log lines and report.
func (s *Supervisor) RunID() string { return s.runID }

// RunAll launches every command and blocks until each one has exited and its
// output has been fully written.
//
// A command that fails to launch does not stop the others. Cancelling ctx
// behaves like Interrupt. If writing output fails, every child is stopped and
// the write error is returned alongside the outcomes.
//
// Parameters:
//   - ctx: Cancelling it stops all children
//   - cmds: The commands, in launch order
//
// Returns:
//   - *Result: One outcome per command, in launch order
//   - error: The output write error, if any
func (s *Supervisor) RunAll(ctx context.Context, cmds []resolve.Command) (*Result, error) {
	g, gctx := errgroup.WithContext(ctx)

	s.mu.Lock()
	s.outcomes = make([]Outcome, len(cmds))
	s.mu.Unlock()

	s.logger.Debug("starting commands", "count", len(cmds), "policy", s.policy)
	for i, cmd := range cmds {
		s.start(g, i, cmd)
	}

	waitDone := make(chan error, 1)
	go func() { waitDone <- g.Wait() }()

	var err error
	select {
	case err = <-waitDone:
	case <-gctx.Done():
		if cause := context.Cause(gctx); cause != nil && !errors.Is(cause, context.Canceled) {
			s.logger.Error("output failed, stopping commands", "error", cause)
		}
		s.shutdown(syscall.SIGTERM)
		err = <-waitDone
	}

	s.mu.Lock()
	result := &Result{RunID: s.runID, Outcomes: append([]Outcome(nil), s.outcomes...)}
	s.mu.Unlock()

	s.logger.Debug("all commands finished", "exit_code", result.ExitCode())
	return result, err
}

// start launches one command and schedules its readers and waiter on g.
// Launching holds s.mu so that a concurrent shutdown either sees the child
// as running or prevents it from starting.
func (s *Supervisor) start(g *errgroup.Group, index int, cmd resolve.Command) {
	c := &child{
		cmd:     cmd,
		index:   index,
		state:   status.StateStarting,
		started: time.Now(),
		done:    make(chan struct{}),
	}

	s.mu.Lock()
	s.children = append(s.children, c)
	if s.stopping {
		s.mu.Unlock()
		g.Go(func() error {
			return s.finish(c, Outcome{Code: -1, Err: ErrNotStarted})
		})
		return
	}

	h, err := s.launcher.Launch(cmd)
	if err != nil {
		s.mu.Unlock()
		s.logger.Debug("command failed to start", "command", cmd.Name, "error", err)
		g.Go(func() error {
			return s.finish(c, Outcome{Code: -1, Err: err})
		})
		return
	}
	c.handle = h
	s.setStateLocked(c, status.StateRunning)
	s.mu.Unlock()

	s.logger.Debug("command started", "command", cmd.Name, "pid", h.Pid(), "tty", h.TTY(), "dir", cmd.Dir)

	m := mux.New(cmd.Name, s.out)
	streams := h.Streams()

	var readers sync.WaitGroup
	readers.Add(len(streams))
	for _, st := range streams {
		g.Go(func() error {
			defer readers.Done()
			defer st.Close()

			err := m.Drain(st.Name, st)
			var readErr *mux.ReadError
			if errors.As(err, &readErr) {
				s.logger.Debug("stream ended unexpectedly", "command", cmd.Name, "stream", st.Name, "error", readErr.Err)
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		exit, err := h.Wait()
		if err != nil {
			s.logger.Warn("failed to wait for command", "command", cmd.Name, "pid", h.Pid(), "error", err)
		}

		s.mu.Lock()
		s.setStateLocked(c, status.StateDraining)
		s.mu.Unlock()

		readers.Wait()
		return s.finish(c, Outcome{Pid: h.Pid(), Code: exit.Code, Signal: exit.Signal})
	})
}

// finish records a child's outcome, marks it exited, writes its status line
// and applies the shutdown policy.
func (s *Supervisor) finish(c *child, o Outcome) error {
	o.Command = c.cmd.Name
	o.Duration = time.Since(c.started)

	s.mu.Lock()
	s.outcomes[c.index] = o
	s.setStateLocked(c, status.StateExited)
	stopping := s.stopping
	s.mu.Unlock()
	close(c.done)

	code := o.ExitCode()
	s.logger.Debug("command exited", "command", o.Command, "exit_code", code, "duration", o.Duration)

	category := status.ExitCategory(o.Code, o.Signal != 0, o.Err != nil)
	if err := s.out.Status(o.Command, category, o.Message()); err != nil {
		return err
	}

	if !stopping && s.policy.triggers(o) {
		s.logger.Info("stopping remaining commands", "command", o.Command, "exit_code", code, "policy", s.policy)
		go s.shutdown(syscall.SIGTERM)
	}
	return nil
}

// setStateLocked moves c to state to if the transition is legal. s.mu must
// be held.
func (s *Supervisor) setStateLocked(c *child, to status.ChildState) {
	if !status.CanTransition(c.state, to) {
		s.logger.Debug("ignoring invalid state change", "command", c.cmd.Name, "from", c.state, "to", to)
		return
	}
	c.state = to
}

// Interrupt asks every running child to stop with SIGTERM. See InterruptWith.
func (s *Supervisor) Interrupt() {
	s.InterruptWith(syscall.SIGTERM)
}

// InterruptWith delivers sig to every child that is running or draining,
// waits up to the grace period for them to exit and then kills whatever is
// left with SIGKILL. It returns once that sequence is complete. Children that
// already exited are not touched, and commands not yet launched are never
// started.
//
// A second call skips the rest of the grace period and kills immediately.
func (s *Supervisor) InterruptWith(sig syscall.Signal) {
	s.mu.Lock()
	s.interrupts++
	again := s.interrupts > 1
	s.mu.Unlock()

	if again {
		s.logger.Warn("interrupted again, killing commands")
		s.forceOnce.Do(func() { close(s.force) })
		return
	}
	s.shutdown(sig)
}

// shutdown runs the stop sequence once. Later callers wait for the first
// sequence to finish.
func (s *Supervisor) shutdown(sig syscall.Signal) {
	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		<-s.stopped
		return
	}
	s.stopping = true

	var active []*child
	for _, c := range s.children {
		if status.IsActive(string(c.state)) {
			active = append(active, c)
		}
	}
	s.mu.Unlock()
	defer close(s.stopped)

	if len(active) == 0 {
		return
	}

	s.logger.Info("stopping commands", "count", len(active), "signal", launch.SignalName(sig), "grace", s.grace)
	for _, c := range active {
		if err := c.handle.Signal(sig); err != nil {
			s.logger.Warn("failed to signal command", "command", c.cmd.Name, "pid", c.handle.Pid(), "error", err)
		}
	}

	timer := time.NewTimer(s.grace)
	defer timer.Stop()

wait:
	for _, c := range active {
		select {
		case <-c.done:
		case <-timer.C:
			break wait
		case <-s.force:
			break wait
		}
	}

	for _, c := range active {
		select {
		case <-c.done:
			continue
		default:
		}
		s.logger.Warn("command did not exit after signal, sending SIGKILL", "command", c.cmd.Name, "pid", c.handle.Pid())
		if err := c.handle.Signal(syscall.SIGKILL); err != nil {
			s.logger.Warn("failed to kill command", "command", c.cmd.Name, "pid", c.handle.Pid(), "error", err)
		}
	}
}
