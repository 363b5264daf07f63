// Package shunt provides a public API for running a shunt configuration.
//
// This package wires the config loader, the launcher, the terminal writer and
// the supervisor together so that other programs can embed shunt without
// going through the command line.
//
// Example usage:
//
//	runner, err := shunt.NewRunner(shunt.WithConfigFile("shunt.yaml"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := runner.Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.Exit(result.ExitCode())
package shunt

import (
	"context"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"

	"github.com/revyl/shunt/internal/config"
	"github.com/revyl/shunt/internal/launch"
	"github.com/revyl/shunt/internal/resolve"
	"github.com/revyl/shunt/internal/supervisor"
	"github.com/revyl/shunt/internal/ui"
)

// Result is the outcome of a run, one entry per command in launch order.
type Result = supervisor.Result

// Runner runs one configuration once.
type Runner struct {
	config   *config.Config
	out      io.Writer
	environ  []string
	outerTTY *bool
	color    *bool
	policy   supervisor.Policy
	grace    time.Duration
	logger   *log.Logger

	commands []resolve.Command
	writer   *ui.Writer
	sup      *supervisor.Supervisor
}

// Option configures a Runner.
type Option func(*Runner) error

// WithConfigFile loads the configuration from path.
func WithConfigFile(path string) Option {
	return func(r *Runner) error {
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		r.config = cfg
		return nil
	}
}

// WithConfig sets the configuration directly.
func WithConfig(cfg *config.Config) Option {
	return func(r *Runner) error {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		r.config = cfg
		return nil
	}
}

// WithOutput sets where prefixed output goes. The default is os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) error {
		r.out = w
		return nil
	}
}

// WithEnviron sets the environment every command inherits. The default is
// os.Environ().
func WithEnviron(env []string) Option {
	return func(r *Runner) error {
		r.environ = env
		return nil
	}
}

// WithTTY overrides whether the output counts as a terminal for the auto
// tty policy.
func WithTTY(outerTTY bool) Option {
	return func(r *Runner) error {
		r.outerTTY = &outerTTY
		return nil
	}
}

// WithColor turns prefix and status colors on or off. The default follows
// the terminal detection.
func WithColor(color bool) Option {
	return func(r *Runner) error {
		r.color = &color
		return nil
	}
}

// WithPolicy sets the shutdown policy by name: continue, cascade or
// cascade-on-failure.
func WithPolicy(name string) Option {
	return func(r *Runner) error {
		p, err := supervisor.ParsePolicy(name)
		if err != nil {
			return err
		}
		r.policy = p
		return nil
	}
}

// WithGracePeriod sets how long commands get to exit after an interrupt
// before they are killed.
func WithGracePeriod(d time.Duration) Option {
	return func(r *Runner) error {
		if d < 0 {
			return fmt.Errorf("grace period cannot be negative: %s", d)
		}
		r.grace = d
		return nil
	}
}

// WithLogger sets the logger for lifecycle messages.
func WithLogger(l *log.Logger) Option {
	return func(r *Runner) error {
		r.logger = l
		return nil
	}
}

// NewRunner creates a Runner. A configuration must be given through
// WithConfigFile or WithConfig.
//
// Parameters:
//   - opts: Configuration options
//
// Returns:
//   - *Runner: A runner ready to Run
//   - error: Any error from loading the configuration or applying options
func NewRunner(opts ...Option) (*Runner, error) {
	r := &Runner{
		out:    os.Stdout,
		policy: supervisor.PolicyContinue,
		grace:  supervisor.DefaultGracePeriod,
		logger: log.Default(),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	if r.config == nil {
		return nil, fmt.Errorf("no configuration provided")
	}
	if r.environ == nil {
		r.environ = os.Environ()
	}

	outerTTY := StdoutIsTerminal()
	if r.outerTTY != nil {
		outerTTY = *r.outerTTY
	}
	color := outerTTY
	if r.color != nil {
		color = *r.color
	}

	r.commands = resolve.All(r.config, r.environ)
	r.writer = ui.NewWriter(r.out, ui.NewLabels(r.config.Names(), color), color)
	r.sup = supervisor.New(r.writer, launch.NewLauncher(outerTTY),
		supervisor.WithPolicy(r.policy),
		supervisor.WithGracePeriod(r.grace),
		supervisor.WithLogger(r.logger),
	)
	return r, nil
}

// Commands returns the resolved commands in launch order.
func (r *Runner) Commands() []resolve.Command {
	return r.commands
}

// RunID returns the identifier of this run.
func (r *Runner) RunID() string {
	return r.sup.RunID()
}

// Run starts every command and blocks until all have exited.
//
// Parameters:
//   - ctx: Cancelling it stops all commands
//
// Returns:
//   - *Result: One outcome per command
//   - error: A write error on the output, if any
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	return r.sup.RunAll(ctx, r.commands)
}

// Interrupt forwards sig to every running command, then kills survivors
// after the grace period. Calling it again kills immediately.
func (r *Runner) Interrupt(sig syscall.Signal) {
	r.sup.InterruptWith(sig)
}

// StdoutIsTerminal reports whether os.Stdout is an interactive terminal.
func StdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
