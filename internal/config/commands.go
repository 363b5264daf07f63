// Package config provides the command configuration consumed by the supervisor.
//
// A configuration file names a set of commands. Each command is either a bare
// argv list or an object carrying argv, workdir, tty and env. Files are
// normalized into an ordered []CommandSpec before anything is launched, so the
// rest of the program never looks at raw JSON or YAML again.
package config

import (
	"fmt"
	"strings"
)

// TTYPolicy controls whether a command is attached to a pseudo-terminal.
type TTYPolicy string

const (
	// TTYAuto attaches a pseudo-terminal only when shunt's own stdout is a terminal.
	TTYAuto TTYPolicy = "auto"

	// TTYAlways attaches a pseudo-terminal unconditionally.
	TTYAlways TTYPolicy = "always"

	// TTYNever always uses plain pipes.
	TTYNever TTYPolicy = "never"
)

// ParseTTYPolicy converts a config value into a TTYPolicy.
// The empty string maps to TTYAuto.
//
// Parameters:
//   - s: The raw value from the config file
//
// Returns:
//   - TTYPolicy: The parsed policy
//   - error: An error naming the accepted values if s is unknown
func ParseTTYPolicy(s string) (TTYPolicy, error) {
	switch TTYPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", TTYAuto:
		return TTYAuto, nil
	case TTYAlways:
		return TTYAlways, nil
	case TTYNever:
		return TTYNever, nil
	default:
		return "", fmt.Errorf("unknown tty policy %q (want auto, always or never)", s)
	}
}

// Attach reports whether a pseudo-terminal should be allocated given whether
// the supervisor's own stdout is a terminal.
func (p TTYPolicy) Attach(outerTTY bool) bool {
	switch p {
	case TTYAlways:
		return true
	case TTYNever:
		return false
	default:
		return outerTTY
	}
}

// EnvVar is one entry of a command's environment patch.
type EnvVar struct {
	// Name is the variable name.
	Name string

	// Value replaces any inherited value. Ignored when Unset is true.
	Value string

	// Unset removes the variable from the inherited environment.
	Unset bool
}

// CommandSpec is one command as written in the configuration file.
type CommandSpec struct {
	// Name is the unique key of the command and its display label.
	Name string

	// Argv is the argument list; Argv[0] is the executable.
	Argv []string

	// Workdir is the declared working directory, relative or absolute.
	// Empty means the configuration file's directory.
	Workdir string

	// Env is the environment patch, applied in order.
	Env []EnvVar

	// TTY is the pseudo-terminal policy.
	TTY TTYPolicy
}

// Validate checks the invariants of a single command.
func (c *CommandSpec) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("command name cannot be empty")
	}
	if len(c.Argv) == 0 {
		return fmt.Errorf("command %q: argv cannot be empty", c.Name)
	}
	if c.Argv[0] == "" {
		return fmt.Errorf("command %q: executable (argv[0]) cannot be empty", c.Name)
	}
	if _, err := ParseTTYPolicy(string(c.TTY)); err != nil {
		return fmt.Errorf("command %q: %w", c.Name, err)
	}
	for _, v := range c.Env {
		if v.Name == "" {
			return fmt.Errorf("command %q: environment variable name cannot be empty", c.Name)
		}
		if strings.ContainsAny(v.Name, "=\x00") {
			return fmt.Errorf("command %q: invalid environment variable name %q", c.Name, v.Name)
		}
	}
	return nil
}

// Config is a loaded configuration file.
type Config struct {
	// Path is the absolute, symlink-free path of the file.
	Path string

	// Dir is the directory containing the file. Relative workdirs and
	// commands without a workdir resolve against it.
	Dir string

	// Commands are the commands in document order.
	Commands []CommandSpec
}

// Validate checks every command and the uniqueness of command names.
func (c *Config) Validate() error {
	if len(c.Commands) == 0 {
		return fmt.Errorf("no commands defined")
	}
	seen := make(map[string]bool, len(c.Commands))
	for i := range c.Commands {
		cmd := &c.Commands[i]
		if err := cmd.Validate(); err != nil {
			return err
		}
		if seen[cmd.Name] {
			return fmt.Errorf("duplicate command %q", cmd.Name)
		}
		seen[cmd.Name] = true
	}
	return nil
}

// Names returns the command names in document order.
func (c *Config) Names() []string {
	names := make([]string, len(c.Commands))
	for i, cmd := range c.Commands {
		names[i] = cmd.Name
	}
	return names
}
