package resolve

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/revyl/shunt/internal/config"
)

// ErrInvalidWorkdir reports a working directory that does not exist or is not
// a directory.
var ErrInvalidWorkdir = errors.New("invalid working directory")

// Command is a command ready to launch. It is built once and never modified.
type Command struct {
	Name string
	Argv []string

	// Dir is the absolute working directory.
	Dir string

	// Env is the complete child environment as "NAME=value" entries.
	Env []string

	TTY config.TTYPolicy
}

// Workdir resolves a declared working directory against the configuration
// directory. An absolute path is only cleaned, a relative one is joined to
// configDir, and an empty one is configDir itself.
func Workdir(declared, configDir string) string {
	switch {
	case declared == "":
		return filepath.Clean(configDir)
	case filepath.IsAbs(declared):
		return filepath.Clean(declared)
	default:
		return filepath.Join(configDir, declared)
	}
}

// CheckWorkdir verifies that dir exists and is a directory. The returned error
// wraps ErrInvalidWorkdir.
func CheckWorkdir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidWorkdir, dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidWorkdir, dir)
	}
	return nil
}

// Resolve builds the launch-ready form of one command. The working directory
// is not checked here; that happens when the command is launched.
func Resolve(spec config.CommandSpec, configDir string, inherited []string) Command {
	tty := spec.TTY
	if tty == "" {
		tty = config.TTYAuto
	}
	return Command{
		Name: spec.Name,
		Argv: append([]string(nil), spec.Argv...),
		Dir:  Workdir(spec.Workdir, configDir),
		Env:  Compose(inherited, spec.Env),
		TTY:  tty,
	}
}

// All resolves every command of cfg in document order.
func All(cfg *config.Config, inherited []string) []Command {
	cmds := make([]Command, len(cfg.Commands))
	for i, spec := range cfg.Commands {
		cmds[i] = Resolve(spec, cfg.Dir, inherited)
	}
	return cmds
}
