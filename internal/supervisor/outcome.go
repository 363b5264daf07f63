package supervisor

import (
	"errors"
	"syscall"
	"time"

	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/revyl/shunt/internal/launch"
)

// ErrNotStarted marks a command that was never launched because shutdown had
// already begun.
var ErrNotStarted = errors.New("not started: shutting down")

// Exit codes for commands that never ran.
const (
	ExitNotFound   = 127
	ExitPermission = 126
	ExitStartError = 125
)

// Outcome is how one command ended.
type Outcome struct {
	Command string

	// Pid is zero when the command never started.
	Pid int

	// Code is the exit code, or -1 when the command was killed by a signal
	// or never started.
	Code int

	// Signal is the terminating signal, or zero.
	Signal syscall.Signal

	// Err is a launch error or ErrNotStarted.
	Err error

	// Duration runs from launch until output was fully drained.
	Duration time.Duration
}

// ExitCode maps the outcome to a process exit code: the child's own code,
// 128 plus the signal number for signal deaths, and 127, 126 or 125 for
// commands that could not be started.
func (o Outcome) ExitCode() int {
	switch {
	case o.Err != nil:
		switch {
		case errors.Is(o.Err, launch.ErrNotFound):
			return ExitNotFound
		case errors.Is(o.Err, launch.ErrPermission):
			return ExitPermission
		default:
			return ExitStartError
		}
	case o.Signal != 0:
		return 128 + int(o.Signal)
	case o.Code < 0:
		return ExitStartError
	default:
		return o.Code
	}
}

// Message is the status line text for the outcome.
func (o Outcome) Message() string {
	switch {
	case errors.Is(o.Err, ErrNotStarted):
		return o.Err.Error()
	case o.Err != nil:
		return "failed to start: " + o.Err.Error()
	default:
		return launch.Exit{Code: o.Code, Signal: o.Signal}.String()
	}
}

// Result holds one outcome per command, in launch order.
type Result struct {
	RunID    string
	Outcomes []Outcome
}

// ExitCode is 0 when every command exited 0, and otherwise the exit code of
// the first command in launch order that did not.
func (r *Result) ExitCode() int {
	for _, o := range r.Outcomes {
		if code := o.ExitCode(); code != 0 {
			return code
		}
	}
	return 0
}

// Get returns the outcome of the named command.
func (r *Result) Get(name string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Command == name {
			return o, true
		}
	}
	return Outcome{}, false
}

// ByName returns the outcomes keyed by command name.
func (r *Result) ByName() map[string]Outcome {
	m := make(map[string]Outcome, len(r.Outcomes))
	for _, o := range r.Outcomes {
		m[o.Command] = o
	}
	return m
}

// Report renders the result as indented JSON:
//
//	{
//	  "run_id": "...",
//	  "exit_code": 1,
//	  "commands": [
//	    {"name": "web", "pid": 4242, "exit_code": 0, "duration_ms": 1200}
//	  ]
//	}
//
// Commands killed by a signal carry "signal", commands that never started
// carry "error" and no "pid".
func (r *Result) Report() ([]byte, error) {
	doc := []byte(`{}`)
	var err error

	if doc, err = sjson.SetBytes(doc, "run_id", r.RunID); err != nil {
		return nil, err
	}
	if doc, err = sjson.SetBytes(doc, "exit_code", r.ExitCode()); err != nil {
		return nil, err
	}
	if doc, err = sjson.SetRawBytes(doc, "commands", []byte(`[]`)); err != nil {
		return nil, err
	}

	for _, o := range r.Outcomes {
		entry, err := reportEntry(o)
		if err != nil {
			return nil, err
		}
		if doc, err = sjson.SetRawBytes(doc, "commands.-1", entry); err != nil {
			return nil, err
		}
	}

	return pretty.Pretty(doc), nil
}

func reportEntry(o Outcome) ([]byte, error) {
	fields := []struct {
		path  string
		value any
		skip  bool
	}{
		{"name", o.Command, false},
		{"pid", o.Pid, o.Pid == 0},
		{"exit_code", o.ExitCode(), false},
		{"signal", launch.SignalName(o.Signal), o.Signal == 0},
		{"error", errString(o.Err), o.Err == nil},
		{"duration_ms", o.Duration.Milliseconds(), false},
	}

	entry := []byte(`{}`)
	for _, f := range fields {
		if f.skip {
			continue
		}
		var err error
		if entry, err = sjson.SetBytes(entry, f.path, f.value); err != nil {
			return nil, err
		}
	}
	return entry, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
