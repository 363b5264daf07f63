package supervisor

import (
	"fmt"
	"strings"
)

// Policy decides what happens to the remaining commands when one exits.
type Policy string

const (
	// PolicyContinue lets the remaining commands keep running.
	PolicyContinue Policy = "continue"

	// PolicyCascade stops every command as soon as any one exits.
	PolicyCascade Policy = "cascade"

	// PolicyCascadeOnFailure stops every command when one fails to start,
	// exits non-zero or is killed by a signal.
	PolicyCascadeOnFailure Policy = "cascade-on-failure"
)

// ParsePolicy converts a flag value into a Policy. The empty string maps to
// PolicyContinue.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyContinue:
		return PolicyContinue, nil
	case PolicyCascade:
		return PolicyCascade, nil
	case PolicyCascadeOnFailure:
		return PolicyCascadeOnFailure, nil
	default:
		return "", fmt.Errorf("unknown exit policy %q (want continue, cascade or cascade-on-failure)", s)
	}
}

// triggers reports whether outcome o should stop the other commands.
func (p Policy) triggers(o Outcome) bool {
	switch p {
	case PolicyCascade:
		return true
	case PolicyCascadeOnFailure:
		return o.ExitCode() != 0
	default:
		return false
	}
}
