// Package status provides the lifecycle states of a supervised child and
// helpers for deciding transitions and how a state or exit is displayed.
//
// A child moves Starting → Running → Draining → Exited, or straight from
// Starting to Exited when it cannot be launched. Running ends when the OS
// reports the process gone; Draining ends when every output stream has been
// read to end-of-file.
package status

import "strings"

// ChildState represents the lifecycle state of one supervised child.
type ChildState string

const (
	// StateStarting indicates the child is being launched.
	StateStarting ChildState = "starting"

	// StateRunning indicates the process is alive.
	StateRunning ChildState = "running"

	// StateDraining indicates the process has exited but output is still being read.
	StateDraining ChildState = "draining"

	// StateExited indicates the child is finished and its outcome is recorded.
	StateExited ChildState = "exited"
)

// transitions lists the legal next states of every state.
var transitions = map[ChildState][]ChildState{
	StateStarting: {StateRunning, StateExited},
	StateRunning:  {StateDraining},
	StateDraining: {StateExited},
}

// activeStates contains the states in which a child can still receive signals.
var activeStates = map[string]bool{
	string(StateRunning):  true,
	string(StateDraining): true,
}

// IsTerminal checks if a state string indicates the child is finished.
//
// Parameters:
//   - state: The state string to check (case-insensitive)
//
// Returns:
//   - bool: True only for exited
func IsTerminal(state string) bool {
	return strings.EqualFold(state, string(StateExited))
}

// IsActive checks if a state string indicates a child that termination
// requests should reach.
//
// Parameters:
//   - state: The state string to check (case-insensitive)
//
// Returns:
//   - bool: True for running and draining
func IsActive(state string) bool {
	return activeStates[strings.ToLower(state)]
}

// CanTransition reports whether a child may move from one state to another.
func CanTransition(from, to ChildState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ExitCategory returns the display category of a finished child, matching
// StatusCategory's names.
//
// Categories:
//   - "success": exited with code 0
//   - "warning": terminated by a signal
//   - "error": non-zero exit or launch failure
func ExitCategory(code int, signaled, launchFailed bool) string {
	switch {
	case launchFailed:
		return "error"
	case signaled:
		return "warning"
	case code == 0:
		return "success"
	default:
		return "error"
	}
}

// StatusIcon returns the appropriate icon for a state or exit category.
//
// Icons:
//   - starting: ⏳ (hourglass)
//   - running/draining: ▶ (play)
//   - success: ✓ (checkmark)
//   - error: ✗ (x mark)
//   - warning: ⊘ (circle with slash)
//   - exited/unknown: ● (bullet)
func StatusIcon(state string) string {
	switch strings.ToLower(state) {
	case string(StateStarting):
		return "⏳"
	case string(StateRunning), string(StateDraining):
		return "▶"
	case "success":
		return "✓"
	case "error":
		return "✗"
	case "warning":
		return "⊘"
	default:
		return "●"
	}
}

// StatusCategory returns the category of a state for styling purposes.
// Exit categories map to themselves.
//
// Categories:
//   - "dim": starting, exited, unknown
//   - "info": running, draining
//   - "success", "error", "warning": unchanged
func StatusCategory(state string) string {
	switch s := strings.ToLower(state); s {
	case string(StateRunning), string(StateDraining):
		return "info"
	case "success", "error", "warning":
		return s
	default:
		return "dim"
	}
}
