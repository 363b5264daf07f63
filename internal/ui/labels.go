package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Labels holds the display prefix of every command. All prefixes share the
// width of the longest name so that output columns line up.
type Labels struct {
	prefixes map[string]string
	width    int
}

// NewLabels builds prefixes of the form "[name] " for names, padded to the
// widest name. With color on, each bracketed name gets the next color of
// LabelPalette in the order given.
//
// Parameters:
//   - names: Command names in launch order
//   - color: Whether to render prefixes with color
//
// Returns:
//   - *Labels: The prefix table
func NewLabels(names []string, color bool) *Labels {
	width := 0
	for _, name := range names {
		width = max(width, lipgloss.Width(name))
	}

	l := &Labels{prefixes: make(map[string]string, len(names)), width: width}
	for i, name := range names {
		tag := "[" + name + "]"
		if color {
			tag = lipgloss.NewStyle().
				Foreground(LabelPalette[i%len(LabelPalette)]).
				Render(tag)
		}
		l.prefixes[name] = tag + l.padding(name) + " "
	}
	return l
}

// Prefix returns the prefix for name. Unknown names get an uncolored prefix
// padded like the others.
func (l *Labels) Prefix(name string) string {
	if p, ok := l.prefixes[name]; ok {
		return p
	}
	return "[" + name + "]" + l.padding(name) + " "
}

func (l *Labels) padding(name string) string {
	return strings.Repeat(" ", max(0, l.width-lipgloss.Width(name)))
}
