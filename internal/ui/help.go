package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// tagline is the one-line product description.
const tagline = "Run commands side by side, one labelled stream"

// GetHelpText returns the long help for the root command, used by
// `shunt --help`.
func GetHelpText() string {
	purple := lipgloss.NewStyle().Foreground(Purple).Bold(true)
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	return fmt.Sprintf(`%s

Starts every command of a JSON or YAML config file at once and prefixes each
line of their output with the command's name. Interrupting shunt stops all
commands; the exit code is the first failing command's.

%s
  commands:
    web: [npm, run, dev]
    api:
      argv: [go, run, ./cmd/api]
      workdir: backend
      tty: never          # auto (default), always or never
      env:
        PORT: "8080"
        DEBUG: ~          # unset

%s
  %s          Run every command
  %s     Show what would run
  %s   Stop all when one exits`,
		dim.Render(tagline+"."),
		purple.Render("Config:"),
		purple.Render("shunt shunt.yaml"),
		purple.Render("shunt list shunt.yaml"),
		purple.Render("shunt --on-exit cascade"),
	)
}
