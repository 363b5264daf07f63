// Package ui renders shunt's terminal output.
//
// The Writer is the only thing that touches the multiplexed stdout stream.
// The rest of the package holds the styles it uses and the plain message
// helpers for subcommands that do not supervise anything.
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Brand colors.
var (
	Purple  = lipgloss.Color("#9D61FF")
	Red     = lipgloss.Color("#EF4444")
	Amber   = lipgloss.Color("#F59E0B")
	Green   = lipgloss.Color("#22C55E")
	DimGray = lipgloss.Color("#9CA3AF")
)

// LabelPalette is the cycle of prefix colors, in launch order. The ANSI
// indexes keep the user's terminal theme in charge of the exact shade.
var LabelPalette = []lipgloss.Color{
	lipgloss.Color("2"), // green
	lipgloss.Color("1"), // red
	lipgloss.Color("6"), // cyan
	lipgloss.Color("5"), // magenta
	lipgloss.Color("3"), // yellow
}

// Text styles.
var (
	// TitleStyle for main headings
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Purple)

	// SuccessStyle for success messages
	SuccessStyle = lipgloss.NewStyle().
			Foreground(Green).
			Bold(true)

	// ErrorStyle for error messages
	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red).
			Bold(true)

	// WarningStyle for warning messages
	WarningStyle = lipgloss.NewStyle().
			Foreground(Amber)

	// InfoStyle for informational messages
	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E5E7EB"))

	// DimStyle for less important text
	DimStyle = lipgloss.NewStyle().
			Foreground(DimGray)
)

// Table styles.
var (
	// TableHeaderStyle for table headers
	TableHeaderStyle = lipgloss.NewStyle().
				Foreground(DimGray).
				Bold(true)

	// TableCellStyle for table cells
	TableCellStyle = lipgloss.NewStyle()
)

// categoryStyle maps a status category to its style.
func categoryStyle(category string) lipgloss.Style {
	switch category {
	case "info":
		return InfoStyle
	case "success":
		return SuccessStyle
	case "error":
		return ErrorStyle
	case "warning":
		return WarningStyle
	default:
		return DimStyle
	}
}
