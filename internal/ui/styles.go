// Package ui holds the terminal styling shared by the CLI commands.
package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	// Colors
	accentColor  = lipgloss.Color("#84cc16") // Lime, the first palette colour
	mutedColor   = lipgloss.Color("241")     // Gray
	successColor = lipgloss.Color("42")      // Green
	warningColor = lipgloss.Color("214")     // Orange
	errorColor   = lipgloss.Color("196")     // Red

	// Status colors
	todoColor       = lipgloss.Color("241") // Gray
	inProgressColor = lipgloss.Color("39")  // Cyan
	doneColor       = lipgloss.Color("42")  // Green
	archivedColor   = lipgloss.Color("238") // Dark gray

	// Styles
	accentStyle = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	mutedStyle  = lipgloss.NewStyle().Foreground(mutedColor)
	passStyle   = lipgloss.NewStyle().Foreground(successColor)
	warnStyle   = lipgloss.NewStyle().Foreground(warningColor)
	failStyle   = lipgloss.NewStyle().Foreground(errorColor)

	normalStyle = lipgloss.NewStyle()

	statusStyles = map[string]lipgloss.Style{
		"todo":        lipgloss.NewStyle().Foreground(todoColor),
		"in-progress": lipgloss.NewStyle().Foreground(inProgressColor),
		"done":        lipgloss.NewStyle().Foreground(doneColor),
		"archived":    lipgloss.NewStyle().Foreground(archivedColor),
	}

	priorityStyles = map[string]lipgloss.Style{
		"low":    lipgloss.NewStyle().Foreground(mutedColor),
		"medium": lipgloss.NewStyle(),
		"high":   lipgloss.NewStyle().Bold(true).Foreground(errorColor),
	}
)

// enabled is false when stdout is not a colour-capable terminal.
var enabled = termenv.ColorProfile() != termenv.Ascii

// SetEnabled overrides colour detection. Tests and the --no-color flag
// use it.
func SetEnabled(on bool) {
	enabled = on
}

// Enabled reports whether styled output is active.
func Enabled() bool {
	return enabled
}

func render(style lipgloss.Style, s string) string {
	if !enabled {
		return s
	}
	return style.Render(s)
}

// StatusStyle returns the style for a given task status
func StatusStyle(status string) lipgloss.Style {
	if style, ok := statusStyles[status]; ok {
		return style
	}
	return normalStyle
}

// PriorityStyle returns the style for a given task priority
func PriorityStyle(priority string) lipgloss.Style {
	if style, ok := priorityStyles[priority]; ok {
		return style
	}
	return normalStyle
}

// Status renders a bracketed status badge, like "[in-progress]".
func Status(status string) string {
	return render(StatusStyle(status), "["+status+"]")
}

// Priority renders a parenthesised priority marker, like "(high)".
func Priority(priority string) string {
	return render(PriorityStyle(priority), "("+priority+")")
}

// Swatch renders a coloured dot for a project's hex colour.
func Swatch(hex string) string {
	if hex == "" {
		return render(mutedStyle, "●")
	}
	return render(lipgloss.NewStyle().Foreground(lipgloss.Color(hex)), "●")
}

// Accent renders emphasised text, used for titles and ids.
func Accent(s string) string {
	return render(accentStyle, s)
}

// Dim renders de-emphasised text.
func Dim(s string) string {
	return render(mutedStyle, s)
}

// Pass renders success text.
func Pass(s string) string {
	return render(passStyle, s)
}

// Warn renders warning text.
func Warn(s string) string {
	return render(warnStyle, s)
}

// Fail renders error text.
func Fail(s string) string {
	return render(failStyle, s)
}
