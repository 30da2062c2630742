package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Style definitions.
var (
	// TitleStyle for headers.
	TitleStyle = lipgloss.NewStyle().Bold(true)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().Faint(true)

	// ErrorStyle for error messages.
	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

// FormatPnL formats a PnL value with an arrow showing the move since the previous status.
func FormatPnL(current, previous float64) string {
	pnl := fmt.Sprintf("%+.4f", current)

	switch {
	case current > previous:
		return pnl + " ▲"
	case current < previous:
		return pnl + " ▼"
	default:
		return pnl
	}
}
