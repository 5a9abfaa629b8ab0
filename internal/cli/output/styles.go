// Package output renders CLI diagnostics, styled when writing to a terminal.
package output

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles holds the lipgloss styles used by the CLI.
type Styles struct {
	Error   lipgloss.Style
	Warning lipgloss.Style
	Success lipgloss.Style
	Muted   lipgloss.Style
	Bold    lipgloss.Style
	Header  lipgloss.Style
}

// NewStyles creates styles bound to r so that color support follows r's
// output profile.
func NewStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		Error:   r.NewStyle().Foreground(lipgloss.Color("9")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("11")),
		Success: r.NewStyle().Foreground(lipgloss.Color("10")),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
		Bold:    r.NewStyle().Bold(true),
		Header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
	}
}
