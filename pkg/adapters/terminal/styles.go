// Package terminal implements the notifier and dialog ports for the CLI, and
// renders the dashboard view model as markdown.
package terminal

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.AdaptiveColor{Light: "#3B5BDB", Dark: "#91A7FF"}
	colorDanger = lipgloss.AdaptiveColor{Light: "#C92A2A", Dark: "#FF8787"}
	colorOK     = lipgloss.AdaptiveColor{Light: "#2B8A3E", Dark: "#8CE99A"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#868E96", Dark: "#868E96"}
)

var (
	styleTitle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	styleDanger   = lipgloss.NewStyle().Bold(true).Foreground(colorDanger)
	styleMuted    = lipgloss.NewStyle().Foreground(colorMuted)
	styleToastOK  = lipgloss.NewStyle().Foreground(colorOK)
	styleToastErr = lipgloss.NewStyle().Foreground(colorDanger)

	styleButton       = lipgloss.NewStyle().Padding(0, 1)
	styleButtonActive = styleButton.Bold(true).Reverse(true)

	styleBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorAccent).
		Padding(0, 1)
)

// Status marks for per-link output.
var (
	MarkOK   = styleToastOK.Render("✓")
	MarkDown = styleToastErr.Render("✗")
)
