package terminal

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var styleCell = lipgloss.NewStyle().Padding(0, 1)

// Table renders rows under headers with a rounded border. highlight marks
// rows (by index) to draw in the danger color.
func Table(headers []string, rows [][]string, highlight func(row int) bool) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorMuted)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return styleCell.Bold(true).Foreground(colorAccent)
			case highlight != nil && highlight(row):
				return styleCell.Foreground(colorDanger)
			}
			return styleCell
		})
	return t.String()
}
