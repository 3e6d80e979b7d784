package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var helpTitles = []string{"Navigation", "Feeding", "General"}

func (m Model) renderHelp() string {
	styles := m.theme.Styles()
	keyCol := styles.WarningText.Width(12)

	sections := []string{styles.Text.Bold(true).Render("Keys")}
	for i, group := range m.keys.FullHelp() {
		lines := []string{styles.AccentText.Bold(true).Render(helpTitles[i])}
		for _, b := range group {
			h := b.Help()
			lines = append(lines, keyCol.Render(h.Key)+styles.Text.Render(h.Desc))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Width(40).
		Render(strings.Join(sections, "\n\n"))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
