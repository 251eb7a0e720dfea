package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	accentColor  = lipgloss.Color("#5FAFAF") // Teal accent
	subtleColor  = lipgloss.Color("#666666") // Gray for secondary text
	successColor = lipgloss.Color("#87AF87") // Muted sage for success
	errorColor   = lipgloss.Color("#AF5F5F") // Muted terracotta for errors

	// titleStyle for the header line
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	// subtleStyle for hints and secondary text
	subtleStyle = lipgloss.NewStyle().
			Foreground(subtleColor)

	// accentStyle for the live element of the view
	accentStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	// statusBarStyle for the bottom help bar
	statusBarStyle = lipgloss.NewStyle().
			Foreground(subtleColor)

	// boxStyle for the output panel border
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(subtleColor).
			Padding(0, 1)

	// successStyle for completion marks
	successStyle = lipgloss.NewStyle().
			Foreground(successColor)

	// errorStyle for failure marks
	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)
)

// statusBar renders the bottom help bar. Items are joined with a dot
// separator and the bar is padded to fill the width.
func statusBar(width int, items []string) string {
	if len(items) == 0 {
		return statusBarStyle.Width(width).Render("")
	}
	content := ""
	for i, item := range items {
		if i > 0 {
			content += " • "
		}
		content += item
	}
	return statusBarStyle.Width(width).Render(content)
}
