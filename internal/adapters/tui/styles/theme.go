package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	Primary   = lipgloss.Color("#7C3AED") // Purple
	Secondary = lipgloss.Color("#10B981") // Green
	Muted     = lipgloss.Color("#6B7280") // Gray
	Warning   = lipgloss.Color("#F59E0B") // Amber
	Error     = lipgloss.Color("#EF4444") // Red
	Info      = lipgloss.Color("#60A5FA") // Blue

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		MarginBottom(1)

	Subtitle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	// Plan entry styles
	OpCreate = lipgloss.NewStyle().
			Foreground(Secondary)

	OpUpdate = lipgloss.NewStyle().
			Foreground(Info)

	OpDelete = lipgloss.NewStyle().
			Foreground(Error)

	OpNoop = lipgloss.NewStyle().
		Foreground(Muted)

	Conflict = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	// Help bar styles
	HelpKey = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true)

	HelpDesc = lipgloss.NewStyle().
			Foreground(Muted)
)
