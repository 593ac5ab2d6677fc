package style

import "github.com/charmbracelet/lipgloss"

var palette = DefaultPalette()

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(palette.Primary).
			Bold(true).
			Padding(0, 1)

	MutedStyle = lipgloss.NewStyle().
			Foreground(palette.TextMuted)

	LabelStyle = lipgloss.NewStyle().
			Foreground(palette.TextSecondary)

	ValueStyle = lipgloss.NewStyle().
			Foreground(palette.Text).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(palette.Warning).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(palette.Loss).
			Bold(true)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.TextMuted).
			Padding(0, 1)

	ActivePanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(palette.Primary).
				Padding(0, 1)
)
