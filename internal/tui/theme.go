package tui

import "github.com/charmbracelet/lipgloss"

type theme struct {
	Border  lipgloss.Color
	Muted   lipgloss.Color
	Text    lipgloss.Color
	Primary lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}

var palette = theme{
	Border:  lipgloss.Color("#4D4C57"),
	Muted:   lipgloss.Color("#858392"),
	Text:    lipgloss.Color("#DFDBDD"),
	Primary: lipgloss.Color("#6B50FF"),
	Success: lipgloss.Color("#00FFB2"),
	Warning: lipgloss.Color("#FFD300"),
	Error:   lipgloss.Color("#E94090"),
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(palette.Primary)
	labelStyle = lipgloss.NewStyle().Foreground(palette.Muted)
	cardStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.Border).
			Padding(0, 1)
	gainStyle = lipgloss.NewStyle().Foreground(palette.Success)
	lossStyle = lipgloss.NewStyle().Foreground(palette.Error)
	errStyle  = lipgloss.NewStyle().Foreground(palette.Error)
)
