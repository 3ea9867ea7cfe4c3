package tui

import "github.com/charmbracelet/lipgloss"

// Tokyo Night palette.
var (
	colorFg      = lipgloss.Color("#c0caf5")
	colorMuted   = lipgloss.Color("#565f89")
	colorBlue    = lipgloss.Color("#7aa2f7")
	colorCyan    = lipgloss.Color("#7dcfff")
	colorGreen   = lipgloss.Color("#9ece6a")
	colorYellow  = lipgloss.Color("#e0af68")
	colorRed     = lipgloss.Color("#f7768e")
	colorMagenta = lipgloss.Color("#bb9af7")
	colorBorder  = lipgloss.Color("#3b4261")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	activePanelStyle = panelStyle.
				BorderForeground(colorBlue)

	tabStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(0, 2)

	activeTabStyle = lipgloss.NewStyle().
			Foreground(colorCyan).
			Bold(true).
			Padding(0, 2)

	statusStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	pendingStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	doneStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	userMsgStyle = lipgloss.NewStyle().
			Foreground(colorCyan).
			Bold(true)

	botMsgStyle = lipgloss.NewStyle().
			Foreground(colorFg)

	statValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorMagenta)

	statLabelStyle = lipgloss.NewStyle().
			Foreground(colorMuted)
)

func priorityStyle(p string) lipgloss.Style {
	switch p {
	case "High":
		return lipgloss.NewStyle().Foreground(colorRed)
	case "Medium":
		return lipgloss.NewStyle().Foreground(colorYellow)
	}
	return lipgloss.NewStyle().Foreground(colorGreen)
}
