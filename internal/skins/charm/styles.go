package charm

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.Color("205")
	subtle = lipgloss.Color("241")

	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(subtle).
			Padding(1, 3)

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(accent).
			Padding(0, 2)
	tabStyle = lipgloss.NewStyle().
			Foreground(subtle).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(subtle).
			Padding(0, 2)

	labelStyle        = lipgloss.NewStyle().Width(10)
	focusedLabelStyle = labelStyle.Foreground(accent)

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 3)
	disabledButtonStyle = buttonStyle.
				Foreground(lipgloss.Color("245")).
				Background(lipgloss.Color("237"))

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	mutedStyle = lipgloss.NewStyle().Foreground(subtle)
	helpStyle  = lipgloss.NewStyle().Foreground(subtle).Italic(true)

	toastBase = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
	warningToastStyle = toastBase.BorderForeground(lipgloss.Color("214")).Foreground(lipgloss.Color("214"))
	successToastStyle = toastBase.BorderForeground(lipgloss.Color("42")).Foreground(lipgloss.Color("42"))
	errorToastStyle   = toastBase.BorderForeground(lipgloss.Color("196")).Foreground(lipgloss.Color("196"))
)
