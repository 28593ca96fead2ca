package cli

import "github.com/charmbracelet/lipgloss"

var (
	primary  = lipgloss.Color("#7D56F4")
	received = lipgloss.Color("#00B3B3")
	errorCol = lipgloss.Color("#FF5F5F")
	muted    = lipgloss.Color("#888888")

	promptStyle = lipgloss.NewStyle().
			Foreground(primary).
			Bold(true)

	sentStyle = lipgloss.NewStyle().
			Foreground(primary).
			PaddingLeft(24)

	receivedStyle = lipgloss.NewStyle().
			Foreground(received)

	timestampStyle = lipgloss.NewStyle().
			Foreground(muted)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorCol)

	infoStyle = lipgloss.NewStyle().
			Foreground(muted)
)
