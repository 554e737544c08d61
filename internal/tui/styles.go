package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Header style for titles and section headers
	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1)

	StyleLabel = lipgloss.NewStyle().
			Foreground(ColorText).
			Bold(true)

	StyleSuccess = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning)

	StyleMuted = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// Subtle style for hints and descriptions
	StyleSubtle = lipgloss.NewStyle().
			Foreground(ColorSubtle).
			Italic(true)

	StyleHighlight = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Bold(true)

	// Box style for bordered containers
	StyleBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSubtle).
			Padding(0, 2)
)

const logoASCII = `
__   _______  ______  ____  ___ ____   ____ _____
\ \ / / _ \ \/ / __ )|  _ \|_ _|  _ \ / ___| ____|
 \ V / | | \  /|  _ \| |_) || || | | | |  _|  _|
  | || |_| /  \| |_) |  _ < | || |_| | |_| | |___
  |_| \___/_/\_\____/|_| \_\___|____/ \____|_____|`

// Logo returns the voxbridge ASCII art
func Logo() string {
	return StyleHeader.Render(strings.Trim(logoASCII, "\n"))
}
