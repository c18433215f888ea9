package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Colors
var (
	colorPrimary   = lipgloss.Color("#7C3AED")
	colorSecondary = lipgloss.Color("#10B981")
	colorAccent    = lipgloss.Color("#F59E0B")
	colorError     = lipgloss.Color("#EF4444")
	colorMuted     = lipgloss.Color("#6B7280")
	colorBg        = lipgloss.Color("#1F2937")
	colorFg        = lipgloss.Color("#F9FAFB")
	colorBackdrop  = lipgloss.Color("#374151")
)

// Layout. Mouse hit testing depends on every keypad cell being exactly
// buttonWidth columns wide with buttonGap columns between cells.
const (
	buttonWidth = 6
	buttonGap   = 1
	modalWidth  = 52
)

// Styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	// DisplayStyle draws the calculator screen. Its width matches the widest
	// keypad row.
	DisplayStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Foreground(colorFg).
			Align(lipgloss.Right).
			Width(keypadWidth() - 2)

	ButtonStyle = lipgloss.NewStyle().
			Width(buttonWidth).
			Align(lipgloss.Center).
			Foreground(colorFg).
			Background(colorBg)

	OperatorButtonStyle = ButtonStyle.
				Foreground(colorAccent)

	SelectedButtonStyle = ButtonStyle.
				Bold(true).
				Foreground(colorFg).
				Background(colorPrimary)

	// Concept input styles
	InputLabelStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	FocusedInputLabelStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	// Modal styles
	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(1, 2).
			Width(modalWidth)

	ModalTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorSecondary)

	ModalErrorStyle = lipgloss.NewStyle().
			Foreground(colorError)

	CloseButtonStyle = lipgloss.NewStyle().
				Foreground(colorMuted)

	HelpStyle = lipgloss.NewStyle().
			Foreground(colorMuted)
)

// keypadWidth is the width of the widest keypad row.
func keypadWidth() int {
	n := 0
	for _, row := range keypad {
		n = max(n, len(row))
	}
	return n*buttonWidth + (n-1)*buttonGap
}
