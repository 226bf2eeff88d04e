package ui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	Primary   = lipgloss.Color("63")  // Purple/blue
	Secondary = lipgloss.Color("86")  // Cyan
	Accent    = lipgloss.Color("205") // Pink
	Success   = lipgloss.Color("78")  // Green
	Warning   = lipgloss.Color("214") // Orange
	Error     = lipgloss.Color("196") // Red
	Subtle    = lipgloss.Color("241") // Gray
	Text      = lipgloss.Color("252") // Light gray
	TextDim   = lipgloss.Color("245") // Dimmer text

	// Stage headings
	StageStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	SkippedStyle = lipgloss.NewStyle().
			Foreground(Subtle).
			Italic(true)

	// Command mirror
	ArrowStyle   = lipgloss.NewStyle().Foreground(Secondary)
	CommandStyle = lipgloss.NewStyle().Foreground(Text)

	// Error report
	ErrorTextStyle = lipgloss.NewStyle().Foreground(Error)
	HintStyle      = lipgloss.NewStyle().Foreground(Warning)

	// General
	BoldStyle   = lipgloss.NewStyle().Bold(true)
	DimStyle    = lipgloss.NewStyle().Foreground(TextDim)
	AccentStyle = lipgloss.NewStyle().Foreground(Accent)
)
