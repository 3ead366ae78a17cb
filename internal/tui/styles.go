// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

// Package tui holds the lipgloss styles shared by the command line output and
// the interactive server picker.
package tui

import "github.com/charmbracelet/lipgloss"

// colorPalette defines the core colors.
const (
	colorSubtle    = lipgloss.Color("240") // Muted gray
	colorHighlight = lipgloss.Color("81")  // Teal/cyan
	colorSpecial   = lipgloss.Color("208") // Orange for special attention
	colorSuccess   = lipgloss.Color("40")  // Green
)

var (
	// HelpStyle renders hints and secondary text.
	HelpStyle = lipgloss.NewStyle().Foreground(colorSubtle)
	// SuccessStyle renders completed actions.
	SuccessStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	// WarnStyle renders warnings and destructive prompts.
	WarnStyle = lipgloss.NewStyle().Foreground(colorSpecial)
	// TitleStyle renders headings.
	TitleStyle = lipgloss.NewStyle().Foreground(colorHighlight).Bold(true)
	// AccentStyle highlights names inside sentences.
	AccentStyle = lipgloss.NewStyle().Foreground(colorHighlight)

	itemStyle         = lipgloss.NewStyle()
	selectedItemStyle = lipgloss.NewStyle().Foreground(colorHighlight)
	paneStyle         = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorSubtle).Padding(0, 1)
	footerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
)
