package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/lattice-warden/internal/audit"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)
	summaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	paneStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
	focusedPaneStyle = paneStyle.BorderForeground(lipgloss.Color("#5B8DEF"))
	mutedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	checkPassStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD068"))
	checkFailStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
)

// StatusStyle colors a status label.
func StatusStyle(status audit.Status) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch status {
	case audit.StatusSuccess:
		return base.Foreground(lipgloss.Color("#5FD068"))
	case audit.StatusViolation:
		return base.Foreground(lipgloss.Color("#F5A623"))
	case audit.StatusBlocked:
		return base.Foreground(lipgloss.Color("#FF6B6B"))
	}
	return base
}

// SeverityStyle colors a violation severity.
func SeverityStyle(severity audit.Severity) lipgloss.Style {
	switch severity {
	case audit.SeverityCritical:
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	case audit.SeverityHigh:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#F5A623"))
	}
	return mutedStyle
}
