package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

// printRemediation writes remediation lines to w, highlighting the headline
// and the section labels when w is a terminal.
func printRemediation(w io.Writer, lines []string, headline lipgloss.Color) {
	renderer := lipgloss.NewRenderer(w)
	head := renderer.NewStyle().Bold(true).Foreground(headline)
	label := renderer.NewStyle().Bold(true)
	fmt.Fprintln(w)
	for i, line := range lines {
		switch {
		case i == 0:
			fmt.Fprintln(w, head.Render(line))
		case strings.HasSuffix(line, ":") && !strings.HasPrefix(line, " "):
			fmt.Fprintln(w, label.Render(line))
		default:
			fmt.Fprintln(w, line)
		}
	}
}

func printPassed(w io.Writer, message string) {
	renderer := lipgloss.NewRenderer(w)
	style := renderer.NewStyle().Foreground(lipgloss.Color("#5FD068"))
	fmt.Fprintln(w, style.Render(message))
}

const (
	colorBlocked  = lipgloss.Color("#FF6B6B")
	colorViolated = lipgloss.Color("#F5A623")
)
