package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	styleHealthy  = lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E"))
	styleDegraded = lipgloss.NewStyle().Foreground(lipgloss.Color("#EAB308"))
	styleFailed   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	styleMuted    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	styleTitle    = lipgloss.NewStyle().Bold(true)
)

func styleFor(s ServiceStatus) lipgloss.Style {
	switch s {
	case StatusHealthy:
		return styleHealthy
	case StatusUnhealthy, StatusTimeout:
		return styleDegraded
	case StatusFailed:
		return styleFailed
	default:
		return styleMuted
	}
}

// Render formats the report as a small console table.
func Render(r *Report) string {
	var b strings.Builder

	overallStyle := styleHealthy
	if r.Overall != OverallReady {
		overallStyle = styleDegraded
	}
	b.WriteString(styleTitle.Render("overall: ") + overallStyle.Render(string(r.Overall)) + "\n")

	nameWidth := 0
	for _, s := range r.Services {
		if len(s.Name) > nameWidth {
			nameWidth = len(s.Name)
		}
	}

	for _, s := range r.Services {
		line := fmt.Sprintf("  %-*s  %s", nameWidth, s.Name, styleFor(s.Status).Render(string(s.Status)))
		if s.PID > 0 {
			line += styleMuted.Render(fmt.Sprintf("  pid=%d", s.PID))
		}
		if s.Detail != "" {
			line += styleMuted.Render("  " + s.Detail)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}
