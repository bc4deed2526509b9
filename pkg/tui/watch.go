// Package tui renders a live-updating dashboard over the orchestrator's
// status snapshots for `voicectl status --watch`.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dukyai/voicectl/pkg/health"
	"github.com/dukyai/voicectl/pkg/orchestrator"
	"github.com/dukyai/voicectl/pkg/proc"
	"github.com/pkg/errors"
)

const refreshEvery = 2 * time.Second

var (
	styleTitle   = lipgloss.NewStyle().Bold(true)
	styleUp      = lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E"))
	styleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EAB308"))
	styleDown    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	styleMuted   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	styleKeybind = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
)

type tickMsg time.Time

type snapshotMsg []orchestrator.ServiceSnapshot

type watchModel struct {
	ctx     context.Context
	orch    *orchestrator.Orchestrator
	tracker *proc.CPUTracker

	spin  spinner.Model
	snaps []orchestrator.ServiceSnapshot
	ready bool
	width int
}

func newWatchModel(ctx context.Context, o *orchestrator.Orchestrator) watchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styleMuted
	return watchModel{
		ctx:     ctx,
		orch:    o,
		tracker: proc.NewCPUTracker(),
		spin:    sp,
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.refresh(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m watchModel) refresh() tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(m.orch.Snapshot(m.ctx, true, m.tracker))
	}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case tea.KeyMsg:
		switch v.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			return m, m.refresh()
		}
	case tea.WindowSizeMsg:
		m.width = v.Width
		return m, nil
	case tickMsg:
		return m, tea.Batch(m.refresh(), tick())
	case snapshotMsg:
		m.snaps = v
		m.ready = true
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(v)
		return m, cmd
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder
	b.WriteString(styleTitle.Render("voicectl") + " " + m.spin.View() + "\n\n")

	if !m.ready {
		b.WriteString(styleMuted.Render("  gathering status…") + "\n")
	} else {
		nameWidth := 7
		for _, s := range m.snaps {
			if len(s.Name) > nameWidth {
				nameWidth = len(s.Name)
			}
		}
		for _, s := range m.snaps {
			b.WriteString(fmt.Sprintf("  %-*s  %s\n", nameWidth, s.Name, renderState(s)))
		}
	}

	b.WriteString("\n" + styleKeybind.Render("r refresh · q quit") + "\n")
	return b.String()
}

func renderState(s orchestrator.ServiceSnapshot) string {
	if !s.Alive {
		return styleDown.Render("down")
	}

	var label string
	switch s.Health {
	case health.StatusHealthy:
		label = styleUp.Render("healthy")
	case health.StatusUnhealthy:
		label = styleWarn.Render("unhealthy")
	case health.StatusTimeout:
		label = styleWarn.Render("unreachable")
	default:
		label = styleUp.Render("up")
	}

	detail := fmt.Sprintf("  pid=%d", s.PIDs[0])
	if s.Stats != nil {
		detail += fmt.Sprintf(" cpu=%.1f%% mem=%dMB", s.Stats.CPUPercent, s.Stats.MemoryMB)
	}
	return label + styleMuted.Render(detail)
}

// RunWatch drives the dashboard until the user quits or ctx is cancelled.
func RunWatch(ctx context.Context, o *orchestrator.Orchestrator) error {
	p := tea.NewProgram(newWatchModel(ctx, o), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return errors.Wrap(err, "run watch dashboard")
	}
	return nil
}
