package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	styleGreen  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleYellow = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	styleRed    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleGray   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	stylePanel = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)

	styleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Padding(0, 1)

	styleEventInfo  = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	styleEventWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	styleEventError = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderProgress(),
		lipgloss.JoinHorizontal(lipgloss.Top, m.renderStats(), m.renderOutcomes()),
		m.renderLast(),
		m.renderEvents(),
		m.renderFooter(),
	)
}

func (m Model) renderHeader() string {
	return styleHeader.Render(fmt.Sprintf(
		"%s │ mode=%s │ runtime=%s",
		m.snapshot.Title,
		m.snapshot.Mode,
		FormatDuration(time.Since(m.snapshot.StartTime)),
	))
}

func (m Model) renderProgress() string {
	s := m.snapshot
	if s.TargetEpisodes <= 0 {
		return stylePanel.Render(fmt.Sprintf("Episodes: %d │ %.0f/s", s.Episodes, s.RatePerSec))
	}
	frac := math.Min(float64(s.Episodes)/float64(s.TargetEpisodes), 1)
	return stylePanel.Render(fmt.Sprintf("%s %d/%d │ %.0f/s",
		m.progress.ViewAs(frac), s.Episodes, s.TargetEpisodes, s.RatePerSec))
}

func (m Model) renderStats() string {
	return stylePanel.Width(44).Render(fmt.Sprintf(
		"Pool: elites=%d │ best=%s",
		m.snapshot.Elites,
		m.bestChangeColor(m.snapshot.BestIC),
	))
}

func (m Model) renderOutcomes() string {
	s := m.snapshot
	total := s.Episodes
	if total == 0 {
		total = 1
	}
	return stylePanel.Width(60).Render(fmt.Sprintf(
		"Complete: %s │ penalty=%d │ nan=%d │ failed=%d",
		completionColor(100*float64(s.Completed)/float64(total)),
		s.Penalties, s.Undefined, s.ScoreFailed,
	))
}

func (m Model) renderLast() string {
	l := m.snapshot.Last
	if l.At.IsZero() || time.Since(l.At) > 5*time.Second {
		return stylePanel.Render("Last: " + styleDim.Render("(idle)"))
	}
	return stylePanel.Render(fmt.Sprintf("Last: %s │ reward=%s │ %s",
		outcomeColor(l.Outcome), icColor(l.Reward), l.Expr))
}

func (m Model) renderEvents() string {
	if m.width == 0 {
		return stylePanel.Render("Events: initializing...")
	}
	return stylePanel.Render("Events (scroll):") + "\n" + m.viewport.View()
}

func (m Model) renderFooter() string {
	hints := []string{"q: quit", "p: pause"}
	if m.paused {
		hints = append(hints, "(PAUSED)")
	}
	for i, h := range hints {
		hints[i] = styleDim.Render(h)
	}
	return styleGray.Render("│ " + strings.Join(hints, " │ ") + " │")
}

func (m Model) bestChangeColor(ic float64) string {
	switch {
	case math.IsNaN(ic):
		return styleDim.Render("n/a")
	case math.IsNaN(m.prevBest) || ic > m.prevBest:
		return styleGreen.Render(fmt.Sprintf("%.4f ↑", ic))
	case ic < m.prevBest:
		return styleRed.Render(fmt.Sprintf("%.4f ↓", ic))
	}
	return styleDim.Render(fmt.Sprintf("%.4f =", ic))
}

func icColor(v float64) string {
	switch {
	case math.IsNaN(v):
		return styleDim.Render("nan")
	case v > 0:
		return styleGreen.Render(fmt.Sprintf("%.4f", v))
	case v < 0:
		return styleRed.Render(fmt.Sprintf("%.4f", v))
	}
	return fmt.Sprintf("%.4f", v)
}

func outcomeColor(o string) string {
	switch o {
	case "scored":
		return styleGreen.Render(o)
	case "penalty", "score_failed":
		return styleRed.Render(o)
	}
	return styleYellow.Render(o)
}

func completionColor(pct float64) string {
	if pct >= 90 {
		return styleGreen.Render(fmt.Sprintf("%.1f%%", pct))
	}
	if pct >= 50 {
		return styleYellow.Render(fmt.Sprintf("%.1f%%", pct))
	}
	return styleRed.Render(fmt.Sprintf("%.1f%%", pct))
}

// FormatDuration renders 23s, 45m or 1h23m.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if minutes > 0 {
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
	return fmt.Sprintf("%dh", hours)
}
