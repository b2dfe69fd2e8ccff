// Package tui is the Bubble Tea dashboard for sampling runs.
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

const maxEvents = 1000

// StateSnapshot is the whole run state at one instant.
type StateSnapshot struct {
	Title     string
	Mode      string
	StartTime time.Time

	Episodes       int64
	TargetEpisodes int64 // 0 = unbounded
	RatePerSec     float64

	Completed   int64 // ended on a complete expression
	Penalties   int64
	Undefined   int64
	ScoreFailed int64

	BestIC float64
	Elites int

	Last LastEpisode
}

// LastEpisode is the most recent finished episode.
type LastEpisode struct {
	Expr    string
	Reward  float64
	Outcome string
	At      time.Time
}

// Event types and severities.
const (
	EventElite       = "ELITE"
	EventBest        = "BEST"
	EventScoreFailed = "SCORE"
	EventPenalty     = "PENALTY"

	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Event is one line in the scrolling event log.
type Event struct {
	Timestamp time.Time
	Type      string
	Severity  string
	Message   string
}

type (
	MsgStateSnapshot StateSnapshot
	MsgEvent         Event
	MsgShutdown      struct{}
	MsgTick          time.Time
)

type Model struct {
	snapshot StateSnapshot
	events   []Event
	paused   bool

	width  int
	height int
	ready  bool

	progress progress.Model
	viewport viewport.Model

	prevBest float64
}

func NewModel() Model {
	return Model{
		snapshot: StateSnapshot{StartTime: time.Now(), BestIC: math.NaN()},
		events:   make([]Event, 0, 64),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		viewport: viewport.New(0, 10),
		prevBest: math.NaN(),
	}
}

func tick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return MsgTick(t)
	})
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m2, keyCmd := m.handleKey(msg)
		m = m2.(Model)
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, tea.Batch(cmd, keyCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.viewport.Width = max(m.width-4, 10)
		m.viewport.Height = 10
		m.progress.Width = min(max(m.width-20, 10), 60)
		return m, nil

	case MsgStateSnapshot:
		if m.paused {
			return m, nil
		}
		m.prevBest = m.snapshot.BestIC
		m.snapshot = StateSnapshot(msg)
		return m, nil

	case MsgEvent:
		m.addEvent(Event(msg))
		m.updateViewportContent()
		m.viewport.GotoBottom()
		return m, nil

	case MsgTick:
		return m, tick()

	case MsgShutdown:
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "p":
		m.paused = !m.paused
	}
	return m, nil
}

func (m *Model) addEvent(e Event) {
	m.events = append(m.events, e)
	if len(m.events) > maxEvents {
		m.events = m.events[len(m.events)-maxEvents:]
	}
}

// updateViewportContent rebuilds the event log. Called on MsgEvent only.
func (m *Model) updateViewportContent() {
	lines := make([]string, 0, len(m.events))
	for _, e := range m.events {
		style := styleEventInfo
		icon := "•"
		switch {
		case e.Severity == SeverityError:
			style, icon = styleEventError, "✗"
		case e.Severity == SeverityWarning:
			style, icon = styleEventWarn, "⚠"
		case e.Type == EventElite:
			icon = "✓"
		case e.Type == EventBest:
			icon = "↗"
		}
		lines = append(lines, style.Render(
			fmt.Sprintf("[%s] %s %s", e.Timestamp.Format("15:04:05"), icon, e.Message),
		))
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
}

// Snapshot returns the state last received.
func (m Model) Snapshot() StateSnapshot { return m.snapshot }

// Events returns the retained event log.
func (m Model) Events() []Event { return m.events }
