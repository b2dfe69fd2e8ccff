package tui

import (
	"context"
	"math"
	"os"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/term"
)

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func sized(t *testing.T) Model {
	t.Helper()
	m, _ := update(t, NewModel(), tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

func TestViewBeforeResize(t *testing.T) {
	assert.Equal(t, "Initializing...", NewModel().View())
}

func TestSnapshotRendering(t *testing.T) {
	m := sized(t)
	m, _ = update(t, m, MsgStateSnapshot(StateSnapshot{
		Title:          "alphacore",
		Mode:           "sample",
		StartTime:      time.Now(),
		Episodes:       50,
		TargetEpisodes: 100,
		Completed:      45,
		Penalties:      5,
		BestIC:         0.0312,
		Elites:         7,
		Last:           LastEpisode{Expr: "Mean($close,20d)", Reward: 0.0312, Outcome: "scored", At: time.Now()},
	}))

	view := m.View()
	assert.Contains(t, view, "alphacore")
	assert.Contains(t, view, "mode=sample")
	assert.Contains(t, view, "50/100")
	assert.Contains(t, view, "elites=7")
	assert.Contains(t, view, "0.0312 ↑")
	assert.Contains(t, view, "90.0%")
	assert.Contains(t, view, "Mean($close,20d)")
	assert.Equal(t, int64(50), m.Snapshot().Episodes)
}

func TestBestChangeArrows(t *testing.T) {
	m := sized(t)
	m, _ = update(t, m, MsgStateSnapshot(StateSnapshot{BestIC: 0.2}))
	m, _ = update(t, m, MsgStateSnapshot(StateSnapshot{BestIC: 0.2}))
	assert.Contains(t, m.bestChangeColor(0.2), "=")
	assert.Contains(t, m.bestChangeColor(0.1), "↓")
	assert.Contains(t, m.bestChangeColor(math.NaN()), "n/a")
}

func TestPauseFreezesSnapshot(t *testing.T) {
	m := sized(t)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	assert.Contains(t, m.View(), "(PAUSED)")

	m, _ = update(t, m, MsgStateSnapshot(StateSnapshot{Episodes: 9}))
	assert.Zero(t, m.Snapshot().Episodes)
}

func TestQuitAndShutdown(t *testing.T) {
	m := sized(t)
	_, cmd := update(t, m, MsgShutdown{})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.NotNil(t, cmd)
}

func TestEventLogIsBounded(t *testing.T) {
	m := sized(t)
	for i := 0; i < maxEvents+5; i++ {
		m, _ = update(t, m, MsgEvent(Event{Timestamp: time.Now(), Type: EventElite, Severity: SeverityInfo, Message: "x"}))
	}
	assert.Len(t, m.Events(), maxEvents)

	m, _ = update(t, m, MsgEvent(Event{Timestamp: time.Now(), Type: EventPenalty, Severity: SeverityWarning, Message: "length ceiling hit"}))
	assert.Contains(t, m.viewport.View(), "length ceiling hit")
}

func TestPushWithoutProgramIsNoop(t *testing.T) {
	assert.False(t, Running())
	PushState(StateSnapshot{})
	PushEvent(Event{})
	Stop()
}

func TestStartRefusesNonTerminal(t *testing.T) {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		t.Skip("stdout is a terminal")
	}
	err := Start(context.Background(), Config{Title: "x"})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, Running())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "5s", FormatDuration(5*time.Second))
	assert.Equal(t, "3h", FormatDuration(3*time.Hour))
}
