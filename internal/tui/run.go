package tui

import (
	"context"
	"errors"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// ErrUnavailable is returned by Start when the terminal cannot host the TUI.
var ErrUnavailable = errors.New("tui: unavailable")

type Config struct {
	Title          string
	Mode           string
	TargetEpisodes int64
}

var (
	mu      sync.RWMutex
	program *tea.Program
	done    chan struct{}
)

// Start runs the TUI in the background until ctx is canceled, Stop is
// called or the user quits. It refuses non-terminals and TERM=dumb.
func Start(ctx context.Context, cfg Config) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.Join(ErrUnavailable, errors.New("stdout is not a terminal"))
	}
	if os.Getenv("TERM") == "dumb" {
		return errors.Join(ErrUnavailable, errors.New("TERM=dumb"))
	}

	m := NewModel()
	m.snapshot.Title = cfg.Title
	m.snapshot.Mode = cfg.Mode
	m.snapshot.TargetEpisodes = cfg.TargetEpisodes

	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	finished := make(chan struct{})

	mu.Lock()
	program = p
	done = finished
	mu.Unlock()

	go func() {
		defer close(finished)
		_, _ = p.Run()
		mu.Lock()
		if program == p {
			program = nil
		}
		mu.Unlock()
	}()
	return nil
}

// Stop asks the TUI to quit and waits for the terminal to be restored.
func Stop() {
	mu.RLock()
	p, finished := program, done
	mu.RUnlock()
	if p == nil {
		return
	}
	p.Send(MsgShutdown{})
	<-finished
}

// Running reports whether a TUI program is active.
func Running() bool {
	mu.RLock()
	defer mu.RUnlock()
	return program != nil
}

// PushState sends a state snapshot to the TUI. Safe from any goroutine.
func PushState(s StateSnapshot) {
	mu.RLock()
	p := program
	mu.RUnlock()
	if p != nil {
		p.Send(MsgStateSnapshot(s))
	}
}

// PushEvent appends to the TUI event log. Safe from any goroutine.
func PushEvent(e Event) {
	mu.RLock()
	p := program
	mu.RUnlock()
	if p != nil {
		p.Send(MsgEvent(e))
	}
}
