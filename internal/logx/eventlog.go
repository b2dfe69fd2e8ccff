package logx

import (
	"fmt"
	"time"

	"alphacore/internal/tui"
)

// Convenience functions that forward to the TUI event log. They are no-ops
// when the TUI is not running.

func LogEliteAdded(expr string, ic float64, elites int) {
	tui.PushEvent(tui.Event{
		Timestamp: time.Now(),
		Type:      tui.EventElite,
		Severity:  tui.SeverityInfo,
		Message:   fmt.Sprintf("elite %s (ic=%.4f, total=%d)", expr, ic, elites),
	})
}

func LogNewBest(oldIC, newIC float64, expr string) {
	tui.PushEvent(tui.Event{
		Timestamp: time.Now(),
		Type:      tui.EventBest,
		Severity:  tui.SeverityInfo,
		Message:   fmt.Sprintf("best ic %.4f → %.4f: %s", oldIC, newIC, expr),
	})
}

func LogScoreFailure(expr string) {
	tui.PushEvent(tui.Event{
		Timestamp: time.Now(),
		Type:      tui.EventScoreFailed,
		Severity:  tui.SeverityWarning,
		Message:   "scoring failed: " + expr,
	})
}

func LogPenalty(tokens string) {
	tui.PushEvent(tui.Event{
		Timestamp: time.Now(),
		Type:      tui.EventPenalty,
		Severity:  tui.SeverityWarning,
		Message:   "length ceiling hit: " + tokens,
	})
}
