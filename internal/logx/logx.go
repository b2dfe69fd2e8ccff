// Package logx holds the human-facing console output: colored channel tags,
// progress lines and tables. Structured logs go through zap (see New).
package logx

import (
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

const (
	reset   = "\x1b[0m"
	bold    = "\x1b[1m"
	gray    = "\x1b[90m"
	cyan    = "\x1b[36m"
	blue    = "\x1b[34m"
	yellow  = "\x1b[33m"
	green   = "\x1b[32m"
	magenta = "\x1b[35m"
	red     = "\x1b[31m"
)

var (
	mu          sync.Mutex
	out         io.Writer = os.Stdout
	enableColor           = true
)

func init() {
	if os.Getenv("NO_COLOR") != "" || !term.IsTerminal(int(os.Stdout.Fd())) {
		enableColor = false
	}
}

// SetOutput redirects console output and returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	mu.Lock()
	defer mu.Unlock()
	prev := out
	out = w
	return prev
}

// SetColor forces color on or off.
func SetColor(on bool) {
	mu.Lock()
	enableColor = on
	mu.Unlock()
}

func colorOn() bool {
	mu.Lock()
	defer mu.Unlock()
	return enableColor
}

func printf(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(out, format, args...)
}

// C returns s wrapped in color, or s unchanged when color is disabled.
func C(color, s string) string {
	if !colorOn() {
		return s
	}
	return color + s + reset
}

func Cf(color, format string, args ...any) string {
	return C(color, fmt.Sprintf(format, args...))
}

// Channel returns a padded colored tag. Pass 4-char names: "ENV ", "EXPR",
// "POOL", "IC  ".
func Channel(ch string) string {
	color := map[string]string{
		"ENV ": cyan,
		"EXPR": blue,
		"POOL": green,
		"IC  ": magenta,
	}[ch]
	return C(color, fmt.Sprintf("[%-4s]", ch))
}

// TS is the gray UTC clock prefix.
func TS(t time.Time) string {
	return C(gray, t.UTC().Format("15:04:05Z"))
}

func Success(s string) string { return C(green, s) }

func Successf(format string, args ...any) string { return Cf(green, format, args...) }

func Error(s string) string { return C(red, s) }

func Errorf(format string, args ...any) string { return Cf(red, format, args...) }

func Warn(s string) string { return C(yellow, s) }

func Warnf(format string, args ...any) string { return Cf(yellow, format, args...) }

func Info(s string) string { return C(cyan, s) }

func Highlight(s string) string { return C(bold, s) }

func Dim(s string) string { return C(gray, s) }

// Checkmark returns a green check or a red cross.
func Checkmark(passed bool) string {
	if passed {
		return Success("✓")
	}
	return Error("✗")
}

// ICColor colors an information coefficient: positive green, negative red,
// NaN dimmed.
func ICColor(ic float64) string {
	switch {
	case math.IsNaN(ic):
		return Dim("nan")
	case ic > 0:
		return Successf("%.4f", ic)
	case ic < 0:
		return Errorf("%.4f", ic)
	}
	return fmt.Sprintf("%.4f", ic)
}

// PercentColor colors a completion percentage: high is good.
func PercentColor(pct float64) string {
	if pct >= 90 {
		return Successf("%.1f%%", pct)
	}
	if pct >= 50 {
		return Warnf("%.1f%%", pct)
	}
	return Errorf("%.1f%%", pct)
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
