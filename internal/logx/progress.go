package logx

import (
	"fmt"
	"strings"
	"time"
)

// Progress is one sampling status line.
type Progress struct {
	Episodes  int64
	Completed int64 // episodes that ended on a complete expression
	Rate      float64
	BestIC    float64
	Elites    int
	Elapsed   time.Duration
}

// LogProgress prints a single status line on the ENV channel.
func LogProgress(p Progress) {
	total := p.Episodes
	if total == 0 {
		total = 1
	}
	pct := 100 * float64(p.Completed) / float64(total)
	printf("%s  %s  episodes=%s | complete=%s | rate=%.0f/s | best=%s | elites=%d | runtime=%s\n",
		TS(time.Now()), Channel("ENV "),
		formatNumber(p.Episodes), PercentColor(pct), p.Rate,
		ICColor(p.BestIC), p.Elites, FormatDuration(p.Elapsed))
}

// LogEpisode prints one finished episode on the EXPR channel.
func LogEpisode(id, expr string, reward float64, outcome string) {
	if len(id) > 8 {
		id = id[:8]
	}
	printf("%s  %s  %s %-12s reward=%s  %s\n",
		TS(time.Now()), Channel("EXPR"), Dim(id), outcome, ICColor(reward), expr)
}

// LogNewBestLine prints a hall-of-fame improvement on the POOL channel.
func LogNewBestLine(expr string, ic float64) {
	printf("%s  %s  new best %s  %s\n", TS(time.Now()), Channel("POOL"), ICColor(ic), Highlight(expr))
}

// LogCheckpoint reports a saved pool checkpoint.
func LogCheckpoint(path string, elites, seen int) {
	printf("%s  %s  checkpoint saved: %s (elites=%d, seen=%d)\n",
		TS(time.Now()), Channel("POOL"), path, elites, seen)
}

// LogCheckpointLoad reports a restored pool checkpoint.
func LogCheckpointLoad(path string, elites, seen int) {
	printf("%s  %s  checkpoint loaded: %s (elites=%d, seen=%d)\n",
		TS(time.Now()), Channel("POOL"), path, elites, seen)
}

// BoxHeader draws ┌─ title ─...┐ at the given width.
func BoxHeader(title string, width int) string {
	inner := width - 2
	label := []rune("─ " + title + " ")
	if len(label) > inner {
		label = label[:inner]
	}
	return "┌" + string(label) + strings.Repeat("─", inner-len(label)) + "┐"
}

// BoxFooter closes a BoxHeader.
func BoxFooter(width int) string {
	return "└" + strings.Repeat("─", width-2) + "┘"
}

// formatNumber renders 1234567 as 1,234,567.
func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
