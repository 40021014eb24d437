// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"golang.org/x/term"

	"github.com/revoirb612/pedamint-hcoding/internal/model"
)

const (
	sparkChars          = " .:-=+*#%@"
	terminalWidthBackup = 80
	trendLabelWidth     = 12
)

// Summary aggregates session history.
type Summary struct {
	Sessions    int
	TotalClicks int
	AvgRate     float64
	BestRate    float64
	BestClicks  int
	ByDuration  map[int]int
}

// Summarize computes aggregate figures for sessions.
func Summarize(sessions []model.SessionResult) Summary {
	sum := Summary{ByDuration: map[int]int{}}
	if len(sessions) == 0 {
		return sum
	}
	var totalRate float64
	for _, s := range sessions {
		sum.Sessions++
		sum.TotalClicks += s.Clicks
		totalRate += s.Rate
		if s.Rate > sum.BestRate {
			sum.BestRate = s.Rate
		}
		if s.Clicks > sum.BestClicks {
			sum.BestClicks = s.Clicks
		}
		sum.ByDuration[s.DurationSeconds]++
	}
	sum.AvgRate = totalRate / float64(sum.Sessions)
	return sum
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints a summary block for sessions.
func RenderSummary(w io.Writer, sessions []model.SessionResult) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	sum := Summarize(sessions)
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", sum.Sessions),
		fmt.Sprintf("Total clicks: %d", sum.TotalClicks),
		fmt.Sprintf("Avg CPS: %.2f", sum.AvgRate),
		fmt.Sprintf("Best CPS: %.1f", sum.BestRate),
		fmt.Sprintf("Best clicks: %d", sum.BestClicks),
	}
	durations := make([]int, 0, len(sum.ByDuration))
	for d := range sum.ByDuration {
		durations = append(durations, d)
	}
	sort.Ints(durations)
	parts := make([]string, 0, len(durations))
	for _, d := range durations {
		parts = append(parts, fmt.Sprintf("%ds×%d", d, sum.ByDuration[d]))
	}
	lines = append(lines, "Durations: "+strings.Join(parts, " "))
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderTrend prints the CPS sparkline of the most recent sessions that fit
// the terminal width.
func RenderTrend(w io.Writer, sessions []model.SessionResult, window int) error {
	return RenderTrendWithWidth(w, sessions, window, terminalWidth())
}

// RenderTrendWithWidth is RenderTrend with an explicit total width.
func RenderTrendWithWidth(w io.Writer, sessions []model.SessionResult, window, totalWidth int) error {
	if len(sessions) == 0 {
		return nil
	}
	values := make([]float64, len(sessions))
	for i, s := range sessions {
		values[i] = s.Rate
	}
	avg := MovingAverage(values, window)
	width := totalWidth - trendLabelWidth
	if width < 1 {
		width = 1
	}
	if len(values) > width {
		values = values[len(values)-width:]
		avg = avg[len(avg)-width:]
	}
	if _, err := fmt.Fprintln(w, "Trend"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%-*s%s\n", trendLabelWidth, "CPS", Sparkline(values)); err != nil {
		return err
	}
	label := fmt.Sprintf("Avg(%d)", window)
	_, err := fmt.Fprintf(w, "%-*s%s\n", trendLabelWidth, label, Sparkline(avg))
	return err
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}
