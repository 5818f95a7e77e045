// Package chart renders the step lengths of a series as a horizontal ASCII
// bar chart, one bar per step. Bars are scaled between the shortest and the
// longest step so calendar irregularity (28 vs 31 day months, 23 hour
// spring-forward days) stands out.
package chart

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrNoSteps is returned when there is nothing to draw.
var ErrNoSteps = errors.New("chart: no steps to render")

// Step is one bar: the time a step starts at and its real length.
type Step struct {
	Start   time.Time
	Seconds float64
}

// Elapser measures real elapsed seconds between two instants.
type Elapser interface {
	Elapsed(a, b time.Time) float64
}

// Steps pairs each time but the last with the length of the step it starts.
func Steps(clock Elapser, times []time.Time) []Step {
	if len(times) < 2 {
		return nil
	}
	out := make([]Step, len(times)-1)
	for i := 1; i < len(times); i++ {
		out[i-1] = Step{Start: times[i-1], Seconds: clock.Elapsed(times[i-1], times[i])}
	}
	return out
}

// ─── Bar ─────────────────────────────────────────────────────────────────────

// BarOptions controls bar chart rendering.
type BarOptions struct {
	// Width is the total character width available for the chart.
	// If 0, auto-detects from $COLUMNS, falls back to 80.
	Width int
	// MaxBars caps the number of bars, keeping the first MaxBars steps.
	// If 0, no limit is applied.
	MaxBars int
	// Layout formats the step start labels. If empty, one is chosen from
	// the shortest step.
	Layout string
}

// Bar renders steps to w.
//
// Output example:
//
//	1mon  2010-01 – 2010-04
//	2010-01  31d  ████████████████████
//	2010-02  28d  █
//	2010-03  31d  ████████████████████
func Bar(w io.Writer, title string, steps []Step, opts BarOptions) error {
	if len(steps) == 0 {
		return ErrNoSteps
	}
	totalWidth := opts.Width
	if totalWidth <= 0 {
		totalWidth = termWidth()
	}
	if opts.MaxBars > 0 && len(steps) > opts.MaxBars {
		steps = steps[:opts.MaxBars]
	}
	if len(steps) > 60 {
		fmt.Fprintf(w, "⚠  %d steps; consider --limit to shorten the chart\n\n", len(steps))
	}

	// Negative periods step backwards; their bars show the magnitude.
	minVal, maxVal := math.Abs(steps[0].Seconds), math.Abs(steps[0].Seconds)
	for _, s := range steps[1:] {
		v := math.Abs(s.Seconds)
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}

	layout := opts.Layout
	if layout == "" {
		layout = labelLayout(minVal)
	}
	labelWidth := 0
	valWidth := 0
	for _, s := range steps {
		labelWidth = max(labelWidth, len(s.Start.Format(layout)))
		valWidth = max(valWidth, len(FormatLength(s.Seconds)))
	}

	// Bar area width = totalWidth - labelWidth - valWidth - separators (4 chars)
	barAreaWidth := totalWidth - labelWidth - valWidth - 4
	if barAreaWidth < 4 {
		barAreaWidth = 4
	}
	valRange := maxVal - minVal

	fmt.Fprintf(w, "%s  %s – %s\n", title,
		steps[0].Start.Format(layout), steps[len(steps)-1].Start.Format(layout))

	for _, s := range steps {
		barLen := barAreaWidth
		if valRange > 0 {
			barLen = int(math.Round((math.Abs(s.Seconds) - minVal) / valRange * float64(barAreaWidth)))
		}
		if barLen < 1 {
			barLen = 1 // minimum 1 block so every bar is visible
		}
		if barLen > barAreaWidth {
			barLen = barAreaWidth
		}
		fmt.Fprintf(w, "%-*s  %*s  %s\n",
			labelWidth, s.Start.Format(layout),
			valWidth, FormatLength(s.Seconds),
			strings.Repeat("█", barLen),
		)
	}
	return nil
}

// labelLayout picks a start label precise enough for the shortest step.
func labelLayout(minSeconds float64) string {
	switch {
	case minSeconds >= 365*86400:
		return "2006"
	case minSeconds >= 28*86400:
		return "2006-01"
	case minSeconds >= 86400:
		return "2006-01-02"
	case minSeconds >= 60:
		return "2006-01-02 15:04 MST"
	default:
		return "2006-01-02 15:04:05 MST"
	}
}

// ─── Utilities ────────────────────────────────────────────────────────────────

// FormatLength formats a step length in its largest whole-ish unit: 31d,
// 23h, 15m, 1.5s. Up to two decimals are kept.
func FormatLength(seconds float64) string {
	abs := math.Abs(seconds)
	unit, div := "s", 1.0
	switch {
	case abs >= 86400:
		unit, div = "d", 86400
	case abs >= 3600:
		unit, div = "h", 3600
	case abs >= 60:
		unit, div = "m", 60
	}
	s := strconv.FormatFloat(seconds/div, 'f', 2, 64)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	return s + unit
}

// termWidth returns the terminal width from $COLUMNS, defaulting to 80.
func termWidth() int {
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if n, err := strconv.Atoi(cols); err == nil && n > 20 {
			return n
		}
	}
	return 80
}
