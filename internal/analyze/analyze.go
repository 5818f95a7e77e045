// Package analyze computes statistical summaries over the step lengths of a
// generated series. All functions are pure; no I/O.
package analyze

import (
	"math"
	"sort"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/derickschaefer/timeseries/internal/model"
)

// ErrTooFewTimes is returned when fewer than two timestamps are given.
var ErrTooFewTimes = errors.New("need at least 2 timestamps")

// Elapser measures real elapsed seconds between two instants.
type Elapser interface {
	Elapsed(a, b time.Time) float64
}

// uniformTolerance is the spread in seconds under which steps count as equal.
const uniformTolerance = 1e-6

// Steps returns the elapsed seconds of each consecutive step in times.
func Steps(clock Elapser, times []time.Time) []float64 {
	if len(times) < 2 {
		return nil
	}
	out := make([]float64, len(times)-1)
	for i := 1; i < len(times); i++ {
		out[i-1] = clock.Elapsed(times[i-1], times[i])
	}
	return out
}

// Summarize computes step statistics over times. approx is the nominal step
// length in seconds, reported alongside for comparison.
func Summarize(clock Elapser, info model.SeriesInfo, times []time.Time, approx float64) (model.StepStats, error) {
	st := model.StepStats{Info: info, Approx: approx}
	steps := Steps(clock, times)
	if len(steps) == 0 {
		return st, errors.Wrapf(ErrTooFewTimes, "got %d", len(times))
	}
	st.Steps = len(steps)

	sorted := make([]float64, len(steps))
	copy(sorted, steps)
	sort.Float64s(sorted)

	st.Min = sorted[0]
	st.Max = sorted[len(sorted)-1]
	st.Mean = sumF(steps) / float64(len(steps))
	st.Median = percentile(sorted, 50)
	st.Std = stddevF(steps, st.Mean)
	st.Total = clock.Elapsed(times[0], times[len(times)-1])
	st.Uniform = math.Abs(st.Max-st.Min) <= uniformTolerance
	st.Distinct = distinct(sorted)
	st.Fit = fit(clock, times)
	return st, nil
}

// distinct groups sorted step lengths that agree within uniformTolerance.
func distinct(sorted []float64) []model.StepFrequency {
	var out []model.StepFrequency
	for _, v := range sorted {
		if n := len(out); n > 0 && math.Abs(out[n-1].Seconds-v) <= uniformTolerance {
			out[n-1].Count++
			continue
		}
		out = append(out, model.StepFrequency{Seconds: v, Count: 1})
	}
	return out
}

// fit regresses elapsed seconds since the first time on the step index.
func fit(clock Elapser, times []time.Time) model.StepFit {
	pts := make([]point, len(times))
	for i, t := range times {
		pts[i] = point{float64(i), clock.Elapsed(times[0], t)}
	}
	slope, intercept := olsRegress(pts)
	return model.StepFit{Slope: slope, Intercept: intercept, R2: r2(pts, slope, intercept)}
}

// ─── Math helpers ─────────────────────────────────────────────────────────────

func sumF(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}

func stddevF(vals []float64, m float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	var sq float64
	for _, v := range vals {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(vals)-1))
}

func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	idx := p / 100 * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

type point struct{ x, y float64 }

func olsRegress(pts []point) (slope, intercept float64) {
	n := float64(len(pts))
	var xSum, ySum, xySum, x2Sum float64
	for _, p := range pts {
		xSum += p.x
		ySum += p.y
		xySum += p.x * p.y
		x2Sum += p.x * p.x
	}
	denom := n*x2Sum - xSum*xSum
	if denom == 0 {
		return 0, ySum / n
	}
	slope = (n*xySum - xSum*ySum) / denom
	intercept = (ySum - slope*xSum) / n
	return
}

func r2(pts []point, slope, intercept float64) float64 {
	var yMean float64
	for _, p := range pts {
		yMean += p.y
	}
	yMean /= float64(len(pts))

	var ssTot, ssRes float64
	for _, p := range pts {
		pred := slope*p.x + intercept
		ssTot += (p.y - yMean) * (p.y - yMean)
		ssRes += (p.y - pred) * (p.y - pred)
	}
	if ssTot == 0 {
		return 1
	}
	return 1 - ssRes/ssTot
}
