// Package series generates calendar-aware timestamp sequences.
//
// A Series is (start, period, n_steps) plus a clock:
//
//	At(i) = clock.Advance(start, period × i)
//
// Every step is computed from start, never from the previous step, so
// month-end clamping does not accumulate: 2010-01-29 by 1mon gives
// 01-29, 02-28, 03-29.
//
// A Series is immutable. The average step size and direction are computed
// once on first use; sharing a Series read-only across goroutines is safe.
package series

import (
	"iter"
	"sync"
	"time"

	"github.com/derickschaefer/timeseries/internal/period"
)

// Clock is the calendar capability a Series needs. calendar.Clock
// implements it.
type Clock interface {
	Advance(t time.Time, p period.Period) time.Time
	Elapsed(a, b time.Time) float64
}

// Series is an immutable timestamp sequence. Construct with New.
type Series struct {
	clock  Clock
	start  time.Time
	period period.Period
	steps  int
	bound  bool
	offset int

	once       sync.Once
	avg        float64
	increasing bool
}

// Option configures a Series at construction.
type Option func(*Series)

// WithSteps bounds the series to |n| timestamps. A negative n walks
// backwards from start; zero yields nothing.
func WithSteps(n int) Option {
	return func(s *Series) {
		s.steps = n
		s.bound = true
	}
}

// WithOffset shifts the index labels All and Cursor report. It does not
// change which timestamps are produced.
func WithOffset(k int) Option {
	return func(s *Series) { s.offset = k }
}

// New returns a Series starting at start and stepping by p. Without
// WithSteps the series is unbounded.
func New(clock Clock, start time.Time, p period.Period, opts ...Option) *Series {
	s := &Series{clock: clock, start: start, period: p}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start returns the first timestamp.
func (s *Series) Start() time.Time { return s.start }

// Period returns the step period.
func (s *Series) Period() period.Period { return s.period }

// Offset returns the index label of the first timestamp.
func (s *Series) Offset() int { return s.offset }

// Steps returns n_steps and whether the series is bounded.
func (s *Series) Steps() (int, bool) { return s.steps, s.bound }

// At returns the i-th timestamp, counted from start. Any integer is valid,
// including indexes outside the bounded range.
func (s *Series) At(i int) time.Time {
	return s.clock.Advance(s.start, s.period.Scale(int64(i)))
}

// StopTime returns the last timestamp of a bounded series. For n > 0 it is
// At(n-1), for n < 0 At(n+1), and for n == 0 the start time. An unbounded
// series has no stop time.
func (s *Series) StopTime() (time.Time, bool) {
	if !s.bound {
		return time.Time{}, false
	}
	switch {
	case s.steps > 0:
		return s.At(s.steps - 1), true
	case s.steps < 0:
		return s.At(s.steps + 1), true
	default:
		return s.start, true
	}
}

// Len returns |n_steps| for a bounded series and -1 for an unbounded one.
func (s *Series) Len() int {
	if !s.bound {
		return -1
	}
	if s.steps < 0 {
		return -s.steps
	}
	return s.steps
}

// stepSign is the index direction All walks: -1 for a negative n_steps.
func (s *Series) stepSign() int {
	if s.bound && s.steps < 0 {
		return -1
	}
	return 1
}

// All yields (index, time) pairs lazily. The index is the offset label plus
// the position. An unbounded series never ends; stop pulling to finish.
// Each call starts from the beginning.
func (s *Series) All() iter.Seq2[int, time.Time] {
	return func(yield func(int, time.Time) bool) {
		sign := s.stepSign()
		for i := 0; !s.bound || i < s.Len(); i++ {
			if !yield(s.offset+i, s.At(sign*i)) {
				return
			}
		}
	}
}

// Times collects up to limit timestamps. A limit <= 0 collects a bounded
// series completely; an unbounded series then yields nil.
func (s *Series) Times(limit int) []time.Time {
	if limit <= 0 && !s.bound {
		return nil
	}
	var out []time.Time
	for _, t := range s.All() {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, t)
	}
	return out
}

// Span is one [Previous, Current] pair of consecutive timestamps.
type Span struct {
	Previous time.Time
	Current  time.Time
}

// Intervals returns the consecutive timestamp pairs of a bounded series.
// Series of zero or one step have no intervals; unbounded series return nil.
func (s *Series) Intervals() []Span {
	times := s.Times(0)
	if len(times) < 2 {
		return nil
	}
	out := make([]Span, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		out = append(out, Span{Previous: times[i-1], Current: times[i]})
	}
	return out
}

// Rebind returns a new Series with the same clock and step count that starts
// at start, steps by p, and labels its first index offset. s is unchanged.
func (s *Series) Rebind(p period.Period, start time.Time, offset int) *Series {
	return &Series{
		clock:  s.clock,
		start:  start,
		period: p,
		steps:  s.steps,
		bound:  s.bound,
		offset: offset,
	}
}

func (s *Series) measure() {
	s.once.Do(func() {
		s.avg = s.clock.Elapsed(s.start, s.At(10)) / 10
		s.increasing = !s.At(0).After(s.At(1))
	})
}

// AvgSecondsPerStep is the mean real length of the first ten steps.
func (s *Series) AvgSecondsPerStep() float64 {
	s.measure()
	return s.avg
}

// Increasing reports whether At(0) <= At(1).
func (s *Series) Increasing() bool {
	s.measure()
	return s.increasing
}
