package series

import (
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/derickschaefer/timeseries/internal/period"
)

var (
	// ErrEmptyPeriod is returned when the period makes no progress but the
	// endpoints differ.
	ErrEmptyPeriod = errors.New("empty period")
	// ErrUnreachableStop is returned when stop lies behind start in the
	// direction of travel.
	ErrUnreachableStop = errors.New("unreachable stop time")
)

// StepsBetween counts the steps of a series from start to stop under p.
// See (*Series).StepsTo.
func StepsBetween(clock Clock, start, stop time.Time, p period.Period) (int, error) {
	return New(clock, start, p).StepsTo(stop)
}

// StepsTo returns the inclusive number of steps from start to stop: the
// smallest n with At(n) past stop, so that At(n-1) <= stop < At(n) for an
// increasing series.
//
//	00:00 → 01:00 by 15m  // 5
//	00:00 → 00:00 by 1s   // 1
//
// The count is guessed from the average length of the first ten steps and
// corrected one step at a time, so irregular months do not bias it.
// An empty period returns 0 when start equals stop and ErrEmptyPeriod
// otherwise.
func (s *Series) StepsTo(stop time.Time) (int, error) {
	avg := s.AvgSecondsPerStep()
	if avg == 0 {
		if s.start.Equal(stop) {
			return 0, nil
		}
		return 0, errors.Wrapf(ErrEmptyPeriod, "period %q", s.period.String())
	}

	increasing := s.Increasing()
	switch {
	case increasing && s.start.After(stop):
		return 0, errors.Wrap(ErrUnreachableStop, "start_time > stop_time with positive period")
	case !increasing && stop.After(s.start):
		return 0, errors.Wrap(ErrUnreachableStop, "stop_time > start_time with negative period")
	}

	overshot := func(t time.Time) bool {
		if increasing {
			return t.After(stop)
		}
		return t.Before(stop)
	}

	guess := int(s.clock.Elapsed(s.start, stop) / avg)
	n := guess
	current := s.At(n)
	for overshot(current) {
		n--
		current = s.At(n)
	}
	for !overshot(current) {
		n++
		current = s.At(n)
	}

	if n != guess+1 {
		slog.Debug("step count corrected", "guess", guess, "steps", n, "period", s.period.String())
	}
	return n, nil
}
