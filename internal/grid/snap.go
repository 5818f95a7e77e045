// Package grid aligns timestamps to the boundaries of a sub-day period.
//
// A boundary is an integer multiple of the period's hour, minute and second
// components counted from the top of the day in the timestamp's location:
// for 15m the boundaries are :00, :15, :30 and :45 of every hour.
//
// Only hours, minutes and seconds take part. Periods with day, week, month or
// year components have no fixed grid and are rejected.
package grid

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"github.com/derickschaefer/timeseries/internal/period"
)

var (
	// ErrUnsupportedGrid is returned for periods that do not define a sub-day grid.
	ErrUnsupportedGrid = errors.New("snapping only supports hours, minutes and seconds")
	// ErrInvalidDirection is returned by ParseDirection for unknown names.
	ErrInvalidDirection = errors.New("invalid snap direction")
)

// Advancer moves a timestamp by a period. calendar.Clock satisfies it.
type Advancer interface {
	Advance(t time.Time, p period.Period) time.Time
}

// ─── Direction ────────────────────────────────────────────────────────────────

// Direction selects which neighbouring boundary Snap moves to.
type Direction int

const (
	None Direction = iota
	Previous
	Next
)

func (d Direction) String() string {
	switch d {
	case Previous:
		return "previous"
	case Next:
		return "next"
	default:
		return "none"
	}
}

// ParseDirection accepts "", "none", "previous", "prev" and "next".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return None, nil
	case "previous", "prev":
		return Previous, nil
	case "next":
		return Next, nil
	}
	return None, errors.Wrapf(ErrInvalidDirection, "%q (want previous, next or none)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ─── Snapping ─────────────────────────────────────────────────────────────────

var subDayUnits = []period.Unit{period.Seconds, period.Minutes, period.Hours}

// Snap dispatches on dir. None returns t unchanged without validating p.
func Snap(clock Advancer, dir Direction, p period.Period, t time.Time) (time.Time, error) {
	switch dir {
	case Previous:
		return SnapPrevious(clock, p, t)
	case Next:
		return SnapNext(clock, p, t)
	default:
		return t, nil
	}
}

// SnapPrevious backs t up to the previous boundary of p. A time already on a
// boundary is returned unchanged, and the sub-second fraction is dropped.
//
//	SnapPrevious(clock, 15m, 01:23:55) // 01:15:00
//
// For a negative period "previous" is taken in the direction of travel, so
// the result lies at or after t.
func SnapPrevious(clock Advancer, p period.Period, t time.Time) (time.Time, error) {
	if err := validate(p); err != nil {
		return time.Time{}, err
	}

	h, m, s := t.Clock()
	dist := map[period.Unit]decimal.Decimal{
		period.Seconds: decimal.NewFromInt(int64(s)),
		period.Minutes: decimal.NewFromInt(int64(m)),
		period.Hours:   decimal.NewFromInt(int64(h)),
	}
	for i, u := range subDayUnits {
		if !p.Has(u) {
			continue
		}
		dist[u] = floorMod(dist[u], p.Get(u))
		for _, coarser := range subDayUnits[i+1:] {
			dist[coarser] = decimal.Zero
		}
	}

	snapped := clock.Advance(t, period.New(dist).Negate())
	return snapped.Add(-time.Duration(snapped.Nanosecond())), nil
}

// SnapNext moves t forward to the next boundary of p, or returns the
// boundary itself when t is already on one.
func SnapNext(clock Advancer, p period.Period, t time.Time) (time.Time, error) {
	prev, err := SnapPrevious(clock, p, t)
	if err != nil {
		return time.Time{}, err
	}
	if prev.Equal(t) {
		return prev, nil
	}
	return clock.Advance(prev, p), nil
}

func validate(p period.Period) error {
	if p.HasCalendarUnits() {
		return errors.Wrapf(ErrUnsupportedGrid, "period %q", p.String())
	}
	if p.IsEmpty() {
		return errors.Wrap(ErrUnsupportedGrid, "empty period")
	}
	return nil
}

// floorMod is the modulus with the sign of the divisor.
func floorMod(a, b decimal.Decimal) decimal.Decimal {
	r := a.Mod(b)
	if !r.IsZero() && r.Sign() != b.Sign() {
		r = r.Add(b)
	}
	return r
}
