// Package calendar advances zoned timestamps by calendar periods.
//
// Sub-day periods (hours, minutes, seconds only) advance in elapsed time, so
// "1h" across a spring-forward gap is exactly 3600 real seconds. Periods with
// any day, week, month or year component advance on the wall clock of the
// timestamp's location and are then resolved back into an instant:
//
//   - a wall time inside a DST gap moves forward one hour at a time until it
//     exists (02:30 on a spring-forward day becomes 03:30 DST)
//   - a wall time inside a DST fold resolves to the daylight-saving instant
//
// Months and years clamp the day to the end of the target month, so
// 2012-02-29 plus one year is 2013-02-28.
package calendar

import (
	"strings"
	"time"
	_ "time/tzdata" // embedded zone database for hosts without zoneinfo

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"github.com/derickschaefer/timeseries/internal/period"
)

var (
	secondsPerMinute = decimal.NewFromInt(60)
	secondsPerHour   = decimal.NewFromInt(3600)
	hoursPerDay      = decimal.NewFromInt(24)
	daysPerWeek      = decimal.NewFromInt(7)
	monthsPerYear    = decimal.NewFromInt(12)
	nanosPerSecond   = decimal.NewFromInt(int64(time.Second))
)

// Clock is the calendar-aware clock. The zero value is ready to use and
// carries no state; the zone comes from each timestamp's Location.
type Clock struct{}

// Advance returns t moved by p. Advancing by the empty period returns t.
func (Clock) Advance(t time.Time, p period.Period) time.Time {
	if !p.HasCalendarUnits() {
		return addSubDay(t, p.Get(period.Hours), p.Get(period.Minutes), p.Get(period.Seconds))
	}
	return advanceWall(t, p)
}

// Elapsed returns b - a in seconds. It is computed from Unix seconds so spans
// wider than time.Duration's range stay exact to the nanosecond.
func (Clock) Elapsed(a, b time.Time) float64 {
	secs := b.Unix() - a.Unix()
	nanos := int64(b.Nanosecond()) - int64(a.Nanosecond())
	return float64(secs) + float64(nanos)/1e9
}

// Compare returns -1, 0 or +1 as a is before, equal to, or after b.
func (Clock) Compare(a, b time.Time) int {
	return a.Compare(b)
}

// LoadLocation resolves a zone name. "" and "local" select the host zone,
// "utc" selects UTC, anything else goes to the IANA database (which includes
// POSIX-style names such as MST7MDT).
func LoadLocation(name string) (*time.Location, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "local":
		return time.Local, nil
	case "utc", "z":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errors.Wrapf(err, "loading zone %q", name)
	}
	return loc, nil
}

// ─── Wall-clock arithmetic ────────────────────────────────────────────────────

func advanceWall(t time.Time, p period.Period) time.Time {
	weeks := p.Get(period.Weeks)
	days := p.Get(period.Days)
	hours := p.Get(period.Hours)

	// Fractional weeks carry into days and fractional days into hours.
	wholeWeeks := weeks.Floor()
	days = days.Add(weeks.Sub(wholeWeeks).Mul(daysPerWeek))
	wholeDays := days.Floor()
	hours = hours.Add(days.Sub(wholeDays).Mul(hoursPerDay))

	y, m, d := t.Date()
	if n := p.Get(period.Years).Mul(monthsPerYear).IntPart(); n != 0 {
		y, m, d = addMonths(y, m, d, n)
	}
	if n := p.Get(period.Months).IntPart(); n != 0 {
		y, m, d = addMonths(y, m, d, n)
	}
	d += int(wholeWeeks.IntPart()*7 + wholeDays.IntPart())

	hh, mm, ss := t.Clock()
	wall := time.Date(y, m, d, hh, mm, ss, t.Nanosecond(), time.UTC)
	wall = addSubDay(wall, hours, p.Get(period.Minutes), p.Get(period.Seconds))

	return resolve(wall, t.Location())
}

// addMonths shifts a calendar date by n months, clamping the day to the last
// day of the resulting month.
func addMonths(y int, m time.Month, d int, n int64) (int, time.Month, int) {
	total := int64(y)*12 + int64(m-1) + n
	ny := total / 12
	nm := total % 12
	if nm < 0 {
		nm += 12
		ny--
	}
	month := time.Month(nm + 1)
	if last := daysIn(int(ny), month); d > last {
		d = last
	}
	return int(ny), month, d
}

func daysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// addSubDay moves t by an hour/minute/second total. Whole seconds and the
// nanosecond remainder are added separately, so spans past time.Duration's
// ~292 year range do not wrap.
func addSubDay(t time.Time, hours, minutes, seconds decimal.Decimal) time.Time {
	total := hours.Mul(secondsPerHour).Add(minutes.Mul(secondsPerMinute)).Add(seconds)
	if total.IsZero() {
		return t
	}
	whole := total.Floor()
	nanos := total.Sub(whole).Mul(nanosPerSecond).IntPart()
	return time.Unix(t.Unix()+whole.IntPart(), int64(t.Nanosecond())+nanos).In(t.Location())
}

// ─── Zone resolution ──────────────────────────────────────────────────────────

// Localize reads the wall clock of wall (its own location is ignored) as a
// time in loc. Gaps and folds resolve the same way Advance resolves them:
//
//	Localize(2010-11-07 01:00, MST7MDT) // 01:00 MDT
//	Localize(2010-03-14 02:30, MST7MDT) // 03:30 MDT
func Localize(wall time.Time, loc *time.Location) time.Time {
	y, m, d := wall.Date()
	hh, mm, ss := wall.Clock()
	return resolve(time.Date(y, m, d, hh, mm, ss, wall.Nanosecond(), time.UTC), loc)
}

// resolve maps a wall-clock reading (carried in a UTC time.Time) onto an
// instant in loc.
func resolve(wall time.Time, loc *time.Location) time.Time {
	if loc == time.UTC {
		return wall
	}
	// A gap is never longer than a day, so this terminates.
	for range 48 {
		candidates := instantsFor(wall, loc)
		switch len(candidates) {
		case 0:
			wall = wall.Add(time.Hour)
			continue
		case 1:
			return candidates[0]
		}
		for _, c := range candidates {
			if c.IsDST() {
				return c
			}
		}
		return candidates[0]
	}
	return time.Unix(wall.Unix(), int64(wall.Nanosecond())).In(loc)
}

// instantsFor lists every instant in loc whose wall-clock reading equals
// wall, earliest first. A gap yields none, a fold yields two.
func instantsFor(wall time.Time, loc *time.Location) []time.Time {
	var out []time.Time
	seen := map[int]bool{}
	for _, probe := range []time.Duration{-24 * time.Hour, 0, 24 * time.Hour} {
		_, offset := wall.Add(probe).In(loc).Zone()
		if seen[offset] {
			continue
		}
		seen[offset] = true

		c := wall.Add(-time.Duration(offset) * time.Second).In(loc)
		if sameWall(c, wall) {
			out = append(out, c)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Before(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func sameWall(c, wall time.Time) bool {
	cy, cm, cd := c.Date()
	wy, wm, wd := wall.Date()
	ch, cmin, cs := c.Clock()
	wh, wmin, ws := wall.Clock()
	return cy == wy && cm == wm && cd == wd && ch == wh && cmin == wmin && cs == ws &&
		c.Nanosecond() == wall.Nanosecond()
}
