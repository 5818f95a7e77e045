package series

import (
	"time"

	"github.com/derickschaefer/timeseries/internal/period"
)

// Step is one position of a Cursor.
type Step struct {
	Last    time.Time // zero when HasLast is false
	HasLast bool
	Time    time.Time
	Index   int
}

// CursorOption configures a Cursor.
type CursorOption func(*Cursor)

// RequireLastTime advances the cursor once at construction so the first
// step already has a previous time.
func RequireLastTime() CursorOption {
	return func(c *Cursor) { c.requireLast = true }
}

// StreamForever ignores the series bound and keeps producing times.
func StreamForever() CursorOption {
	return func(c *Cursor) { c.forever = true }
}

// Cursor is a pull-based position within a Series. Unlike a Series it is
// stateful and not safe for concurrent use.
//
// SetPeriod swaps the period mid-stream by rebinding to a fresh Series that
// starts at the last yielded time; times already yielded never change and
// the index keeps counting.
type Cursor struct {
	series *Series
	origin int // index label of the first time ever yielded
	base   int // positions consumed by earlier bindings
	index  int // position within the current binding
	sign   int

	time    time.Time
	ok      bool
	last    time.Time
	hasLast bool

	requireLast bool
	forever     bool
}

// NewCursor positions a cursor on the first time of s.
func NewCursor(s *Series, opts ...CursorOption) *Cursor {
	c := &Cursor{series: s, origin: s.offset, sign: s.stepSign()}
	for _, opt := range opts {
		opt(c)
	}
	c.time, c.ok = c.timeAt(0)
	if c.requireLast {
		c.Advance()
	}
	return c
}

// Series returns the series the cursor currently walks.
func (c *Cursor) Series() *Series { return c.series }

// Time returns the current time, false once the series is exhausted.
func (c *Cursor) Time() (time.Time, bool) { return c.time, c.ok }

// LastTime returns the previously current time.
func (c *Cursor) LastTime() (time.Time, bool) { return c.last, c.hasLast }

// Index returns the apparent index of the current time. It counts across
// SetPeriod calls.
func (c *Cursor) Index() int { return c.origin + c.base + c.index }

// Advance moves to the next time.
func (c *Cursor) Advance() {
	if c.ok {
		c.last, c.hasLast = c.time, true
	}
	c.index++
	c.time, c.ok = c.timeAt(c.index)
}

func (c *Cursor) timeAt(i int) (time.Time, bool) {
	if !c.forever && c.series.bound && c.base+i >= c.series.Len() {
		return time.Time{}, false
	}
	return c.series.At(c.sign * i), true
}

// EachUntil calls fn for each step up to and including stop, in the
// direction of travel, advancing as it goes. It stops early when fn returns
// false or the series is exhausted.
func (c *Cursor) EachUntil(stop time.Time, fn func(Step) bool) {
	increasing := c.series.Increasing()
	for c.ok {
		if increasing && c.time.After(stop) || !increasing && c.time.Before(stop) {
			return
		}
		step := Step{Last: c.last, HasLast: c.hasLast, Time: c.time, Index: c.Index()}
		c.Advance()
		if !fn(step) {
			return
		}
	}
}

// SetPeriod changes the period for all times not yet yielded. With a last
// time the cursor rebinds to a series starting there, so the current time
// becomes last time plus the new period. Without one only the period
// changes.
func (c *Cursor) SetPeriod(p period.Period) {
	if !c.hasLast {
		c.series = c.series.Rebind(p, c.series.start, c.series.offset)
		c.time, c.ok = c.timeAt(c.index)
		return
	}
	c.base += c.index - 1
	c.index = 1
	c.series = c.series.Rebind(p, c.last, c.origin+c.base)
	c.time, c.ok = c.timeAt(c.index)
}
