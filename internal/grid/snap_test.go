package grid_test

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derickschaefer/timeseries/internal/calendar"
	"github.com/derickschaefer/timeseries/internal/grid"
	"github.com/derickschaefer/timeseries/internal/period"
)

var clock calendar.Clock

func utc(h, m, s, ns int) time.Time {
	return time.Date(2010, 1, 1, h, m, s, ns, time.UTC)
}

func TestSnapQuarterHour(t *testing.T) {
	p := period.MustParse("15m")

	prev, err := grid.SnapPrevious(clock, p, utc(0, 23, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, utc(0, 15, 0, 0), prev)

	next, err := grid.SnapNext(clock, p, utc(0, 23, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, utc(0, 30, 0, 0), next)

	prev, err = grid.SnapPrevious(clock, p, utc(1, 23, 55, 0))
	require.NoError(t, err)
	assert.Equal(t, utc(1, 15, 0, 0), prev)
}

func TestSnapOffGrid(t *testing.T) {
	// 04:05:06.789
	off := utc(4, 5, 6, 789_000_000)

	cases := []struct {
		period   string
		previous time.Time
		next     time.Time
	}{
		{"1s", utc(4, 5, 6, 0), utc(4, 5, 7, 0)},
		{"15s", utc(4, 5, 0, 0), utc(4, 5, 15, 0)},
		{"1m", utc(4, 5, 0, 0), utc(4, 6, 0, 0)},
		{"15m", utc(4, 0, 0, 0), utc(4, 15, 0, 0)},
		{"1h", utc(4, 0, 0, 0), utc(5, 0, 0, 0)},
		{"15h", utc(0, 0, 0, 0), utc(15, 0, 0, 0)},
		{"15m0s", utc(4, 0, 0, 0), utc(4, 15, 0, 0)},
	}

	for _, tc := range cases {
		t.Run(tc.period, func(t *testing.T) {
			p := period.MustParse(tc.period)

			prev, err := grid.SnapPrevious(clock, p, off)
			require.NoError(t, err)
			assert.Equal(t, tc.previous, prev, "previous")

			next, err := grid.SnapNext(clock, p, off)
			require.NoError(t, err)
			assert.Equal(t, tc.next, next, "next")

			assert.False(t, prev.After(off))
			assert.False(t, next.Before(off))
		})
	}
}

func TestSnapOnBoundaryIsUnchanged(t *testing.T) {
	p := period.MustParse("15m")
	on := utc(0, 45, 0, 0)

	prev, err := grid.SnapPrevious(clock, p, on)
	require.NoError(t, err)
	assert.Equal(t, on, prev)

	next, err := grid.SnapNext(clock, p, on)
	require.NoError(t, err)
	assert.Equal(t, on, next)
}

func TestSnapPreviousIsIdempotent(t *testing.T) {
	for _, s := range []string{"1s", "15s", "7m", "15m", "2h", "1h30m"} {
		p := period.MustParse(s)
		once, err := grid.SnapPrevious(clock, p, utc(13, 47, 29, 5))
		require.NoError(t, err)
		twice, err := grid.SnapPrevious(clock, p, once)
		require.NoError(t, err)
		assert.Equal(t, once, twice, s)
	}
}

func TestSnapUsesLocalWallClock(t *testing.T) {
	loc, err := calendar.LoadLocation("MST7MDT")
	require.NoError(t, err)

	in := time.Date(2010, 6, 1, 10, 23, 0, 0, loc)
	prev, err := grid.SnapPrevious(clock, period.MustParse("1h"), in)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2010, 6, 1, 10, 0, 0, 0, loc), prev)
}

func TestSnapNegativePeriodFollowsTravel(t *testing.T) {
	p := period.MustParse("-15m")

	prev, err := grid.SnapPrevious(clock, p, utc(0, 23, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, utc(0, 30, 0, 0), prev)

	next, err := grid.SnapNext(clock, p, utc(0, 23, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, utc(0, 15, 0, 0), next)
}

func TestSnapRejectsCalendarPeriods(t *testing.T) {
	for _, s := range []string{"1d", "1h1d", "1w", "1mon", "1y", ""} {
		_, err := grid.SnapPrevious(clock, period.MustParse(s), utc(0, 23, 0, 0))
		assert.True(t, errors.Is(err, grid.ErrUnsupportedGrid), "%q: got %v", s, err)

		_, err = grid.SnapNext(clock, period.MustParse(s), utc(0, 23, 0, 0))
		assert.True(t, errors.Is(err, grid.ErrUnsupportedGrid), "%q: got %v", s, err)
	}
}

func TestSnapDispatch(t *testing.T) {
	p := period.MustParse("15m")
	in := utc(0, 23, 0, 0)

	got, err := grid.Snap(clock, grid.None, p, in)
	require.NoError(t, err)
	assert.Equal(t, in, got)

	got, err = grid.Snap(clock, grid.Previous, p, in)
	require.NoError(t, err)
	assert.Equal(t, utc(0, 15, 0, 0), got)

	got, err = grid.Snap(clock, grid.Next, p, in)
	require.NoError(t, err)
	assert.Equal(t, utc(0, 30, 0, 0), got)

	// None never validates the period.
	_, err = grid.Snap(clock, grid.None, period.MustParse("1d"), in)
	assert.NoError(t, err)
}

func TestParseDirection(t *testing.T) {
	cases := map[string]grid.Direction{
		"":         grid.None,
		"none":     grid.None,
		"previous": grid.Previous,
		"prev":     grid.Previous,
		"Next":     grid.Next,
	}
	for in, want := range cases {
		got, err := grid.ParseDirection(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := grid.ParseDirection("sideways")
	assert.True(t, errors.Is(err, grid.ErrInvalidDirection))
}

func TestDirectionText(t *testing.T) {
	var d grid.Direction
	require.NoError(t, d.UnmarshalText([]byte("next")))
	assert.Equal(t, grid.Next, d)

	text, err := grid.Previous.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "previous", string(text))
}
