// Package util provides shared helpers: zoned time parsing and formatting,
// and error aggregation.
package util

import (
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/derickschaefer/timeseries/internal/calendar"
)

// ─── Time Parsing ─────────────────────────────────────────────────────────────

// ErrInvalidTime is returned when a time string matches no accepted layout.
var ErrInvalidTime = errors.New("invalid time")

// inputLayouts are tried in order by ParseTime when no layout is given.
var inputLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 MST",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime parses s as a time in loc. With an empty layout the common
// RFC 3339 / ISO 8601 shapes are accepted, plus "now" and "@<unix seconds>".
// Wall-clock inputs without an offset resolve gaps and folds the way the
// calendar clock does; inputs carrying an offset keep their instant and are
// converted into loc.
func ParseTime(s string, loc *time.Location, layout string, now func() time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.UTC
	}
	if layout != "" {
		return parseWith(s, layout, loc)
	}

	switch {
	case strings.EqualFold(s, "now"):
		if now == nil {
			now = time.Now
		}
		return now().In(loc), nil
	case strings.HasPrefix(s, "@"):
		secs, err := strconv.ParseFloat(s[1:], 64)
		if err != nil {
			return time.Time{}, errors.Wrapf(ErrInvalidTime, "%q", s)
		}
		whole := int64(secs)
		return time.Unix(whole, int64((secs-float64(whole))*1e9)).In(loc), nil
	}

	for _, l := range inputLayouts {
		if t, err := parseWith(s, l, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Wrapf(ErrInvalidTime, "%q: expected RFC 3339, YYYY-MM-DD[ HH:MM[:SS]], now or @unix", s)
}

func parseWith(s, layout string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(ErrInvalidTime, "%q does not match layout %q", s, layout)
	}
	if hasZone(layout) {
		return t.In(loc), nil
	}
	return calendar.Localize(t, loc), nil
}

func hasZone(layout string) bool {
	for _, tok := range []string{"Z07", "-07", "MST"} {
		if strings.Contains(layout, tok) {
			return true
		}
	}
	return false
}

// ─── Time Formatting ──────────────────────────────────────────────────────────

// TimeFormatter returns a function rendering times per format:
//
//	"" or "rfc3339"  RFC 3339, whole seconds
//	"0" .. "9"       RFC 3339 with that many fraction digits
//	"unix"           seconds since the epoch
//	anything else    a Go reference layout
func TimeFormatter(format string) (func(time.Time) string, error) {
	switch strings.ToLower(format) {
	case "", "rfc3339":
		return func(t time.Time) string { return t.Format(time.RFC3339) }, nil
	case "unix":
		return func(t time.Time) string { return strconv.FormatInt(t.Unix(), 10) }, nil
	}
	if n, err := strconv.Atoi(format); err == nil {
		if n < 0 || n > 9 {
			return nil, errors.Newf("fraction digits must be 0..9, got %d", n)
		}
		layout := "2006-01-02T15:04:05"
		if n > 0 {
			layout += "." + strings.Repeat("0", n)
		}
		layout += "Z07:00"
		return func(t time.Time) string { return t.Format(layout) }, nil
	}
	return func(t time.Time) string { return t.Format(format) }, nil
}

// FormatTime formats t per format; see TimeFormatter. Invalid formats fall
// back to RFC 3339.
func FormatTime(t time.Time, format string) string {
	f, err := TimeFormatter(format)
	if err != nil {
		return t.Format(time.RFC3339)
	}
	return f(t)
}

// ─── Error Helpers ────────────────────────────────────────────────────────────

// MultiError collects multiple errors and presents them as one.
type MultiError struct {
	Errors []error
}

func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

func (m *MultiError) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}

func (m *MultiError) Error() string {
	msgs := make([]string, len(m.Errors))
	for i, e := range m.Errors {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error {
	return m.Errors
}
