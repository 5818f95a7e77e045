// Package solver resolves a partial description of a series into a complete
// one.
//
// A series is fixed by three of {start_time, stop_time, period, n_steps}.
// Normalize picks the authoritative three (the signature), maps them onto a
// Mode, fills defaults and computes the missing value:
//
//	start, stop, period   → n_steps by stepping
//	start, stop, n_steps  → period spread evenly
//	start, period, n      → as given (n may be unbounded)
//	period, n             → start defaults to now
//	stop, period, n       → start walked back from stop
//
// The default period is one second and the default n_steps is unbounded.
package solver

import (
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"github.com/derickschaefer/timeseries/internal/grid"
	"github.com/derickschaefer/timeseries/internal/period"
	"github.com/derickschaefer/timeseries/internal/series"
)

var (
	ErrTooMuchInformation   = errors.New("too much information")
	ErrNotEnoughInformation = errors.New("not enough information")
	ErrNotImplemented       = errors.New("not implemented")
	ErrUnknownField         = errors.New("unknown field")
)

// ─── Fields ───────────────────────────────────────────────────────────────────

// Field names one of the four series parameters. The constant order is the
// canonical signature order.
type Field int

const (
	StartTime Field = iota
	StopTime
	Period
	NSteps
)

var fieldNames = []string{"start_time", "stop_time", "period", "n_steps"}

// Fields lists every field in canonical order.
var Fields = []Field{StartTime, StopTime, Period, NSteps}

func (f Field) String() string {
	if f < 0 || int(f) >= len(fieldNames) {
		return "unknown"
	}
	return fieldNames[f]
}

// ParseField accepts the snake_case field names, with '-' allowed for '_'.
func ParseField(s string) (Field, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for i, n := range fieldNames {
		if n == name {
			return Field(i), nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownField, "%q (want one of %s)", s, strings.Join(fieldNames, ", "))
}

// ParseSignature reads a comma or space separated field list.
func ParseSignature(s string) ([]Field, error) {
	var out []Field
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		f, err := ParseField(part)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// MarshalText implements encoding.TextMarshaler.
func (f Field) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Field) UnmarshalText(text []byte) error {
	parsed, err := ParseField(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ─── Modes ────────────────────────────────────────────────────────────────────

// Mode is the resolution strategy selected by a signature.
type Mode int

const (
	// ModeStartStopPeriod counts n_steps between start and stop.
	ModeStartStopPeriod Mode = iota
	// ModeStartStopSteps spreads n_steps evenly between start and stop.
	ModeStartStopSteps
	// ModeStartPeriodSteps takes start as given.
	ModeStartPeriodSteps
	// ModePeriodStepsOnly starts the series now.
	ModePeriodStepsOnly
	// ModeStopPeriodSteps walks start back from stop.
	ModeStopPeriodSteps
	// ModeStopPeriod has a stop but no step count and cannot be resolved.
	ModeStopPeriod
)

var modeNames = []string{
	"start_stop_period", "start_stop_steps", "start_period_steps",
	"period_steps_only", "stop_period_steps", "stop_period",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "unknown"
	}
	return modeNames[m]
}

// ─── Params / Resolved ────────────────────────────────────────────────────────

// Params is a partial series description. Nil pointers are absent fields.
type Params struct {
	StartTime *time.Time
	StopTime  *time.Time
	Period    *period.Period
	NSteps    *int

	// Signature optionally names the authoritative fields. Every named field
	// must be present.
	Signature []Field

	SnapStartTime grid.Direction
	SnapStopTime  grid.Direction
}

// Has reports whether field f was supplied.
func (p Params) Has(f Field) bool {
	switch f {
	case StartTime:
		return p.StartTime != nil
	case StopTime:
		return p.StopTime != nil
	case Period:
		return p.Period != nil
	case NSteps:
		return p.NSteps != nil
	}
	return false
}

// Available returns the supplied fields in canonical order.
func (p Params) Available() []Field {
	var out []Field
	for _, f := range Fields {
		if p.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Resolved is a complete series description.
type Resolved struct {
	Mode      Mode
	Signature []Field
	StartTime time.Time
	StopTime  *time.Time // nil unless given or computed
	Period    period.Period
	NSteps    *int // nil for an unbounded series
}

// Series builds the series r describes.
func (r Resolved) Series(clock series.Clock) *series.Series {
	if r.NSteps == nil {
		return series.New(clock, r.StartTime, r.Period)
	}
	return series.New(clock, r.StartTime, r.Period, series.WithSteps(*r.NSteps))
}

// ─── Normalize ────────────────────────────────────────────────────────────────

var defaultPeriod = period.OfSeconds(1)

// Signature returns the working signature for p: the override (or every
// available field), in canonical order, padded from the available fields up
// to three.
func Signature(p Params) ([]Field, error) {
	available := p.Available()

	var sig []Field
	if len(p.Signature) > 0 {
		for _, f := range p.Signature {
			if f < StartTime || f > NSteps {
				return nil, errors.Wrapf(ErrUnknownField, "field %d", int(f))
			}
			if !p.Has(f) {
				return nil, errors.Wrapf(ErrNotEnoughInformation, "signature names %s, which was not given", f)
			}
			if !slices.Contains(sig, f) {
				sig = append(sig, f)
			}
		}
	} else {
		sig = slices.Clone(available)
	}
	if len(sig) > 3 {
		return nil, errors.Wrap(ErrTooMuchInformation, "start_time, stop_time, period and n_steps were all given")
	}

	for _, f := range available {
		if len(sig) >= 3 {
			break
		}
		if !slices.Contains(sig, f) {
			sig = append(sig, f)
		}
	}
	slices.Sort(sig)
	return sig, nil
}

// ModeFor maps a signature onto its resolution mode.
func ModeFor(sig []Field) Mode {
	has := func(f Field) bool { return slices.Contains(sig, f) }
	switch {
	case has(StartTime) && has(StopTime) && has(NSteps):
		return ModeStartStopSteps
	case has(StartTime) && has(StopTime):
		return ModeStartStopPeriod
	case has(StartTime):
		return ModeStartPeriodSteps
	case has(StopTime) && has(NSteps):
		return ModeStopPeriodSteps
	case has(StopTime):
		return ModeStopPeriod
	default:
		return ModePeriodStepsOnly
	}
}

// Normalize resolves p. now supplies the default start time. Fields outside
// the signature are ignored.
func Normalize(clock series.Clock, now func() time.Time, p Params) (Resolved, error) {
	sig, err := Signature(p)
	if err != nil {
		return Resolved{}, err
	}
	mode := ModeFor(sig)
	slog.Debug("solver mode", "mode", mode.String(), "signature", sig)

	in := func(f Field) bool { return slices.Contains(sig, f) }
	r := Resolved{Mode: mode, Signature: sig, Period: defaultPeriod}
	if in(Period) {
		r.Period = *p.Period
	}
	if in(NSteps) {
		n := *p.NSteps
		r.NSteps = &n
	}

	switch mode {
	case ModeStartStopPeriod:
		if r.StartTime, err = grid.Snap(clock, p.SnapStartTime, r.Period, *p.StartTime); err != nil {
			return Resolved{}, errors.Wrap(err, "snapping start_time")
		}
		stop, err := grid.Snap(clock, p.SnapStopTime, r.Period, *p.StopTime)
		if err != nil {
			return Resolved{}, errors.Wrap(err, "snapping stop_time")
		}
		r.StopTime = &stop
		n, err := series.StepsBetween(clock, r.StartTime, stop, r.Period)
		if err != nil {
			return Resolved{}, err
		}
		r.NSteps = &n

	case ModeStartStopSteps:
		if p.SnapStartTime != grid.None || p.SnapStopTime != grid.None {
			return Resolved{}, errors.Wrap(ErrNotEnoughInformation, "snapping needs a period")
		}
		r.StartTime = *p.StartTime
		stop := *p.StopTime
		r.StopTime = &stop
		r.Period = spread(r.StartTime, stop, *r.NSteps)

	case ModeStartPeriodSteps:
		if r.StartTime, err = grid.Snap(clock, p.SnapStartTime, r.Period, *p.StartTime); err != nil {
			return Resolved{}, errors.Wrap(err, "snapping start_time")
		}

	case ModePeriodStepsOnly:
		if r.StartTime, err = grid.Snap(clock, p.SnapStartTime, r.Period, now()); err != nil {
			return Resolved{}, errors.Wrap(err, "snapping start_time")
		}

	case ModeStopPeriodSteps:
		n := *r.NSteps
		if n <= 0 {
			return Resolved{}, errors.Wrapf(ErrNotImplemented, "solving start_time from stop_time needs n_steps > 0, got %d", n)
		}
		stop, err := grid.Snap(clock, p.SnapStopTime, r.Period, *p.StopTime)
		if err != nil {
			return Resolved{}, errors.Wrap(err, "snapping stop_time")
		}
		r.StopTime = &stop
		r.StartTime = clock.Advance(stop, r.Period.Scale(int64(-(n - 1))))

	case ModeStopPeriod:
		if !in(Period) {
			return Resolved{}, errors.Wrap(ErrNotEnoughInformation, "stop_time alone needs a period or n_steps")
		}
		return Resolved{}, errors.Wrap(ErrNotImplemented, "solving start_time from stop_time needs n_steps")
	}

	return r, nil
}

// spread returns the seconds period that puts n inclusive steps from start
// to stop. A negative n walks backwards, matching StopTime's At(n+1). With
// fewer than two steps the period is empty.
func spread(start, stop time.Time, n int) period.Period {
	var gaps int
	switch {
	case n > 1:
		gaps = n - 1
	case n < -1:
		gaps = n + 1
	default:
		return period.Period{}
	}
	secs := decimal.NewFromInt(stop.Unix() - start.Unix()).
		Add(decimal.New(int64(stop.Nanosecond())-int64(start.Nanosecond()), -9))
	return period.OfDecimal(period.Seconds, secs.Div(decimal.NewFromInt(int64(gaps))).Round(9))
}
