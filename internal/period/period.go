// Package period defines Period, a signed bag of calendar-unit magnitudes
// (seconds through years) used as the step size of a time series.
//
// A Period is an immutable value. Scaling or negating returns a new Period;
// nothing mutates a Period after construction. Magnitudes are decimals so
// that "10.01s" scales exactly instead of drifting through float64.
package period

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ─── Units ───────────────────────────────────────────────────────────────────

// Unit is one of the seven canonical calendar units.
type Unit int

const (
	Seconds Unit = iota
	Minutes
	Hours
	Days
	Weeks
	Months
	Years

	numUnits = int(Years) + 1
)

// CanonicalOrder lists units from finest to coarsest. Format and Units use it.
var CanonicalOrder = []Unit{Seconds, Minutes, Hours, Days, Weeks, Months, Years}

var unitNames = [numUnits]string{"seconds", "minutes", "hours", "days", "weeks", "months", "years"}

// canonicalAliases are the short names Format emits.
var canonicalAliases = [numUnits]string{"s", "m", "h", "d", "w", "mon", "y"}

// approxSeconds are the fixed, heuristic unit sizes used by ApproxSeconds.
// Months are 30 days and years 365.25 days; exact stepping never uses these.
var approxSeconds = [numUnits]float64{1, 60, 3600, 86400, 604800, 2592000, 31557600}

// String returns the plural unit name, e.g. "minutes".
func (u Unit) String() string {
	if u < 0 || int(u) >= numUnits {
		return "unknown"
	}
	return unitNames[u]
}

// Alias returns the canonical short alias, e.g. "mon".
func (u Unit) Alias() string {
	if u < 0 || int(u) >= numUnits {
		return ""
	}
	return canonicalAliases[u]
}

// SubDay reports whether u is hours, minutes or seconds.
func (u Unit) SubDay() bool {
	return u == Seconds || u == Minutes || u == Hours
}

// ─── Period ──────────────────────────────────────────────────────────────────

// Period maps units to signed magnitudes. The zero value is the empty period.
//
// A unit can be present with a zero magnitude ("0d"); it then formats but
// contributes nothing. Has reports presence with a non-zero magnitude.
type Period struct {
	mags [numUnits]decimal.Decimal
	set  [numUnits]bool
}

// New builds a Period from a unit → magnitude map.
func New(data map[Unit]decimal.Decimal) Period {
	var p Period
	for u, v := range data {
		if u < 0 || int(u) >= numUnits {
			continue
		}
		p.mags[u] = v
		p.set[u] = true
	}
	return p
}

// Of returns a single-unit Period with an integral magnitude.
func Of(u Unit, n int64) Period {
	return New(map[Unit]decimal.Decimal{u: decimal.NewFromInt(n)})
}

// OfDecimal returns a single-unit Period.
func OfDecimal(u Unit, v decimal.Decimal) Period {
	return New(map[Unit]decimal.Decimal{u: v})
}

// OfSeconds returns a Period of n seconds. It is the explicit numeric
// constructor that replaces treating bare numbers as periods.
func OfSeconds(n int64) Period {
	return Of(Seconds, n)
}

// With returns a copy of p with unit u set to v.
func (p Period) With(u Unit, v decimal.Decimal) Period {
	if u < 0 || int(u) >= numUnits {
		return p
	}
	p.mags[u] = v
	p.set[u] = true
	return p
}

// Get returns the magnitude for u, zero if absent.
func (p Period) Get(u Unit) decimal.Decimal {
	if u < 0 || int(u) >= numUnits || !p.set[u] {
		return decimal.Zero
	}
	return p.mags[u]
}

// Present reports whether u was given, even with a zero magnitude.
func (p Period) Present(u Unit) bool {
	return u >= 0 && int(u) < numUnits && p.set[u]
}

// Has reports whether u is present with a non-zero magnitude.
func (p Period) Has(u Unit) bool {
	return p.Present(u) && !p.mags[u].IsZero()
}

// Units returns the present units in canonical order.
func (p Period) Units() []Unit {
	var out []Unit
	for _, u := range CanonicalOrder {
		if p.set[u] {
			out = append(out, u)
		}
	}
	return out
}

// IsEmpty reports whether every magnitude is zero.
func (p Period) IsEmpty() bool {
	for _, u := range CanonicalOrder {
		if p.Has(u) {
			return false
		}
	}
	return true
}

// HasCalendarUnits reports whether any of days, weeks, months or years is
// non-zero. Such periods advance on the wall clock rather than elapsed time.
func (p Period) HasCalendarUnits() bool {
	return p.Has(Days) || p.Has(Weeks) || p.Has(Months) || p.Has(Years)
}

// Equal compares present units and magnitudes numerically.
func (p Period) Equal(o Period) bool {
	for _, u := range CanonicalOrder {
		if p.set[u] != o.set[u] {
			return false
		}
		if p.set[u] && !p.mags[u].Equal(o.mags[u]) {
			return false
		}
	}
	return true
}

// ─── Transforms ──────────────────────────────────────────────────────────────

// Scale multiplies every magnitude by factor. Scale(-1) reverses direction,
// Scale(n) is the offset of the n-th step.
func (p Period) Scale(factor int64) Period {
	return p.ScaleDecimal(decimal.NewFromInt(factor))
}

// ScaleDecimal multiplies every magnitude by factor.
func (p Period) ScaleDecimal(factor decimal.Decimal) Period {
	out := p
	for _, u := range CanonicalOrder {
		if out.set[u] {
			out.mags[u] = out.mags[u].Mul(factor)
		}
	}
	return out
}

// Negate is Scale(-1).
func (p Period) Negate() Period {
	return p.Scale(-1)
}

// ApproxSeconds estimates the length of p in seconds with fixed unit sizes.
func (p Period) ApproxSeconds() float64 {
	var total float64
	for _, u := range CanonicalOrder {
		if p.set[u] {
			total += p.mags[u].InexactFloat64() * approxSeconds[u]
		}
	}
	return total
}

// String formats p in the period grammar, e.g. "1s2w".
func (p Period) String() string {
	return Format(p)
}

// Format emits <magnitude><canonical alias> for each present unit in
// canonical order with no separator. The empty period formats as "".
func Format(p Period) string {
	var b strings.Builder
	for _, u := range CanonicalOrder {
		if !p.set[u] {
			continue
		}
		b.WriteString(p.mags[u].String())
		b.WriteString(canonicalAliases[u])
	}
	return b.String()
}

// MarshalText implements encoding.TextMarshaler using Format.
func (p Period) MarshalText() ([]byte, error) {
	return []byte(Format(p)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using Parse.
func (p *Period) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
