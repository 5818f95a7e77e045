package period

import (
	"regexp"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidPeriodString is returned when text remains after parsing.
	ErrInvalidPeriodString = errors.New("invalid period string")
	// ErrUnknownUnit is returned for an unrecognised unit alias.
	ErrUnknownUnit = errors.New("unknown period unit")
)

// aliases maps every accepted spelling onto its canonical unit.
var aliases = map[string]Unit{
	"s": Seconds, "sec": Seconds, "secs": Seconds, "second": Seconds, "seconds": Seconds,
	"m": Minutes, "min": Minutes, "mins": Minutes, "minute": Minutes, "minutes": Minutes,
	"h": Hours, "hr": Hours, "hrs": Hours, "hour": Hours, "hours": Hours,
	"d": Days, "day": Days, "days": Days,
	"w": Weeks, "week": Weeks, "weeks": Weeks,
	"mon": Months, "month": Months, "months": Months,
	"y": Years, "yr": Years, "yrs": Years, "year": Years, "years": Years,
}

var (
	termRe       = regexp.MustCompile(`^\s*(-?\d+(?:\.\d+)?)?\s*([A-Za-z]+)\s*`)
	bareNumberRe = regexp.MustCompile(`^\s*(-?\d+(?:\.\d+)?)\s*$`)
)

// ParseUnit resolves a unit alias such as "secs" or "mon".
func ParseUnit(alias string) (Unit, error) {
	u, ok := aliases[alias]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownUnit, "unit %q", alias)
	}
	return u, nil
}

// Aliases returns every accepted unit alias, sorted.
func Aliases() []string {
	out := make([]string, 0, len(aliases))
	for a := range aliases {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Parse reads the period grammar: a run of optional signed magnitudes
// followed by a unit alias, with optional whitespace.
//
//	Parse("1s2w")   // seconds=1, weeks=2
//	Parse("-2d1h")  // days=-2, hours=1
//	Parse("week")   // weeks=1
//
// A magnitude with a decimal point is fractional. Later occurrences of a unit
// overwrite earlier ones. A bare number is a count of seconds.
func Parse(s string) (Period, error) {
	if m := bareNumberRe.FindStringSubmatch(s); m != nil {
		v, err := decimal.NewFromString(m[1])
		if err != nil {
			return Period{}, errors.Wrapf(ErrInvalidPeriodString, "%q", s)
		}
		return OfDecimal(Seconds, v), nil
	}

	var p Period
	rest := s
	for rest != "" {
		m := termRe.FindStringSubmatchIndex(rest)
		if m == nil {
			break
		}
		value := "1"
		if m[2] >= 0 {
			value = rest[m[2]:m[3]]
		}
		u, err := ParseUnit(rest[m[4]:m[5]])
		if err != nil {
			return Period{}, errors.Wrapf(err, "invalid period string %q", s)
		}
		v, err := decimal.NewFromString(value)
		if err != nil {
			return Period{}, errors.Wrapf(ErrInvalidPeriodString, "%q", s)
		}
		p = p.With(u, v)
		rest = rest[m[1]:]
	}
	if strings.TrimSpace(rest) != "" {
		return Period{}, errors.Wrapf(ErrInvalidPeriodString, "%q", s)
	}
	return p, nil
}

// MustParse is Parse for literals; it panics on error.
func MustParse(s string) Period {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}
