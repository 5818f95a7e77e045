package series

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrInvalidIntervalType is returned for an unknown collation mode.
var ErrInvalidIntervalType = errors.New("invalid interval type")

// IntervalType chooses which end of an interval keys it.
type IntervalType int

const (
	// IntervalEnding keys the pair (data[i], data[i+1]) by At(i+1).
	IntervalEnding IntervalType = iota
	// IntervalBeginning keys the pair by At(i).
	IntervalBeginning
)

func (t IntervalType) String() string {
	switch t {
	case IntervalEnding:
		return "ending"
	case IntervalBeginning:
		return "beginning"
	}
	return "invalid"
}

// ParseIntervalType accepts "ending" (also "") and "beginning".
func ParseIntervalType(s string) (IntervalType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ending", "end":
		return IntervalEnding, nil
	case "beginning", "begin":
		return IntervalBeginning, nil
	}
	return 0, errors.Wrapf(ErrInvalidIntervalType, "%q", s)
}

// Interval is one consecutive pair of data values keyed by a series time.
type Interval[T any] struct {
	Time     time.Time
	Previous T
	Current  T
}

// Collate pairs consecutive data values with the timestamps of s. The pair
// (data[i], data[i+1]) is keyed by At(i+1) for IntervalEnding and At(i) for
// IntervalBeginning. The result is trimmed to the shorter of the available
// pairs and the available timestamps.
//
// A series with negative n_steps walks backwards, so its keys do too.
func Collate[T any](s *Series, data []T, typ IntervalType) ([]Interval[T], error) {
	var shift int
	switch typ {
	case IntervalEnding:
		shift = 1
	case IntervalBeginning:
		shift = 0
	default:
		return nil, errors.Wrapf(ErrInvalidIntervalType, "%d", int(typ))
	}

	pairs := len(data) - 1
	if pairs < 0 {
		pairs = 0
	}
	if s.bound {
		if avail := s.Len() - shift; avail < pairs {
			pairs = max(avail, 0)
		}
	}

	sign := s.stepSign()
	out := make([]Interval[T], 0, pairs)
	for i := 0; i < pairs; i++ {
		out = append(out, Interval[T]{
			Time:     s.At(sign * (i + shift)),
			Previous: data[i],
			Current:  data[i+1],
		})
	}
	return out, nil
}
