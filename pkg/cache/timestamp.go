package cache

import "math"

// Timestamp is a presentation/decode/byte timestamp in seconds. It models an
// option type: most real-valued timestamps in a container format are only
// known once the corresponding packet has actually been seen, so the zero
// value cannot mean "unset" (zero is a perfectly valid first timestamp).
type Timestamp float64

// UnsetTimestamp is the sentinel for "no value known yet", distinct from any
// finite real number. NaN is the natural choice since Go float64 already
// distinguishes it from every finite value and from other NaNs under
// equality, which is exactly the property IsSet() relies on.
const UnsetTimestamp Timestamp = Timestamp(math.NaN())

// IsSet reports whether t carries a real value.
func (t Timestamp) IsSet() bool {
	return !math.IsNaN(float64(t))
}

// Add returns t shifted by delta seconds. Unset propagates: shifting an
// unset timestamp is still unset.
func (t Timestamp) Add(delta float64) Timestamp {
	if !t.IsSet() {
		return t
	}
	return t + Timestamp(delta)
}

// Clamp returns t clamped into [lo, hi]. If lo or hi is unset that bound is
// ignored. An unset t is returned unchanged.
func (t Timestamp) Clamp(lo, hi Timestamp) Timestamp {
	if !t.IsSet() {
		return t
	}
	if lo.IsSet() && t < lo {
		t = lo
	}
	if hi.IsSet() && t > hi {
		t = hi
	}
	return t
}

// MinTimestamp returns the smaller of a and b, preferring whichever side is
// set when the other is unset (an unset value never "wins" a min/max).
func MinTimestamp(a, b Timestamp) Timestamp {
	switch {
	case !a.IsSet():
		return b
	case !b.IsSet():
		return a
	case a < b:
		return a
	default:
		return b
	}
}

// MaxTimestamp returns the larger of a and b, with the same unset-preference
// rule as MinTimestamp.
func MaxTimestamp(a, b Timestamp) Timestamp {
	switch {
	case !a.IsSet():
		return b
	case !b.IsSet():
		return a
	case a > b:
		return a
	default:
		return b
	}
}

// NonMonotoneToleranceSeconds is the tolerance window used when deciding
// whether a presentation timestamp that moved backward is still "close
// enough" to be treated as roughly monotone. Kept as a named constant
// rather than inlined so a caller embedding this package can see and, if
// truly necessary, shadow the behavior it encodes.
const NonMonotoneToleranceSeconds = 10.0
