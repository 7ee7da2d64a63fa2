// Package safeconv converts between integer types without silent
// wraparound: conversions either report, panic or clamp.
package safeconv

import (
	"fmt"
	"math"
)

// Integer is any built-in integer type.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Convert returns v as To and whether the value survived the conversion
// unchanged.
func Convert[To, From Integer](v From) (To, bool) {
	out := To(v)

	return out, From(out) == v && (out < 0) == (v < 0)
}

// Must converts v to To and panics when it does not fit. Use it only where
// the bound is guaranteed by construction.
func Must[To, From Integer](v From) To {
	out, ok := Convert[To](v)
	if !ok {
		panic(fmt.Sprintf("safeconv: %d out of range for %T", v, out))
	}

	return out
}

// MustIntToUint32 converts a non-negative int below 2^32.
func MustIntToUint32(v int) uint32 {
	return Must[uint32](v)
}

// SafeInt64 converts v, clamping values above math.MaxInt64.
func SafeInt64(v uint64) int64 {
	return int64(min(v, math.MaxInt64))
}
