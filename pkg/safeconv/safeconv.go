// Package safeconv provides integer conversions that never wrap around.
package safeconv

import "math"

// MaxInt is the maximum value for int type (platform-dependent).
const MaxInt = int(^uint(0) >> 1)

// Int64ToUint64 converts v, clamping negative values to zero. File sizes come
// back from the OS as int64 but are never meaningfully negative.
func Int64ToUint64(v int64) uint64 {
	if v < 0 {
		return 0
	}

	return uint64(v)
}

// Uint64ToInt64 converts v, saturating at math.MaxInt64. Used when handing
// byte counters to int64 metric instruments.
func Uint64ToInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}

	return int64(v)
}

// MustIntToUint converts int to uint, panics if negative.
// Use only when negative values are logically impossible.
func MustIntToUint(v int) uint {
	if v < 0 {
		panic("safeconv: negative int to uint conversion")
	}

	return uint(v)
}
