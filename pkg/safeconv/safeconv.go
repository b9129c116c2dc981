// Package safeconv converts between signed and unsigned sizes without
// silent wraparound.
package safeconv

import "math"

// SizeToUint64 converts a file size to uint64. Negative sizes become 0.
func SizeToUint64(v int64) uint64 {
	if v < 0 {
		return 0
	}

	return uint64(v)
}

// Uint64ToInt64 converts v to int64, clamping at math.MaxInt64.
func Uint64ToInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}

	return int64(v)
}

// LenToUint64 converts a slice length to uint64.
func LenToUint64(n int) uint64 {
	return SizeToUint64(int64(n))
}
