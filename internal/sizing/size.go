// Package sizing provides checked size arithmetic for the 32-bit fields of
// the archive format.
package sizing

import "math"

// ToUint32 converts a non-negative length to uint32, returning overflowErr if
// it doesn't fit.
func ToUint32(size int, overflowErr error) (uint32, error) {
	if size < 0 || uint64(size) > math.MaxUint32 {
		return 0, overflowErr
	}
	return uint32(size), nil //nolint:gosec // checked above
}

// ToInt converts a uint64 to int, returning overflowErr if it doesn't fit.
func ToInt(size uint64, overflowErr error) (int, error) {
	if size > uint64(math.MaxInt) {
		return 0, overflowErr
	}
	return int(size), nil
}

// AddUint32 adds two uint32 values, returning (result, false) on overflow.
func AddUint32(a, b uint32) (uint32, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

// AlignUint32 rounds x up to a multiple of to, which must be a power of two.
// Returns (result, false) if the result does not fit in uint32.
func AlignUint32(x, to uint32) (uint32, bool) {
	aligned := (uint64(x) + uint64(to-1)) &^ uint64(to-1)
	if aligned > math.MaxUint32 {
		return 0, false
	}
	return uint32(aligned), true
}

// FitsWithin reports whether the range [off, off+n) lies inside [0, size).
func FitsWithin(off, n uint64, size int64) bool {
	if size < 0 {
		return false
	}
	end := off + n
	if end < off {
		return false
	}
	return end <= uint64(size)
}
