package buf

import "math"

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int64.
func AddOverflowSafe(a, b int64) (int64, bool) {
	switch {
	case b > 0 && a > math.MaxInt64-b:
		return 0, false
	case b < 0 && a < math.MinInt64-b:
		return 0, false
	default:
		return a + b, true
	}
}

// Clamp returns how many of the n bytes requested at off lie inside a
// resource of the given length. Reads that start at or past the end yield 0.
//
//	Clamp(0, 1000, 100) = 100
//	Clamp(90, 20, 100)  = 10
//	Clamp(120, 5, 100)  = 0
func Clamp(off, n, length int64) int64 {
	if off < 0 || n <= 0 || off >= length {
		return 0
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok || end > length {
		return length - off
	}
	return n
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	end, ok := AddOverflowSafe(int64(off), int64(n))
	if !ok || end > int64(len(b)) {
		return nil, false
	}
	return b[off:int(end)], true
}

// Has reports whether b[off:off+n] is within bounds.
func Has(b []byte, off, n int) bool {
	_, ok := Slice(b, off, n)
	return ok
}
