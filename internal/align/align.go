// Package align holds the alignment arithmetic shared by the allocator and
// the file layer. Every heap cell address and size is a multiple of Unit.
package align

const (
	// Unit is the allocation granule in bytes.
	Unit = 32

	// Mask is Unit-1.
	Mask = Unit - 1
)

// Up returns n aligned up to the next 32-byte boundary.
//
// Example:
//
//	Up(1)  = 32
//	Up(32) = 32
//	Up(33) = 64
func Up(n int64) int64 {
	return (n + Mask) &^ Mask
}

// Down returns n aligned down to the previous 32-byte boundary.
//
// Example:
//
//	Down(31) = 0
//	Down(32) = 32
//	Down(63) = 32
func Down(n int64) int64 {
	return n &^ Mask
}

// Up32 is Up for uint32 addresses.
func Up32(n uint32) uint32 {
	return (n + Mask) &^ Mask
}

// Down32 is Down for uint32 addresses.
func Down32(n uint32) uint32 {
	return n &^ Mask
}

// Is reports whether n sits on a 32-byte boundary.
func Is(n int64) bool {
	return n&Mask == 0
}
