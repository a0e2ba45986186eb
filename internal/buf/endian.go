// Package buf contains endian and bounds helpers for guest memory.
//
// Guest memory is big-endian; every multi-byte field the runtime stamps into
// backing memory goes through these helpers.
package buf

import "encoding/binary"

// U32BE reads a big-endian uint32 from b at off. Returns 0 when out of range.
func U32BE(b []byte, off int) uint32 {
	s, ok := Slice(b, off, 4)
	if !ok {
		return 0
	}
	return binary.BigEndian.Uint32(s)
}

// PutU32BE writes v big-endian at b[off:]. It reports false when out of range.
func PutU32BE(b []byte, off int, v uint32) bool {
	s, ok := Slice(b, off, 4)
	if !ok {
		return false
	}
	binary.BigEndian.PutUint32(s, v)
	return true
}
