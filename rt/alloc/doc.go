// Package alloc carves a guest memory arena into independently managed heaps.
//
// # Overview
//
// An Arena covers a caller-supplied byte range mapped at a guest base
// address. A descriptor table for up to maxHeaps heaps is carved off the
// front of the arena; the remainder is aligned to 32 bytes and handed out to
// heaps with CreateHeap.
//
// Each heap keeps two lists of cells:
//
//   - free: sorted by address, never holding two address-adjacent cells
//   - allocated: most recently allocated first
//
// Every cell starts with a 32-byte header, and every cell address and size is
// a multiple of 32 bytes.
//
// # Allocation
//
// AllocFromHeap rounds the request up to header plus alignment and takes the
// first free cell large enough, in address order. When the remainder would be
// smaller than MinObjSize the whole cell is consumed; otherwise the front of
// the cell is allocated and the remainder stays in the free list in place.
//
//	a := alloc.NewArena(0x80000000, mem, 4, nil)
//	h := a.CreateHeap(a.Lo(), a.Hi())
//	p, err := a.AllocFromHeap(h, 4096)
//	if errors.Is(err, alloc.ErrNoSpace) {
//	    // out of memory is recoverable
//	}
//	copy(a.Block(p), payload)
//	a.FreeToHeap(h, p)
//
// FreeToHeap returns the cell to the free list and merges it with its
// address-adjacent neighbours in both directions.
//
// # Cell Table
//
// Cells live in a per-heap table of stable indices; list membership is an
// index-linked doubly linked list. The header bytes in backing memory carry a
// big-endian stamp (state, size, heap) so that CheckHeap can detect writes
// past the end of a block.
//
// # Failure Policy
//
// Malformed handles, non-positive sizes, and pointers outside the arena or
// not owned by the named heap are contract violations and panic through
// package fault. Running out of space returns ErrNoSpace.
//
// # Thread Safety
//
// A heap's lists are mutated only under that heap's lock. Creating and
// destroying heaps, AddToHeap and AllocFixed additionally hold the arena lock
// and take heap locks in handle order.
package alloc
