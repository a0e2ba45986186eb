package alloc

import "github.com/joshuapare/osrt/internal/align"

// Addr is a guest address.
type Addr uint32

// Heap is a heap handle returned by CreateHeap.
type Heap int

// InvalidHeap is returned by CreateHeap when no descriptor slot is free.
const InvalidHeap Heap = -1

const (
	// Alignment is the granule of every cell address and size.
	Alignment = align.Unit

	// HeaderSize is the size of the header preceding every block.
	HeaderSize = 32

	// MinObjSize is the smallest cell the allocator will create.
	MinObjSize = HeaderSize + Alignment

	// DescriptorSize is the arena space consumed per heap descriptor.
	DescriptorSize = 12
)

// header stamp layout, big-endian, at the start of every cell
const (
	stampState = 0
	stampSize  = 4
	stampHeap  = 8

	stateFree uint32 = 0x46524545 // "FREE"
	stateUsed uint32 = 0x55534544 // "USED"
)

// nilCell terminates an index-linked list.
const nilCell int32 = -1

// cell is one entry of a heap's cell table.
type cell struct {
	addr Addr   // header address
	size uint32 // total size including header
	prev int32
	next int32
	used bool
}

func (c *cell) end() Addr { return c.addr + Addr(c.size) }

// HeapStats summarizes one heap.
type HeapStats struct {
	Size           int64 // bytes under management
	Free           int64 // bytes in free cells, headers included
	Allocated      int64 // bytes in allocated cells, headers included
	FreeCells      int
	AllocatedCells int
}
