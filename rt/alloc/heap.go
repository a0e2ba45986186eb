package alloc

import (
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/joshuapare/osrt/internal/align"
	"github.com/joshuapare/osrt/rt/fault"
)

// heapDesc is one descriptor slot. size < 0 marks the slot inactive.
type heapDesc struct {
	mu    sync.Mutex
	arena *Arena
	id    Heap
	size  int64

	cells  []cell
	spare  []int32 // recycled cell indices
	byAddr map[Addr]int32

	free      int32 // address-sorted
	allocated int32 // most recent first
}

func (d *heapDesc) reset() {
	d.cells = d.cells[:0]
	d.spare = d.spare[:0]
	d.byAddr = make(map[Addr]int32)
	d.free = nilCell
	d.allocated = nilCell
}

// newCell adds an unlinked free cell to the table. Any *cell held by the
// caller is invalid afterwards.
func (d *heapDesc) newCell(addr Addr, size uint32) int32 {
	c := cell{addr: addr, size: size, prev: nilCell, next: nilCell}
	var i int32
	if n := len(d.spare); n > 0 {
		i = d.spare[n-1]
		d.spare = d.spare[:n-1]
		d.cells[i] = c
	} else {
		i = int32(len(d.cells))
		d.cells = append(d.cells, c)
	}
	d.byAddr[addr] = i
	return i
}

func (d *heapDesc) release(i int32) {
	delete(d.byAddr, d.cells[i].addr)
	d.cells[i] = cell{prev: nilCell, next: nilCell}
	d.spare = append(d.spare, i)
}

func (d *heapDesc) unlink(head *int32, i int32) {
	c := &d.cells[i]
	if c.prev != nilCell {
		d.cells[c.prev].next = c.next
	} else {
		*head = c.next
	}
	if c.next != nilCell {
		d.cells[c.next].prev = c.prev
	}
	c.prev, c.next = nilCell, nilCell
}

func (d *heapDesc) pushAllocated(i int32) {
	c := &d.cells[i]
	c.used = true
	c.prev = nilCell
	c.next = d.allocated
	if d.allocated != nilCell {
		d.cells[d.allocated].prev = i
	}
	d.allocated = i
	d.arena.stamp(c, d.id)
}

// insertFree links cell i into the address-sorted free list and merges it
// with address-adjacent neighbours. It returns the index of the resulting cell.
func (d *heapDesc) insertFree(i int32) int32 {
	d.cells[i].used = false

	prev, next := nilCell, d.free
	for next != nilCell && d.cells[next].addr < d.cells[i].addr {
		prev, next = next, d.cells[next].next
	}

	c := &d.cells[i]
	c.prev, c.next = prev, next
	if prev != nilCell {
		d.cells[prev].next = i
	} else {
		d.free = i
	}
	if next != nilCell {
		d.cells[next].prev = i
	}

	if next != nilCell && c.end() == d.cells[next].addr {
		c.size += d.cells[next].size
		d.unlink(&d.free, next)
		d.release(next)
	}
	if prev != nilCell && d.cells[prev].end() == d.cells[i].addr {
		d.cells[prev].size += d.cells[i].size
		d.unlink(&d.free, i)
		d.release(i)
		i = prev
	}
	d.arena.stamp(&d.cells[i], d.id)
	return i
}

// AllocFromHeap allocates size bytes from h and returns the address of the
// usable block, just past its header. It returns ErrNoSpace when no free cell
// is large enough, including sizes beyond the 32-bit address space. size <= 0
// is a contract violation.
func (a *Arena) AllocFromHeap(h Heap, size int) (Addr, error) {
	fault.Assert(size > 0, "AllocFromHeap: invalid size %d", size)

	d := a.lock(h)
	defer d.mu.Unlock()

	if int64(size) > math.MaxUint32-HeaderSize-Alignment {
		return 0, ErrNoSpace
	}
	need := align.Up(int64(size) + HeaderSize)
	for i := d.free; i != nilCell; i = d.cells[i].next {
		c := d.cells[i]
		if int64(c.size) < need {
			continue
		}

		if rem := int64(c.size) - need; rem >= MinObjSize {
			// front is allocated, the remainder takes the cell's place in the free list
			r := d.newCell(c.addr+Addr(need), uint32(rem))
			rc := &d.cells[r]
			rc.prev, rc.next = c.prev, c.next
			if c.prev != nilCell {
				d.cells[c.prev].next = r
			} else {
				d.free = r
			}
			if c.next != nilCell {
				d.cells[c.next].prev = r
			}
			d.arena.stamp(rc, d.id)
			d.cells[i].size = uint32(need)
		} else {
			d.unlink(&d.free, i)
		}
		d.pushAllocated(i)

		p := d.cells[i].addr + HeaderSize
		if logAlloc {
			fmt.Fprintf(os.Stderr, "[ALLOC] heap=%d size=%d cell=%d at %#x\n", h, size, d.cells[i].size, p)
		}
		return p, nil
	}

	if logAlloc {
		fmt.Fprintf(os.Stderr, "[ALLOC] heap=%d size=%d: no fit\n", h, size)
	}
	return 0, ErrNoSpace
}

// FreeToHeap returns the block at p to h, merging with adjacent free cells.
// p must be a block currently allocated from h.
func (a *Arena) FreeToHeap(h Heap, p Addr) {
	a.checkPointer("FreeToHeap", p)
	fault.Assert(p-HeaderSize >= a.lo, "FreeToHeap: pointer %#x has no header", p)

	d := a.lock(h)
	defer d.mu.Unlock()

	i, ok := d.byAddr[p-HeaderSize]
	if !ok || !d.cells[i].used {
		fault.Panicf("FreeToHeap: %#x is not allocated from heap %d", p, h)
	}
	d.unlink(&d.allocated, i)
	d.insertFree(i)

	if logAlloc {
		fmt.Fprintf(os.Stderr, "[FREE] heap=%d at %#x\n", h, p)
	}
}
