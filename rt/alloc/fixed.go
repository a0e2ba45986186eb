package alloc

import (
	"fmt"

	"github.com/joshuapare/osrt/internal/align"
	"github.com/joshuapare/osrt/rt/fault"
)

// AddToHeap gives h the additional range [start, end), aligned inward to 32
// bytes. The range must lie inside the arena and must not overlap any active
// heap. It is merged with h's free cells where they touch.
func (a *Arena) AddToHeap(h Heap, start, end Addr) {
	s := align.Up32(uint32(start))
	e := align.Down32(uint32(end))
	fault.Assert(s < e && e-s >= MinObjSize, "AddToHeap: range [%#x, %#x) too small", start, end)
	fault.Assert(Addr(s) >= a.lo && Addr(e) <= a.hi,
		"AddToHeap: range [%#x, %#x) outside arena [%#x, %#x)", s, e, a.lo, a.hi)
	fault.Assert(h >= 0 && int(h) < len(a.heaps), "invalid heap handle %d", h)

	a.mu.Lock()
	defer a.mu.Unlock()
	unlock := a.lockAll()
	defer unlock()

	d := a.heaps[h]
	fault.Assert(d.size >= 0, "heap %d is not active", h)
	fault.Assert(!a.overlapsLocked(Addr(s), Addr(e)), "AddToHeap: range [%#x, %#x) overlaps an existing heap", s, e)

	d.size += int64(e - s)
	d.insertFree(d.newCell(Addr(s), e-s))
}

// AllocFixed removes [alignDown(start), alignUp(end)) from the free space of
// every active heap and returns the aligned start. The range then belongs to
// the caller and to no heap. It fails with ErrOverlap, changing nothing, if
// any allocated cell intersects the range.
//
// A free cell straddling either edge keeps its outside part as a new free
// cell. Fragments smaller than MinObjSize leave the heap, which shrinks by
// their size.
func (a *Arena) AllocFixed(start, end Addr) (Addr, error) {
	s := Addr(align.Down32(uint32(start)))
	e := Addr(align.Up32(uint32(end)))
	fault.Assert(s < e, "AllocFixed: empty range [%#x, %#x)", start, end)
	fault.Assert(s >= a.lo && e <= a.hi, "AllocFixed: range [%#x, %#x) outside arena [%#x, %#x)", s, e, a.lo, a.hi)

	a.mu.Lock()
	defer a.mu.Unlock()
	unlock := a.lockAll()
	defer unlock()

	for _, d := range a.heaps {
		if d.size < 0 {
			continue
		}
		for i := d.allocated; i != nilCell; i = d.cells[i].next {
			if c := &d.cells[i]; c.addr < e && s < c.end() {
				return 0, ErrOverlap
			}
		}
	}

	for _, d := range a.heaps {
		if d.size < 0 {
			continue
		}
		var hit []int32
		for i := d.free; i != nilCell; i = d.cells[i].next {
			if c := &d.cells[i]; c.addr < e && s < c.end() {
				hit = append(hit, i)
			}
		}
		for _, i := range hit {
			d.carve(i, s, e)
		}
	}

	a.log.Debug("fixed range allocated", "start", fmt.Sprintf("%#x", s), "end", fmt.Sprintf("%#x", e))
	return s, nil
}

// carve removes [s, e) from free cell i, keeping the parts outside the range.
func (d *heapDesc) carve(i int32, s, e Addr) {
	c := d.cells[i]
	d.unlink(&d.free, i)
	d.release(i)
	d.size -= int64(c.size)

	if c.addr < s {
		d.keepFragment(c.addr, uint32(s-c.addr))
	}
	if c.end() > e {
		d.keepFragment(e, uint32(c.end()-e))
	}
}

func (d *heapDesc) keepFragment(addr Addr, size uint32) {
	if size < MinObjSize {
		return
	}
	d.size += int64(size)
	d.insertFree(d.newCell(addr, size))
}
