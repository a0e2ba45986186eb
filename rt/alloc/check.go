package alloc

import (
	"fmt"
	"io"
)

// CheckHeap walks both cell lists of h and verifies bounds, alignment,
// linkage, header stamps, free-list order and size accounting. It returns
// the number of free bytes (headers included), or -1 if the heap is corrupt.
// The reason for a failure is logged at warn level.
func (a *Arena) CheckHeap(h Heap) int64 {
	d := a.lock(h)
	defer d.mu.Unlock()

	free, err := d.check()
	if err != nil {
		a.log.Warn("heap check failed", "heap", h, "reason", err.Error())
		return -1
	}
	return free
}

func (d *heapDesc) check() (int64, error) {
	a := d.arena
	limit := len(d.cells)

	walk := func(name string, head int32, used bool) (int64, error) {
		var total int64
		prev := nilCell
		n := 0
		for i := head; i != nilCell; i = d.cells[i].next {
			if i < 0 || int(i) >= len(d.cells) {
				return 0, fmt.Errorf("%s: index %d out of table", name, i)
			}
			if n++; n > limit {
				return 0, fmt.Errorf("%s: cycle detected", name)
			}
			c := &d.cells[i]
			switch {
			case c.used != used:
				return 0, fmt.Errorf("%s: cell %#x in wrong list", name, c.addr)
			case c.prev != prev:
				return 0, fmt.Errorf("%s: cell %#x has broken back link", name, c.addr)
			case c.addr < a.lo || c.end() > a.hi || c.end() < c.addr:
				return 0, fmt.Errorf("%s: cell %#x size %d outside arena", name, c.addr, c.size)
			case c.addr%Alignment != 0 || c.size%Alignment != 0:
				return 0, fmt.Errorf("%s: cell %#x size %d misaligned", name, c.addr, c.size)
			case c.size < MinObjSize:
				return 0, fmt.Errorf("%s: cell %#x size %d below minimum", name, c.addr, c.size)
			case !d.indexed(c.addr, i):
				return 0, fmt.Errorf("%s: cell %#x missing from address index", name, c.addr)
			case !a.stampOK(c, d.id):
				return 0, fmt.Errorf("%s: cell %#x header overwritten", name, c.addr)
			}
			if !used && prev != nilCell {
				p := &d.cells[prev]
				if p.end() > c.addr {
					return 0, fmt.Errorf("%s: cell %#x out of address order", name, c.addr)
				}
				if p.end() == c.addr {
					return 0, fmt.Errorf("%s: cells %#x and %#x adjacent but not merged", name, p.addr, c.addr)
				}
			}
			total += int64(c.size)
			prev = i
		}
		return total, nil
	}

	allocated, err := walk("allocated", d.allocated, true)
	if err != nil {
		return 0, err
	}
	free, err := walk("free", d.free, false)
	if err != nil {
		return 0, err
	}
	if free+allocated != d.size {
		return 0, fmt.Errorf("accounting: free %d + allocated %d != size %d", free, allocated, d.size)
	}
	return free, nil
}

func (d *heapDesc) indexed(addr Addr, i int32) bool {
	j, ok := d.byAddr[addr]
	return ok && j == i
}

// Stats returns byte and cell totals for h.
func (a *Arena) Stats(h Heap) HeapStats {
	d := a.lock(h)
	defer d.mu.Unlock()

	st := HeapStats{Size: d.size}
	for i := d.free; i != nilCell; i = d.cells[i].next {
		st.Free += int64(d.cells[i].size)
		st.FreeCells++
	}
	for i := d.allocated; i != nilCell; i = d.cells[i].next {
		st.Allocated += int64(d.cells[i].size)
		st.AllocatedCells++
	}
	return st
}

// DumpHeap writes both cell lists of h to w.
func (a *Arena) DumpHeap(w io.Writer, h Heap) {
	d := a.lock(h)
	defer d.mu.Unlock()

	fmt.Fprintf(w, "heap %d: size=%d\n", h, d.size)
	fmt.Fprintf(w, "  %-10s %-10s %-10s %s\n", "list", "addr", "end", "size")
	for _, l := range []struct {
		name string
		head int32
	}{{"allocated", d.allocated}, {"free", d.free}} {
		var total int64
		for i := l.head; i != nilCell; i = d.cells[i].next {
			c := &d.cells[i]
			fmt.Fprintf(w, "  %-10s %#08x %#08x %d\n", l.name, c.addr, c.end(), c.size)
			total += int64(c.size)
		}
		fmt.Fprintf(w, "  %s total: %d\n", l.name, total)
	}
	if _, err := d.check(); err != nil {
		fmt.Fprintf(w, "  CORRUPT: %v\n", err)
	}
}
