package alloc

import (
	"io"

	"github.com/bradleyjkemp/memviz"
)

// CellView is a snapshot of one cell. Next follows list order.
type CellView struct {
	Addr Addr
	End  Addr
	Size uint32
	Used bool
	Next *CellView
}

// HeapView is a snapshot of a heap's two cell lists.
type HeapView struct {
	Heap      Heap
	Size      int64
	Allocated *CellView
	Free      *CellView
}

// View returns a snapshot of h that stays valid after h changes.
func (a *Arena) View(h Heap) *HeapView {
	d := a.lock(h)
	defer d.mu.Unlock()

	list := func(head int32) *CellView {
		var first, last *CellView
		for i := head; i != nilCell; i = d.cells[i].next {
			c := &d.cells[i]
			v := &CellView{Addr: c.addr, End: c.end(), Size: c.size, Used: c.used}
			if last == nil {
				first = v
			} else {
				last.Next = v
			}
			last = v
		}
		return first
	}
	return &HeapView{Heap: h, Size: d.size, Allocated: list(d.allocated), Free: list(d.free)}
}

// GraphHeap writes a Graphviz dot rendering of h's cell lists to w.
func (a *Arena) GraphHeap(w io.Writer, h Heap) {
	memviz.Map(w, a.View(h))
}
