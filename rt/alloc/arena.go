package alloc

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"
	"sync/atomic"

	"github.com/joshuapare/osrt/internal/align"
	"github.com/joshuapare/osrt/internal/buf"
	"github.com/joshuapare/osrt/rt/fault"
	"github.com/joshuapare/osrt/rt/logger"
)

// Runtime debug flag for allocation tracing - controlled by OSRT_LOG_ALLOC env var.
var logAlloc = os.Getenv("OSRT_LOG_ALLOC") != ""

// Config carries optional Arena settings.
type Config struct {
	// Logger receives init lines and leak warnings. Default: logger.L.
	Logger *slog.Logger
}

// Arena is a bounded guest memory region from which heaps are carved.
type Arena struct {
	mu sync.Mutex // guards descriptor slots; taken before any heap lock

	base Addr
	mem  []byte
	lo   Addr // first usable address, after the descriptor table
	hi   Addr // end of usable range (exclusive)

	heaps   []*heapDesc
	current atomic.Int64

	log *slog.Logger
}

// NewArena takes ownership of mem, mapped at guest address base, and reserves
// descriptors for maxHeaps heaps at its front. It panics if maxHeaps <= 0, if
// the range does not fit the 32-bit address space, or if nothing usable is
// left after the descriptor table and alignment.
func NewArena(base Addr, mem []byte, maxHeaps int, cfg *Config) *Arena {
	if cfg == nil {
		cfg = &Config{}
	}
	fault.Assert(maxHeaps > 0, "NewArena: invalid maxHeaps %d", maxHeaps)

	end := uint64(base) + uint64(len(mem))
	fault.Assert(end <= math.MaxUint32, "NewArena: arena [%#x, %#x) exceeds address space", base, end)

	start := uint64(base) + uint64(maxHeaps)*DescriptorSize
	lo := uint64(align.Up(int64(start)))
	hi := uint64(align.Down(int64(end)))
	fault.Assert(lo < hi, "NewArena: arena too small (%d bytes for %d heaps)", len(mem), maxHeaps)

	a := &Arena{
		base:  base,
		mem:   mem,
		lo:    Addr(lo),
		hi:    Addr(hi),
		heaps: make([]*heapDesc, maxHeaps),
		log:   logger.Component(cfg.Logger, "alloc"),
	}
	for i := range a.heaps {
		a.heaps[i] = &heapDesc{arena: a, id: Heap(i), size: -1, free: nilCell, allocated: nilCell}
	}
	a.current.Store(int64(InvalidHeap))

	a.log.Info("arena initialized",
		"base", fmt.Sprintf("%#x", base),
		"lo", fmt.Sprintf("%#x", a.lo),
		"hi", fmt.Sprintf("%#x", a.hi),
		"maxHeaps", maxHeaps)
	return a
}

// Lo returns the first usable arena address.
func (a *Arena) Lo() Addr { return a.lo }

// Hi returns the end of the usable arena range (exclusive).
func (a *Arena) Hi() Addr { return a.hi }

// MaxHeaps returns the number of descriptor slots.
func (a *Arena) MaxHeaps() int { return len(a.heaps) }

func (a *Arena) contains(p Addr) bool { return p >= a.lo && p < a.hi }

// Bytes returns the backing memory for [p, p+n). It panics when the range
// leaves the arena mapping.
func (a *Arena) Bytes(p Addr, n int) []byte {
	fault.Assert(p >= a.base, "Bytes: address %#x below arena base %#x", p, a.base)
	s, ok := buf.Slice(a.mem, int(p-a.base), n)
	fault.Assert(ok, "Bytes: range [%#x, +%d) outside arena", p, n)
	return s
}

// Block returns the usable bytes of the allocated block at p.
func (a *Arena) Block(p Addr) []byte {
	return a.Bytes(p, a.ReferentSize(p))
}

// CreateHeap makes a heap of [start, end), aligned inward to 32 bytes. The
// range must lie inside the arena, must not overlap another active heap and
// must hold at least MinObjSize bytes. It returns InvalidHeap when every
// descriptor slot is in use.
func (a *Arena) CreateHeap(start, end Addr) Heap {
	s := align.Up32(uint32(start))
	e := align.Down32(uint32(end))
	fault.Assert(s < e && e-s >= MinObjSize, "CreateHeap: range [%#x, %#x) too small", start, end)
	fault.Assert(Addr(s) >= a.lo && Addr(e) <= a.hi,
		"CreateHeap: range [%#x, %#x) outside arena [%#x, %#x)", s, e, a.lo, a.hi)

	a.mu.Lock()
	defer a.mu.Unlock()
	unlock := a.lockAll()
	defer unlock()

	fault.Assert(!a.overlapsLocked(Addr(s), Addr(e)), "CreateHeap: range [%#x, %#x) overlaps an existing heap", s, e)

	for _, d := range a.heaps {
		if d.size >= 0 {
			continue
		}
		d.reset()
		d.size = int64(e - s)
		d.insertFree(d.newCell(Addr(s), e-s))
		a.log.Debug("heap created", "heap", d.id, "start", fmt.Sprintf("%#x", s), "size", d.size)
		return d.id
	}
	a.log.Debug("heap descriptors exhausted", "maxHeaps", len(a.heaps))
	return InvalidHeap
}

// DestroyHeap marks h inactive. Live allocations are abandoned with a warning.
func (a *Arena) DestroyHeap(h Heap) {
	a.mu.Lock()
	defer a.mu.Unlock()

	d := a.lock(h)
	defer d.mu.Unlock()

	if d.allocated != nilCell {
		var cells int
		var bytes int64
		for i := d.allocated; i != nilCell; i = d.cells[i].next {
			cells++
			bytes += int64(d.cells[i].size)
		}
		a.log.Warn("heap destroyed with live allocations", "heap", h, "cells", cells, "bytes", bytes)
	}
	d.reset()
	d.size = -1
	a.current.CompareAndSwap(int64(h), int64(InvalidHeap))
}

// SetCurrentHeap makes h the target of Alloc and Free and returns the
// previous current heap.
func (a *Arena) SetCurrentHeap(h Heap) Heap {
	d := a.lock(h)
	d.mu.Unlock()
	return Heap(a.current.Swap(int64(h)))
}

// CurrentHeap returns the heap Alloc and Free operate on.
func (a *Arena) CurrentHeap() Heap {
	return Heap(a.current.Load())
}

// Alloc allocates from the current heap.
func (a *Arena) Alloc(size int) (Addr, error) {
	return a.AllocFromHeap(a.CurrentHeap(), size)
}

// Free returns p to the current heap.
func (a *Arena) Free(p Addr) {
	a.FreeToHeap(a.CurrentHeap(), p)
}

// ReferentSize returns the usable size of the allocated block at p, in
// whichever heap owns it. It panics if p is not an allocated block.
func (a *Arena) ReferentSize(p Addr) int {
	a.checkPointer("ReferentSize", p)
	for _, d := range a.heaps {
		d.mu.Lock()
		if d.size >= 0 {
			if i, ok := d.byAddr[p-HeaderSize]; ok && d.cells[i].used {
				n := int(d.cells[i].size) - HeaderSize
				d.mu.Unlock()
				return n
			}
		}
		d.mu.Unlock()
	}
	fault.Panicf("ReferentSize: %#x is not an allocated block", p)
	return 0
}

// lock validates h, locks its descriptor and returns it. An invalid or
// inactive handle is a contract violation.
func (a *Arena) lock(h Heap) *heapDesc {
	fault.Assert(h >= 0 && int(h) < len(a.heaps), "invalid heap handle %d", h)
	d := a.heaps[h]
	d.mu.Lock()
	if d.size < 0 {
		d.mu.Unlock()
		fault.Panicf("heap %d is not active", h)
	}
	return d
}

// lockAll takes every heap lock in handle order. Callers hold a.mu.
func (a *Arena) lockAll() func() {
	for _, d := range a.heaps {
		d.mu.Lock()
	}
	return func() {
		for i := len(a.heaps) - 1; i >= 0; i-- {
			a.heaps[i].mu.Unlock()
		}
	}
}

// overlapsLocked reports whether [s, e) intersects any cell of an active heap.
func (a *Arena) overlapsLocked(s, e Addr) bool {
	for _, d := range a.heaps {
		if d.size < 0 {
			continue
		}
		for _, head := range []int32{d.free, d.allocated} {
			for i := head; i != nilCell; i = d.cells[i].next {
				c := &d.cells[i]
				if c.addr < e && s < c.end() {
					return true
				}
			}
		}
	}
	return false
}

func (a *Arena) checkPointer(op string, p Addr) {
	fault.Assert(a.contains(p), "%s: pointer %#x outside arena [%#x, %#x)", op, p, a.lo, a.hi)
	fault.Assert(p%Alignment == 0, "%s: pointer %#x misaligned", op, p)
}

func (a *Arena) stamp(c *cell, h Heap) {
	off := int(c.addr - a.base)
	state := stateFree
	if c.used {
		state = stateUsed
	}
	buf.PutU32BE(a.mem, off+stampState, state)
	buf.PutU32BE(a.mem, off+stampSize, c.size)
	buf.PutU32BE(a.mem, off+stampHeap, uint32(h))
}

func (a *Arena) stampOK(c *cell, h Heap) bool {
	off := int(c.addr - a.base)
	want := stateFree
	if c.used {
		want = stateUsed
	}
	return buf.Has(a.mem, off, HeaderSize) &&
		buf.U32BE(a.mem, off+stampState) == want &&
		buf.U32BE(a.mem, off+stampSize) == c.size &&
		buf.U32BE(a.mem, off+stampHeap) == uint32(h)
}
