package alloc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/osrt/internal/align"
	"github.com/joshuapare/osrt/rt/logger"
)

const testBase Addr = 0x80000000

// descArea is the aligned size of the descriptor table for maxHeaps heaps.
func descArea(maxHeaps int) int {
	return int(align.Up(int64(maxHeaps * DescriptorSize)))
}

// newTestArena returns an arena whose usable range starts right after the
// descriptor table and is exactly usable bytes long. usable must be aligned.
func newTestArena(t testing.TB, usable int, maxHeaps int) *Arena {
	t.Helper()
	a := NewArena(testBase, make([]byte, descArea(maxHeaps)+usable), maxHeaps, nil)
	require.Equal(t, testBase+Addr(descArea(maxHeaps)), a.Lo())
	require.Equal(t, usable, int(a.Hi()-a.Lo()))
	return a
}

// newLoggedArena is newTestArena with log output captured.
func newLoggedArena(t testing.TB, usable int, maxHeaps int) (*Arena, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	a := NewArena(testBase, make([]byte, descArea(maxHeaps)+usable), maxHeaps, &Config{Logger: logger.New(&out, -8)})
	return a, &out
}

// assertInvariants checks that h passes its integrity walk and that free
// and allocated bytes account for the whole heap.
func assertInvariants(t testing.TB, a *Arena, h Heap) HeapStats {
	t.Helper()
	free := a.CheckHeap(h)
	require.NotEqual(t, int64(-1), free, "heap %d failed integrity check", h)
	st := a.Stats(h)
	require.Equal(t, st.Free, free)
	require.Equal(t, st.Size, st.Free+st.Allocated)
	return st
}

// cellSize is the total cell size AllocFromHeap uses for a request.
func cellSize(size int) int {
	return (size + HeaderSize + Alignment - 1) &^ (Alignment - 1)
}
