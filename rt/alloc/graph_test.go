package alloc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewSnapshot(t *testing.T) {
	a := newTestArena(t, 64<<10, 2)
	h := a.CreateHeap(a.Lo(), a.Lo()+8192)

	p1, err := a.AllocFromHeap(h, 100)
	require.NoError(t, err)
	p2, err := a.AllocFromHeap(h, 200)
	require.NoError(t, err)
	a.FreeToHeap(h, p1)

	v := a.View(h)
	assert.Equal(t, h, v.Heap)
	assert.Equal(t, int64(8192), v.Size)

	require.NotNil(t, v.Allocated)
	assert.Equal(t, p2-HeaderSize, v.Allocated.Addr)
	assert.True(t, v.Allocated.Used)
	assert.Nil(t, v.Allocated.Next)

	var free int64
	n := 0
	for c := v.Free; c != nil; c = c.Next {
		assert.False(t, c.Used)
		assert.Equal(t, c.Addr+Addr(c.Size), c.End)
		if c.Next != nil {
			assert.Less(t, c.End, c.Next.Addr, "sorted and not adjacent")
		}
		free += int64(c.Size)
		n++
	}
	assert.Equal(t, 2, n)
	assert.Equal(t, a.CheckHeap(h), free)

	a.FreeToHeap(h, p2)
	assert.NotNil(t, v.Allocated, "snapshot unaffected by later frees")
}

func TestGraphHeap(t *testing.T) {
	a := newTestArena(t, 64<<10, 1)
	h := a.CreateHeap(a.Lo(), a.Lo()+4096)
	_, err := a.AllocFromHeap(h, 64)
	require.NoError(t, err)

	var buf bytes.Buffer
	a.GraphHeap(&buf, h)
	assert.Contains(t, buf.String(), "digraph")
}
