package alloc

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRandomAllocFreeInvariants performs random alloc/free and validates
// accounting and coalescing after every step.
func TestRandomAllocFreeInvariants(t *testing.T) {
	a := newTestArena(t, 256<<10, 1)
	h := a.CreateHeap(a.Lo(), a.Hi())

	rng := rand.New(rand.NewSource(42)) // Fixed seed for reproducibility
	live := make(map[Addr]int)

	for i := range 2000 {
		if rng.Intn(3) != 0 || len(live) == 0 {
			size := 1 + rng.Intn(8192)
			p, err := a.AllocFromHeap(h, size)
			if err != nil {
				require.ErrorIs(t, err, ErrNoSpace, "step %d", i)
				continue
			}
			_, dup := live[p]
			require.False(t, dup, "step %d: address %#x handed out twice", i, p)
			require.GreaterOrEqual(t, a.ReferentSize(p), size)
			live[p] = size
		} else {
			for p, size := range live {
				a.FreeToHeap(h, p)
				delete(live, p)

				// an equal request right after a free always fits
				q, err := a.AllocFromHeap(h, size)
				require.NoError(t, err, "step %d: realloc after free", i)
				live[q] = size
				a.FreeToHeap(h, q)
				delete(live, q)
				break
			}
		}

		st := assertInvariants(t, a, h)
		require.Equal(t, len(live), st.AllocatedCells, "step %d", i)
	}

	for p := range live {
		a.FreeToHeap(h, p)
	}
	st := assertInvariants(t, a, h)
	require.Equal(t, 1, st.FreeCells, "everything coalesces back")
	require.Equal(t, int64(256<<10), st.Free)
}
