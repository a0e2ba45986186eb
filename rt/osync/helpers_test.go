package osync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/osrt/rt/thread"
)

// spawn runs fn on a new resumed thread and returns it.
func spawn(t *testing.T, prio int, fn func(ctx context.Context) any) *thread.Thread {
	t.Helper()
	th := thread.Create(thread.Params{
		Entry:    func(ctx context.Context, _ any) any { return fn(ctx) },
		Priority: prio,
	})
	th.Resume()
	return th
}

func join(t *testing.T, th *thread.Thread) any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := thread.Join(ctx, th)
	require.NoError(t, err)
	return v
}

func mainCtx() context.Context {
	ctx, _ := thread.Adopt(context.Background(), thread.PriorityDefault)
	return ctx
}

// blocked reports whether ch stays empty for a short while.
func blocked[T any](ch <-chan T) bool {
	select {
	case <-ch:
		return false
	case <-time.After(20 * time.Millisecond):
		return true
	}
}
