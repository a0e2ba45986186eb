package osync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/osrt/rt/thread"
)

func TestMessageQueueFIFOAndJam(t *testing.T) {
	ctx := context.Background()
	q := NewMessageQueue(4)
	assert.Equal(t, 4, q.Cap())

	require.NoError(t, q.Send(ctx, "a"))
	require.NoError(t, q.Send(ctx, "b"))
	require.NoError(t, q.Jam(ctx, "urgent"))
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"urgent", "a", "b"} {
		got, err := q.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, ok := q.TryReceive()
	assert.False(t, ok)
}

func TestMessageQueueFull(t *testing.T) {
	q := NewMessageQueue(2)
	assert.True(t, q.TrySend(1))
	assert.True(t, q.TryJam(0))
	assert.False(t, q.TrySend(2))
	assert.False(t, q.TryJam(-1))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Send(ctx, 2), context.DeadlineExceeded)

	v, ok := q.TryReceive()
	require.True(t, ok)
	assert.Equal(t, 0, v)
}

func TestMessageQueueWrapAround(t *testing.T) {
	q := NewMessageQueue(3)
	next := 0
	for round := range 10 {
		for range 2 {
			require.True(t, q.TrySend(next))
			next++
		}
		for i := range 2 {
			v, ok := q.TryReceive()
			require.True(t, ok)
			assert.Equal(t, round*2+i, v)
		}
	}
}

func TestMessageQueueBlockingSendReceive(t *testing.T) {
	q := NewMessageQueue(1)
	require.True(t, q.TrySend("first"))

	sent := make(chan struct{})
	sender := spawn(t, thread.PriorityDefault, func(ctx context.Context) any {
		require.NoError(t, q.Send(ctx, "second"))
		close(sent)
		return nil
	})
	assert.True(t, blocked(sent))

	ctx := context.Background()
	v, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", v)
	<-sent
	join(t, sender)

	got := make(chan any, 1)
	receiver := spawn(t, thread.PriorityDefault, func(ctx context.Context) any {
		v, err := q.Receive(ctx)
		require.NoError(t, err)
		v2, err := q.Receive(ctx)
		require.NoError(t, err)
		got <- v2
		return v
	})
	assert.True(t, blocked(got))
	require.NoError(t, q.Send(ctx, "third"))
	assert.Equal(t, "third", <-got)
	assert.Equal(t, "second", join(t, receiver))
}

func TestNewMessageQueueInvalid(t *testing.T) {
	require.Panics(t, func() { NewMessageQueue(0) })
}
