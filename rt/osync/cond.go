package osync

import (
	"context"
	"sync"

	"github.com/joshuapare/osrt/rt/thread"
)

// Cond is a condition variable used with a Mutex.
type Cond struct {
	mu sync.Mutex
	q  thread.WaitQueue
}

// Wait releases m, which the caller must own, blocks until Signal or
// Broadcast, and reacquires m at its previous recursion depth before
// returning. m is reacquired even when ctx is canceled.
func (c *Cond) Wait(ctx context.Context, m *Mutex) error {
	t := current(ctx, "Cond.Wait")

	c.mu.Lock()
	n := m.unlockAll(t)
	err := c.q.Sleep(ctx, &c.mu)
	c.mu.Unlock()

	if lerr := m.Lock(context.WithoutCancel(ctx)); lerr != nil {
		return lerr
	}
	m.setCount(n)
	return err
}

// Signal wakes one waiter.
func (c *Cond) Signal() {
	c.mu.Lock()
	c.q.WakeOne()
	c.mu.Unlock()
}

// Broadcast wakes every waiter.
func (c *Cond) Broadcast() {
	c.mu.Lock()
	c.q.WakeAll()
	c.mu.Unlock()
}
