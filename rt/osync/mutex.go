package osync

import (
	"context"
	"sync"

	"github.com/joshuapare/osrt/rt/fault"
	"github.com/joshuapare/osrt/rt/thread"
)

// Mutex is a recursive mutual-exclusion lock owned by a thread. The zero
// value is unlocked. A thread that exits while owning a Mutex releases it.
type Mutex struct {
	mu    sync.Mutex
	owner *thread.Thread
	count int
	q     thread.WaitQueue
}

func current(ctx context.Context, op string) *thread.Thread {
	t := thread.Current(ctx)
	if t == nil {
		fault.Panicf("%s: no current thread in context", op)
	}
	return t
}

// Lock acquires m, blocking while another thread owns it. The owner may
// lock again; each Lock needs a matching Unlock.
func (m *Mutex) Lock(ctx context.Context) error {
	t := current(ctx, "Mutex.Lock")

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.owner == t {
		m.count++
		return nil
	}
	for m.owner != nil {
		if err := m.q.Sleep(ctx, &m.mu); err != nil {
			return err
		}
		if m.owner == t {
			// handed over by Unlock
			return nil
		}
	}
	m.take(t)
	return nil
}

// TryLock acquires m if it is free or already owned by the caller.
func (m *Mutex) TryLock(ctx context.Context) bool {
	t := current(ctx, "Mutex.TryLock")

	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.owner {
	case nil:
		m.take(t)
		return true
	case t:
		m.count++
		return true
	default:
		return false
	}
}

// Unlock releases one level of ownership. When the count reaches zero the
// mutex passes to the first waiting thread. Unlocking a mutex the caller
// does not own is a contract violation.
func (m *Mutex) Unlock(ctx context.Context) {
	t := current(ctx, "Mutex.Unlock")

	m.mu.Lock()
	defer m.mu.Unlock()

	fault.Assert(m.owner == t, "Mutex.Unlock: thread %d does not own the mutex", t.ID())
	m.count--
	if m.count == 0 {
		t.Drop(m)
		m.handoff()
	}
}

// Owner returns the owning thread, or nil.
func (m *Mutex) Owner() *thread.Thread {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.owner
}

// ReleaseOwner fully releases m if t owns it. It runs when t exits.
func (m *Mutex) ReleaseOwner(t *thread.Thread) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owner != t {
		return
	}
	m.count = 0
	m.handoff()
}

func (m *Mutex) take(t *thread.Thread) {
	m.owner = t
	m.count = 1
	t.Hold(m)
}

// handoff gives m to the head of the wait queue, or leaves it free.
func (m *Mutex) handoff() {
	m.owner = nil
	if next := m.q.WakeOne(); next != nil {
		m.take(next)
	}
}

// unlockAll releases every level held by t and returns the count.
func (m *Mutex) unlockAll(t *thread.Thread) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	fault.Assert(m.owner == t, "Cond.Wait: thread %d does not own the mutex", t.ID())
	n := m.count
	t.Drop(m)
	m.count = 0
	m.handoff()
	return n
}

func (m *Mutex) setCount(n int) {
	m.mu.Lock()
	m.count = n
	m.mu.Unlock()
}
