package osync

import (
	"context"
	"sync"

	"github.com/joshuapare/osrt/rt/fault"
	"github.com/joshuapare/osrt/rt/thread"
)

// Semaphore is a counting semaphore. Its count is never negative.
type Semaphore struct {
	mu    sync.Mutex
	count int
	q     thread.WaitQueue
}

// NewSemaphore returns a semaphore holding n units.
func NewSemaphore(n int) *Semaphore {
	fault.Assert(n >= 0, "NewSemaphore: negative count %d", n)
	return &Semaphore{count: n}
}

// Wait blocks until a unit is available and takes it.
func (s *Semaphore) Wait(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.count <= 0 {
		if err := s.q.Sleep(ctx, &s.mu); err != nil {
			return err
		}
	}
	s.count--
	return nil
}

// TryWait takes a unit if one is available.
func (s *Semaphore) TryWait() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count <= 0 {
		return false
	}
	s.count--
	return true
}

// Signal adds a unit, wakes one waiter and returns the previous count.
func (s *Semaphore) Signal() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.count
	s.count++
	s.q.WakeOne()
	return prev
}

// Count returns the available units.
func (s *Semaphore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
