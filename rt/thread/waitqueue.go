package thread

import (
	"context"
	"sync"
)

// waiter is one blocked caller in a WaitQueue.
type waiter struct {
	t      *Thread
	prio   int32
	ch     chan struct{}
	prev   *waiter
	next   *waiter
	queued bool
}

// WaitQueue is an ordered list of blocked threads. The zero value is an
// empty queue. All methods must be called with the owning primitive's lock
// held; Sleep releases that lock while blocked.
type WaitQueue struct {
	head *waiter
	tail *waiter
	n    int
}

// Len returns the number of blocked callers.
func (q *WaitQueue) Len() int { return q.n }

// Threads returns the blocked threads in wake order. Callers without a
// thread appear as nil.
func (q *WaitQueue) Threads() []*Thread {
	out := make([]*Thread, 0, q.n)
	for w := q.head; w != nil; w = w.next {
		out = append(out, w.t)
	}
	return out
}

// Sleep blocks the caller until a WakeOne or WakeAll selects it, or ctx is
// done. l is released while blocked and held again on return. A caller
// that is woken and canceled at the same time reports the wake.
func (q *WaitQueue) Sleep(ctx context.Context, l sync.Locker) error {
	w := &waiter{ch: make(chan struct{}, 1), prio: PriorityDefault}
	if t := Current(ctx); t != nil {
		w.t = t
		w.prio = t.priority.Load()
	}
	q.insert(w)
	l.Unlock()

	select {
	case <-w.ch:
		l.Lock()
		return nil
	case <-ctx.Done():
		l.Lock()
		if w.queued {
			q.remove(w)
			return ctx.Err()
		}
		return nil
	}
}

// WakeOne wakes the head of the queue and returns its thread. It returns
// nil when the queue is empty or the head has no thread.
func (q *WaitQueue) WakeOne() *Thread {
	w := q.head
	if w == nil {
		return nil
	}
	q.remove(w)
	w.ch <- struct{}{}
	return w.t
}

// WakeAll wakes every blocked caller and returns how many there were.
func (q *WaitQueue) WakeAll() int {
	n := 0
	for q.head != nil {
		q.WakeOne()
		n++
	}
	return n
}

// insert places w after every waiter of equal or higher priority.
func (q *WaitQueue) insert(w *waiter) {
	w.queued = true
	q.n++

	at := q.head
	for at != nil && at.prio <= w.prio {
		at = at.next
	}
	if at == nil {
		w.prev = q.tail
		if q.tail != nil {
			q.tail.next = w
		} else {
			q.head = w
		}
		q.tail = w
		return
	}
	w.next = at
	w.prev = at.prev
	if at.prev != nil {
		at.prev.next = w
	} else {
		q.head = w
	}
	at.prev = w
}

func (q *WaitQueue) remove(w *waiter) {
	if w.prev != nil {
		w.prev.next = w.next
	} else {
		q.head = w.next
	}
	if w.next != nil {
		w.next.prev = w.prev
	} else {
		q.tail = w.prev
	}
	w.prev, w.next = nil, nil
	w.queued = false
	q.n--
}
