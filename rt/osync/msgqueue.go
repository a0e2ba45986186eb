package osync

import (
	"context"
	"sync"

	"github.com/joshuapare/osrt/rt/fault"
	"github.com/joshuapare/osrt/rt/thread"
)

// MessageQueue is a fixed-capacity circular buffer of opaque values with
// separate wait queues for blocked senders and receivers.
type MessageQueue struct {
	mu    sync.Mutex
	msgs  []any
	head  int
	count int

	sendQ thread.WaitQueue
	recvQ thread.WaitQueue
}

// NewMessageQueue returns an empty queue holding up to capacity messages.
func NewMessageQueue(capacity int) *MessageQueue {
	fault.Assert(capacity > 0, "NewMessageQueue: invalid capacity %d", capacity)
	return &MessageQueue{msgs: make([]any, capacity)}
}

// Cap returns the capacity.
func (q *MessageQueue) Cap() int { return len(q.msgs) }

// Len returns the number of queued messages.
func (q *MessageQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Send appends msg at the tail, blocking while the queue is full.
func (q *MessageQueue) Send(ctx context.Context, msg any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.waitSpace(ctx); err != nil {
		return err
	}
	q.pushTail(msg)
	return nil
}

// TrySend appends msg at the tail unless the queue is full.
func (q *MessageQueue) TrySend(msg any) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == len(q.msgs) {
		return false
	}
	q.pushTail(msg)
	return true
}

// Jam inserts msg at the head so it is received before anything already
// queued, blocking while the queue is full.
func (q *MessageQueue) Jam(ctx context.Context, msg any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.waitSpace(ctx); err != nil {
		return err
	}
	q.pushHead(msg)
	return nil
}

// TryJam inserts msg at the head unless the queue is full.
func (q *MessageQueue) TryJam(msg any) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == len(q.msgs) {
		return false
	}
	q.pushHead(msg)
	return true
}

// Receive removes and returns the head message, blocking while the queue is empty.
func (q *MessageQueue) Receive(ctx context.Context) (any, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.count == 0 {
		if err := q.recvQ.Sleep(ctx, &q.mu); err != nil {
			return nil, err
		}
	}
	return q.pop(), nil
}

// TryReceive removes and returns the head message unless the queue is empty.
func (q *MessageQueue) TryReceive() (any, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return nil, false
	}
	return q.pop(), true
}

func (q *MessageQueue) waitSpace(ctx context.Context) error {
	for q.count == len(q.msgs) {
		if err := q.sendQ.Sleep(ctx, &q.mu); err != nil {
			return err
		}
	}
	return nil
}

func (q *MessageQueue) pushTail(msg any) {
	q.msgs[(q.head+q.count)%len(q.msgs)] = msg
	q.count++
	q.recvQ.WakeOne()
}

func (q *MessageQueue) pushHead(msg any) {
	q.head = (q.head + len(q.msgs) - 1) % len(q.msgs)
	q.msgs[q.head] = msg
	q.count++
	q.recvQ.WakeOne()
}

func (q *MessageQueue) pop() any {
	msg := q.msgs[q.head]
	q.msgs[q.head] = nil
	q.head = (q.head + 1) % len(q.msgs)
	q.count--
	q.sendQ.WakeOne()
	return msg
}
