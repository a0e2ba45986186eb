package vfs

import (
	"context"
	"fmt"
)

// Priority orders waiting command blocks. Lower values run first.
type Priority int

const (
	PriorityHighest Priority = iota
	PriorityHigh
	PriorityMedium
	PriorityLowest

	numPriorities = int(PriorityLowest) + 1

	// PriorityDefault is used by the calls that take no priority.
	PriorityDefault = PriorityMedium
)

// State is the progress of a file's command block.
type State int

const (
	StateIdle State = iota
	StateWaiting
	StateBusy
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaiting:
		return "waiting"
	case StateBusy:
		return "busy"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Callback receives the outcome of an accepted asynchronous read. It runs
// exactly once, on a worker thread identified by ctx.
type Callback func(ctx context.Context, n int, err error)

// request is one read carried by a command block.
type request struct {
	buf      []byte
	off      int64
	cb       Callback
	canceled bool
	done     chan struct{}
}

// block is a pooled command block. Every field is guarded by FS.mu.
type block struct {
	id    int
	file  *File
	state State
	prio  Priority
	req   *request
}

// acquire takes a free block for f.
func (v *FS) acquire(f *File) (*block, error) {
	n := len(v.free)
	if n == 0 {
		v.log.Debug("command block pool exhausted", "size", len(v.blocks))
		return nil, ErrPoolExhausted
	}
	b := &v.blocks[v.free[n-1]]
	v.free = v.free[:n-1]
	b.file = f
	b.state = StateIdle
	return b, nil
}

func (v *FS) release(b *block) {
	b.file = nil
	b.req = nil
	b.state = StateIdle
	v.free = append(v.free, b.id)
}

// enqueue appends b to its priority bucket.
func (v *FS) enqueue(b *block) {
	b.state = StateWaiting
	v.queue[b.prio] = append(v.queue[b.prio], b)
}

// dequeue removes the first block of the highest non-empty bucket, marks
// it busy and returns it, or nil.
func (v *FS) dequeue() *block {
	for p := range v.queue {
		if q := v.queue[p]; len(q) > 0 {
			b := q[0]
			q[0] = nil
			v.queue[p] = q[1:]
			b.state = StateBusy
			return b
		}
	}
	return nil
}

// unqueue removes b from its bucket and reports whether it was there.
func (v *FS) unqueue(b *block) bool {
	q := v.queue[b.prio]
	for i, x := range q {
		if x == b {
			copy(q[i:], q[i+1:])
			q[len(q)-1] = nil
			v.queue[b.prio] = q[:len(q)-1]
			return true
		}
	}
	return false
}

// waiting returns the number of queued blocks.
func (v *FS) waiting() int {
	n := 0
	for _, q := range v.queue {
		n += len(q)
	}
	return n
}
