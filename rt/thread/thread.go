package thread

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joshuapare/osrt/rt/fault"
)

// State is a thread's lifecycle state.
type State int

const (
	Ready State = iota + 1
	Running
	Moribund
)

func (s State) String() string {
	switch s {
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Moribund:
		return "MORIBUND"
	default:
		return "INVALID"
	}
}

const (
	PriorityHighest = 0
	PriorityDefault = 16
	PriorityLowest  = 31

	// NumSpecific is the number of thread-specific slots.
	NumSpecific = 2
)

// Entry is a thread's body. ctx identifies the thread; the return value is
// its exit value.
type Entry func(ctx context.Context, arg any) any

// Params describes a thread to Create.
type Params struct {
	Entry     Entry
	Arg       any
	StackSize int // recorded only; goroutine stacks grow on demand
	Priority  int
	Detached  bool

	// Context is the parent of the context handed to Entry. Default: context.Background().
	Context context.Context
}

// Owned is a resource that must be released when the thread holding it
// exits. osync.Mutex registers itself through Hold.
type Owned interface {
	ReleaseOwner(t *Thread)
}

var nextID atomic.Uint64

// Thread is a handle on one execution unit.
type Thread struct {
	id        uint64
	priority  atomic.Int32
	stackSize int

	mu       sync.Mutex
	state    State
	suspend  int
	started  bool
	detached bool
	joined   bool
	result   any
	joinQ    WaitQueue
	specific [NumSpecific]any
	held     []Owned

	entry  Entry
	arg    any
	parent context.Context
	done   chan struct{}
}

type ctxKey struct{}

// Create builds a suspended thread. Resume starts it.
func Create(p Params) *Thread {
	fault.Assert(p.Entry != nil, "thread.Create: nil entry")
	checkPriority(p.Priority)

	parent := p.Context
	if parent == nil {
		parent = context.Background()
	}
	t := &Thread{
		id:        nextID.Add(1),
		stackSize: p.StackSize,
		state:     Ready,
		suspend:   1,
		detached:  p.Detached,
		entry:     p.Entry,
		arg:       p.Arg,
		parent:    parent,
		done:      make(chan struct{}),
	}
	t.priority.Store(int32(p.Priority))
	return t
}

// Adopt registers the calling goroutine as a running thread and returns a
// context carrying it. Hosts call it once for their main goroutine.
func Adopt(ctx context.Context, priority int) (context.Context, *Thread) {
	checkPriority(priority)
	t := &Thread{
		id:      nextID.Add(1),
		state:   Running,
		started: true,
		parent:  ctx,
		done:    make(chan struct{}),
	}
	t.priority.Store(int32(priority))
	return WithThread(ctx, t), t
}

// WithThread returns a copy of ctx identifying t as the current thread.
func WithThread(ctx context.Context, t *Thread) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

// Current returns the thread carried by ctx, or nil.
func Current(ctx context.Context) *Thread {
	t, _ := ctx.Value(ctxKey{}).(*Thread)
	return t
}

func mustCurrent(ctx context.Context, op string) *Thread {
	t := Current(ctx)
	if t == nil {
		fault.Panicf("%s: no current thread in context", op)
	}
	return t
}

func checkPriority(p int) {
	fault.Assert(p >= PriorityHighest && p <= PriorityLowest, "invalid thread priority %d", p)
}

// ID returns the thread's unique identifier.
func (t *Thread) ID() uint64 { return t.id }

// StackSize returns the stack size requested at creation.
func (t *Thread) StackSize() int { return t.stackSize }

// Priority returns the thread's priority.
func (t *Thread) Priority() int { return int(t.priority.Load()) }

// SetPriority changes the priority used for future waits and returns the old one.
func (t *Thread) SetPriority(p int) int {
	checkPriority(p)
	return int(t.priority.Swap(int32(p)))
}

// State returns the lifecycle state.
func (t *Thread) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// SuspendCount returns the current suspend count.
func (t *Thread) SuspendCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.suspend
}

// IsSuspended reports whether the suspend count is non-zero.
func (t *Thread) IsSuspended() bool { return t.SuspendCount() > 0 }

// Done is closed when the thread becomes Moribund.
func (t *Thread) Done() <-chan struct{} { return t.done }

// Resume decrements the suspend count and returns its previous value. The
// first time the count reaches zero the thread's goroutine starts.
func (t *Thread) Resume() int {
	t.mu.Lock()
	prev := t.suspend
	if t.suspend > 0 {
		t.suspend--
	}
	start := t.suspend == 0 && !t.started && t.state == Ready
	if start {
		t.started = true
		t.state = Running
	}
	t.mu.Unlock()

	if start {
		go t.run()
	}
	return prev
}

// Suspend increments the suspend count and returns its previous value. It
// keeps a thread that has not started from starting; a running thread is
// not paused.
func (t *Thread) Suspend() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev := t.suspend
	if t.state != Moribund {
		t.suspend++
	}
	return prev
}

func (t *Thread) run() {
	var v any
	defer func() { t.exit(v) }()
	v = t.entry(WithThread(t.parent, t), t.arg)
}

// Exit ends the calling thread with exit value v. It does not return.
func Exit(ctx context.Context, v any) {
	mustCurrent(ctx, "thread.Exit").exit(v)
	runtime.Goexit()
}

func (t *Thread) exit(v any) {
	t.mu.Lock()
	if t.state == Moribund {
		t.mu.Unlock()
		return
	}
	held := t.held
	t.held = nil
	t.mu.Unlock()

	for _, o := range held {
		o.ReleaseOwner(t)
	}

	t.mu.Lock()
	t.state = Moribund
	if !t.detached {
		t.result = v
	}
	t.joinQ.WakeAll()
	t.mu.Unlock()
	close(t.done)
}

// Join blocks until t is Moribund and returns its exit value. The value is
// consumed: later joins, and joins on detached threads, fail with
// ErrNotJoinable. Joining the calling thread is a contract violation.
func Join(ctx context.Context, t *Thread) (any, error) {
	fault.Assert(Current(ctx) != t, "thread.Join: thread %d joining itself", t.id)

	t.mu.Lock()
	defer t.mu.Unlock()
	for {
		if t.detached || t.joined {
			return nil, ErrNotJoinable
		}
		if t.state == Moribund {
			t.joined = true
			v := t.result
			t.result = nil
			return v, nil
		}
		if err := t.joinQ.Sleep(ctx, &t.mu); err != nil {
			return nil, err
		}
	}
}

// Detach marks t as not joinable. Pending joins fail with ErrNotJoinable.
func (t *Thread) Detach() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.detached = true
	t.result = nil
	t.joinQ.WakeAll()
}

// Hold records that t owns o until Drop or exit.
func (t *Thread) Hold(o Owned) {
	t.mu.Lock()
	t.held = append(t.held, o)
	t.mu.Unlock()
}

// Drop forgets o.
func (t *Thread) Drop(o Owned) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, h := range t.held {
		if h == o {
			t.held = append(t.held[:i], t.held[i+1:]...)
			return
		}
	}
}

// SetSpecific stores v in the calling thread's slot and returns the old value.
func SetSpecific(ctx context.Context, slot int, v any) any {
	t := mustCurrent(ctx, "thread.SetSpecific")
	fault.Assert(slot >= 0 && slot < NumSpecific, "thread.SetSpecific: invalid slot %d", slot)
	t.mu.Lock()
	defer t.mu.Unlock()
	old := t.specific[slot]
	t.specific[slot] = v
	return old
}

// Specific returns the calling thread's slot value.
func Specific(ctx context.Context, slot int) any {
	t := mustCurrent(ctx, "thread.Specific")
	fault.Assert(slot >= 0 && slot < NumSpecific, "thread.Specific: invalid slot %d", slot)
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.specific[slot]
}

// Sleep blocks the calling goroutine for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	tm := time.NewTimer(d)
	defer tm.Stop()
	select {
	case <-tm.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Yield lets other goroutines run.
func Yield() { runtime.Gosched() }
