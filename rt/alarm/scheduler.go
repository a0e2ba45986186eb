package alarm

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joshuapare/osrt/rt/clock"
	"github.com/joshuapare/osrt/rt/fault"
	"github.com/joshuapare/osrt/rt/logger"
	"github.com/joshuapare/osrt/rt/thread"
)

// Config configures a Scheduler.
type Config struct {
	// Clock is the tick source. nil selects a host clock at clock.DefaultRate.
	Clock clock.Source

	// Priority of the dispatcher thread. 0 selects thread.PriorityHighest.
	Priority int

	// Logger receives dispatcher lifecycle lines. nil uses logger.L.
	Logger *slog.Logger
}

// Scheduler is an alarm queue serviced by one dispatcher thread.
type Scheduler struct {
	clk clock.Source
	log *slog.Logger

	mu     sync.Mutex
	q      queue
	seq    uint64
	closed bool
	kick   chan struct{}

	cancel     context.CancelFunc
	dispatcher *thread.Thread
}

// New starts a scheduler.
func New(cfg Config) *Scheduler {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.NewHost(clock.DefaultRate)
	}
	s := &Scheduler{
		clk:  clk,
		log:  logger.Component(cfg.Logger, "alarm"),
		kick: make(chan struct{}, 1),
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.dispatcher = thread.Create(thread.Params{
		Entry:    s.run,
		Priority: cfg.Priority,
		Context:  ctx,
	})
	s.dispatcher.Resume()
	s.log.Info("alarm dispatcher started", "rate", int64(clk.Rate()))
	return s
}

// Clock returns the scheduler's tick source.
func (s *Scheduler) Clock() clock.Source { return s.clk }

// Close stops the dispatcher and waits for a running handler to return.
// Queued alarms stay queued but never fire.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	<-s.dispatcher.Done()
	s.log.Info("alarm dispatcher stopped")
}

// Len returns the number of queued alarms.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.q)
}

// SetAlarm queues a to fire once, ticks from now. An alarm that is already
// queued is rescheduled.
func (s *Scheduler) SetAlarm(a *Alarm, ticks clock.Ticks, h Handler) {
	s.claim(a)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insert(a, s.clk.Now()+ticks, 0, 0, h)
}

// SetAbsAlarm queues a to fire once at when.
func (s *Scheduler) SetAbsAlarm(a *Alarm, when clock.Ticks, h Handler) {
	s.claim(a)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insert(a, when, 0, 0, h)
}

// SetPeriodicAlarm queues a to fire at start and every period ticks after
// it until canceled. If start has passed, the first fire is the next point
// on that grid.
func (s *Scheduler) SetPeriodicAlarm(a *Alarm, start, period clock.Ticks, h Handler) {
	fault.Assert(period > 0, "SetPeriodicAlarm: period must be positive, got %d", period)
	s.claim(a)

	s.mu.Lock()
	defer s.mu.Unlock()
	fire := start
	if now := s.clk.Now(); start < now {
		fire = nextFire(start, period, now)
	}
	s.insert(a, fire, start, period, h)
}

// CancelAlarm removes a from the queue. It does nothing if a is not queued.
func (s *Scheduler) CancelAlarm(a *Alarm) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.sched.Load() == s && a.queued {
		heap.Remove(&s.q, a.index)
		s.wake()
	}
}

// CancelAlarms removes every queued alarm tagged tag and returns how many
// were removed. Tag 0 is reserved and removes nothing.
func (s *Scheduler) CancelAlarms(tag uint32) int {
	if tag == 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.q[:0]
	n := 0
	for _, a := range s.q {
		if a.Tag() == tag {
			a.index = -1
			a.queued = false
			n++
			continue
		}
		kept = append(kept, a)
	}
	for i := len(kept); i < len(s.q); i++ {
		s.q[i] = nil
	}
	s.q = kept
	for i, a := range s.q {
		a.index = i
	}
	heap.Init(&s.q)
	if n > 0 {
		s.wake()
	}
	return n
}

// Check walks the queue and returns ErrCorrupt if any alarm is out of
// order, mis-indexed, or owned by another scheduler.
func (s *Scheduler) Check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.q {
		switch {
		case a.index != i:
			return fmt.Errorf("%w: alarm at %d has index %d", ErrCorrupt, i, a.index)
		case !a.queued:
			return fmt.Errorf("%w: alarm at %d not marked queued", ErrCorrupt, i)
		case a.sched.Load() != s:
			return fmt.Errorf("%w: alarm at %d belongs to another scheduler", ErrCorrupt, i)
		case a.handler == nil:
			return fmt.Errorf("%w: alarm at %d has no handler", ErrCorrupt, i)
		}
		if i > 0 && s.q.Less(i, (i-1)/2) {
			return fmt.Errorf("%w: alarm at %d fires before its parent", ErrCorrupt, i)
		}
	}
	return nil
}

// claim cancels a on any other scheduler it was last set on.
func (s *Scheduler) claim(a *Alarm) {
	if prev := a.sched.Load(); prev != nil && prev != s {
		prev.CancelAlarm(a)
	}
}

// insert (re)queues a. Callers hold s.mu.
func (s *Scheduler) insert(a *Alarm, fire, start, period clock.Ticks, h Handler) {
	fault.Assert(h != nil, "alarm: nil handler")
	a.sched.Store(s)

	a.handler = h
	a.fire = fire
	a.start = start
	a.period = period
	s.seq++
	a.seq = s.seq
	if a.queued {
		heap.Fix(&s.q, a.index)
	} else {
		heap.Push(&s.q, a)
	}
	s.wake()
}

// wake nudges the dispatcher to recompute its deadline.
func (s *Scheduler) wake() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// due pops the head alarm if it is due, re-queuing periodic alarms before
// their handler runs. Otherwise it returns how long to sleep, or -1 when the
// queue is empty. Callers hold s.mu.
func (s *Scheduler) due() (*Alarm, Handler, time.Duration) {
	if len(s.q) == 0 {
		return nil, nil, -1
	}
	now := s.clk.Now()
	a := s.q[0]
	if a.fire > now {
		return nil, nil, s.clk.Rate().ToDuration(a.fire - now)
	}
	h := a.handler
	if a.period > 0 {
		a.fire = nextFire(a.start, a.period, now)
		s.seq++
		a.seq = s.seq
		heap.Fix(&s.q, 0)
	} else {
		heap.Pop(&s.q)
	}
	return a, h, 0
}

func (s *Scheduler) run(ctx context.Context, _ any) any {
	var changed <-chan struct{}
	notifier, _ := s.clk.(clock.Notifier)
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		if notifier != nil {
			changed = notifier.Changed()
		}

		s.mu.Lock()
		a, h, wait := s.due()
		s.mu.Unlock()

		if a != nil {
			if ctx.Err() != nil {
				return nil
			}
			h(ctx, a)
			continue
		}

		var fire <-chan time.Time
		if wait >= 0 {
			timer.Reset(wait)
			fire = timer.C
		}
		select {
		case <-ctx.Done():
			return nil
		case <-s.kick:
		case <-changed:
		case <-fire:
		}
		timer.Stop()
	}
}
