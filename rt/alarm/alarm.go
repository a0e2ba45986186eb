package alarm

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/joshuapare/osrt/rt/clock"
)

// Handler runs on the dispatcher thread when a is due. ctx identifies the
// dispatcher thread and is canceled when the scheduler closes.
type Handler func(ctx context.Context, a *Alarm)

// Alarm is a caller-owned schedule entry. The zero value is an idle alarm.
// It must not be copied once it has been set.
type Alarm struct {
	mu       sync.Mutex
	tag      uint32
	userData any

	// scheduler the alarm was last set on; the fields below are guarded
	// by its lock
	sched   atomic.Pointer[Scheduler]
	handler Handler
	fire    clock.Ticks
	start   clock.Ticks
	period  clock.Ticks
	seq     uint64
	index   int
	queued  bool
}

// Tag returns the alarm's tag. 0 means untagged.
func (a *Alarm) Tag() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tag
}

// SetTag sets the tag CancelAlarms matches against.
func (a *Alarm) SetTag(tag uint32) {
	a.mu.Lock()
	a.tag = tag
	a.mu.Unlock()
}

// UserData returns the value stored with SetUserData.
func (a *Alarm) UserData() any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.userData
}

// SetUserData attaches an arbitrary value to the alarm.
func (a *Alarm) SetUserData(v any) {
	a.mu.Lock()
	a.userData = v
	a.mu.Unlock()
}

// Fire returns the absolute time the alarm is, or was last, due.
func (a *Alarm) Fire() clock.Ticks {
	defer a.lockSched()()
	return a.fire
}

// Period returns the repeat interval, or 0 for a one-shot alarm.
func (a *Alarm) Period() clock.Ticks {
	defer a.lockSched()()
	return a.period
}

// Queued reports whether the alarm is waiting to fire.
func (a *Alarm) Queued() bool {
	defer a.lockSched()()
	return a.queued
}

func (a *Alarm) lockSched() func() {
	s := a.sched.Load()
	if s == nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// nextFire returns the first time at or after start, on the grid
// start + k*period, that is strictly later than now.
func nextFire(start, period, now clock.Ticks) clock.Ticks {
	if start > now {
		return start
	}
	return start + period*((now-start)/period+1)
}
