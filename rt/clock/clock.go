// Package clock provides the monotonic tick source consumed by the alarm
// scheduler, and the fixed conversions between ticks and wall time.
package clock

import (
	"sync"
	"time"
)

// Ticks counts timer ticks since an arbitrary epoch.
type Ticks int64

// Rate is a tick frequency in ticks per second.
type Rate int64

// DefaultRate is the console timer frequency: a 162 MHz bus clock divided by four.
const DefaultRate Rate = 40_500_000

// Seconds converts s seconds to ticks.
func (r Rate) Seconds(s int64) Ticks { return Ticks(s * int64(r)) }

// Milliseconds converts ms milliseconds to ticks.
func (r Rate) Milliseconds(ms int64) Ticks { return Ticks(ms * (int64(r) / 1000)) }

// Microseconds converts us microseconds to ticks.
func (r Rate) Microseconds(us int64) Ticks { return Ticks(us * (int64(r) / 8) / 125000) }

// Nanoseconds converts ns nanoseconds to ticks.
func (r Rate) Nanoseconds(ns int64) Ticks { return Ticks(ns * (int64(r) / 8) / 125000000) }

// ToMilliseconds converts t to whole milliseconds.
func (r Rate) ToMilliseconds(t Ticks) int64 { return int64(t) / (int64(r) / 1000) }

// ToMicroseconds converts t to whole microseconds.
func (r Rate) ToMicroseconds(t Ticks) int64 { return int64(t) * 8 / (int64(r) / 125000) }

// ToNanoseconds converts t to nanoseconds.
func (r Rate) ToNanoseconds(t Ticks) int64 { return int64(t) * 8000 / (int64(r) / 125000) }

// ToDuration converts t to a time.Duration.
func (r Rate) ToDuration(t Ticks) time.Duration {
	sec := int64(t) / int64(r)
	rem := int64(t) % int64(r)
	return time.Duration(sec)*time.Second + time.Duration(rem*int64(time.Second)/int64(r))
}

// FromDuration converts d to ticks.
func (r Rate) FromDuration(d time.Duration) Ticks {
	sec := int64(d / time.Second)
	rem := int64(d % time.Second)
	return Ticks(sec*int64(r) + rem*int64(r)/int64(time.Second))
}

// Source is a monotonic tick source with a fixed rate.
type Source interface {
	Now() Ticks
	Rate() Rate
}

// Host is a Source backed by the host's monotonic clock.
type Host struct {
	rate  Rate
	start time.Time
}

// NewHost returns a host-backed source starting at tick 0. A rate <= 0 selects DefaultRate.
func NewHost(rate Rate) *Host {
	if rate <= 0 {
		rate = DefaultRate
	}
	return &Host{rate: rate, start: time.Now()}
}

// Now returns the ticks elapsed since the source was created.
func (h *Host) Now() Ticks { return h.rate.FromDuration(time.Since(h.start)) }

// Rate returns the tick frequency.
func (h *Host) Rate() Rate { return h.rate }

// Notifier is implemented by sources whose time can jump. Changed returns a
// channel that is closed the next time the source moves.
type Notifier interface {
	Changed() <-chan struct{}
}

// Manual is a Source that only moves when told to.
type Manual struct {
	mu      sync.Mutex
	rate    Rate
	now     Ticks
	changed chan struct{}
}

// NewManual returns a manual source at tick 0.
func NewManual(rate Rate) *Manual {
	if rate <= 0 {
		rate = DefaultRate
	}
	return &Manual{rate: rate}
}

// Now returns the current tick.
func (m *Manual) Now() Ticks {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Rate returns the tick frequency.
func (m *Manual) Rate() Rate { return m.rate }

// Changed implements Notifier.
func (m *Manual) Changed() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.changed == nil {
		m.changed = make(chan struct{})
	}
	return m.changed
}

// Set moves the source to t.
func (m *Manual) Set(t Ticks) {
	m.mu.Lock()
	m.now = t
	m.notify()
	m.mu.Unlock()
}

// Advance moves the source forward by d ticks and returns the new time.
func (m *Manual) Advance(d Ticks) Ticks {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now += d
	m.notify()
	return m.now
}

func (m *Manual) notify() {
	if m.changed != nil {
		close(m.changed)
		m.changed = nil
	}
}
