package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRateConversions(t *testing.T) {
	r := DefaultRate
	assert.Equal(t, Ticks(40_500_000), r.Seconds(1))
	assert.Equal(t, Ticks(40_500), r.Milliseconds(1))
	assert.Equal(t, Ticks(40), r.Microseconds(1))
	assert.Equal(t, Ticks(40_500), r.Microseconds(1000))
	assert.Equal(t, Ticks(40_500), r.Nanoseconds(1_000_000))

	assert.Equal(t, int64(1000), r.ToMilliseconds(r.Seconds(1)))
	assert.Equal(t, int64(1_000_000), r.ToMicroseconds(r.Seconds(1)))
	assert.Equal(t, int64(1_000_000_000), r.ToNanoseconds(r.Seconds(1)))
}

func TestDurationRoundTrip(t *testing.T) {
	r := DefaultRate
	for _, d := range []time.Duration{0, time.Millisecond, 1500 * time.Millisecond, 3 * time.Hour} {
		assert.Equal(t, d, r.ToDuration(r.FromDuration(d)), "%v", d)
	}
	assert.Equal(t, time.Second, r.ToDuration(r.Seconds(1)))
}

func TestHostIsMonotonic(t *testing.T) {
	h := NewHost(0)
	assert.Equal(t, DefaultRate, h.Rate())
	a := h.Now()
	time.Sleep(2 * time.Millisecond)
	b := h.Now()
	assert.Greater(t, b, a)
	assert.GreaterOrEqual(t, int64(b-a), int64(h.Rate().Milliseconds(2)))
}

func TestManual(t *testing.T) {
	m := NewManual(1000)
	assert.Equal(t, Ticks(0), m.Now())
	assert.Equal(t, Ticks(5), m.Advance(5))
	m.Set(100)
	assert.Equal(t, Ticks(100), m.Now())
	assert.Equal(t, time.Second, m.Rate().ToDuration(1000))
}

func TestManualChangedClosesOnMove(t *testing.T) {
	m := NewManual(1000)
	var _ Notifier = m

	ch := m.Changed()
	select {
	case <-ch:
		t.Fatal("closed before any move")
	default:
	}
	m.Advance(1)
	_, open := <-ch
	assert.False(t, open)

	next := m.Changed()
	assert.NotEqual(t, ch, next)
	m.Set(50)
	<-next
}
