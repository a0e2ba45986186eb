package alarm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/osrt/rt/clock"
	"github.com/joshuapare/osrt/rt/thread"
)

type firing struct {
	a    *Alarm
	fire clock.Ticks
	now  clock.Ticks
}

func newManual(t *testing.T) (*Scheduler, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(1000)
	s := New(Config{Clock: clk})
	t.Cleanup(s.Close)
	return s, clk
}

// recorder returns a handler that reports each call on the channel.
func recorder(clk clock.Source) (Handler, chan firing) {
	ch := make(chan firing, 64)
	return func(_ context.Context, a *Alarm) {
		ch <- firing{a: a, fire: a.Fire(), now: clk.Now()}
	}, ch
}

func next(t *testing.T, ch <-chan firing) firing {
	t.Helper()
	select {
	case f := <-ch:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("alarm did not fire")
		return firing{}
	}
}

func quiet(t *testing.T, ch <-chan firing) {
	t.Helper()
	select {
	case f := <-ch:
		t.Fatalf("unexpected fire at %d", f.now)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestNextFire(t *testing.T) {
	tests := []struct {
		start, period, now, want clock.Ticks
	}{
		{100, 10, 50, 100},
		{100, 10, 100, 110},
		{100, 10, 101, 110},
		{100, 10, 109, 110},
		{100, 10, 110, 120},
		{0, 16, 1000, 1008},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nextFire(tt.start, tt.period, tt.now), "start=%d now=%d", tt.start, tt.now)
	}
}

func TestOneShot(t *testing.T) {
	s, clk := newManual(t)
	h, ch := recorder(clk)

	var a Alarm
	assert.False(t, a.Queued())
	s.SetAlarm(&a, 10, h)
	assert.True(t, a.Queued())
	assert.Equal(t, clock.Ticks(10), a.Fire())
	assert.Equal(t, clock.Ticks(0), a.Period())

	clk.Advance(5)
	quiet(t, ch)

	clk.Advance(5)
	f := next(t, ch)
	assert.Same(t, &a, f.a)
	assert.Equal(t, clock.Ticks(10), f.fire)
	assert.False(t, a.Queued())
	assert.Equal(t, 0, s.Len())

	clk.Advance(100)
	quiet(t, ch)
}

func TestFiresInTimeOrder(t *testing.T) {
	s, clk := newManual(t)
	h, ch := recorder(clk)

	alarms := make([]Alarm, 4)
	s.SetAbsAlarm(&alarms[0], 30, h)
	s.SetAbsAlarm(&alarms[1], 10, h)
	s.SetAbsAlarm(&alarms[2], 20, h)
	s.SetAbsAlarm(&alarms[3], 10, h)
	require.NoError(t, s.Check())

	clk.Set(100)
	var got []*Alarm
	for range alarms {
		got = append(got, next(t, ch).a)
	}
	assert.Equal(t, []*Alarm{&alarms[1], &alarms[3], &alarms[2], &alarms[0]}, got)
}

func TestPeriodic(t *testing.T) {
	s, clk := newManual(t)
	h, ch := recorder(clk)

	var a Alarm
	s.SetPeriodicAlarm(&a, 10, 10, h)
	assert.Equal(t, clock.Ticks(10), a.Period())

	clk.Set(10)
	f := next(t, ch)
	assert.Equal(t, clock.Ticks(20), f.fire, "re-queued before the handler runs")
	assert.True(t, a.Queued())

	clk.Set(20)
	assert.Equal(t, clock.Ticks(30), next(t, ch).fire)

	clk.Set(55)
	assert.Equal(t, clock.Ticks(60), next(t, ch).fire, "missed periods are skipped")
	quiet(t, ch)

	s.CancelAlarm(&a)
	assert.False(t, a.Queued())
	clk.Set(1000)
	quiet(t, ch)
}

func TestPeriodicStartInPast(t *testing.T) {
	s, clk := newManual(t)
	h, _ := recorder(clk)
	clk.Set(95)

	var a Alarm
	s.SetPeriodicAlarm(&a, 10, 20, h)
	assert.Equal(t, clock.Ticks(110), a.Fire())
}

func TestPeriodicOnHostClock(t *testing.T) {
	clk := clock.NewHost(clock.DefaultRate)
	s := New(Config{Clock: clk})
	defer s.Close()

	var a Alarm
	h, ch := recorder(clk)
	period := clk.Rate().Milliseconds(5)
	s.SetPeriodicAlarm(&a, clk.Now(), period, h)

	prev := next(t, ch)
	for range 3 {
		f := next(t, ch)
		assert.Greater(t, f.fire, prev.fire)
		assert.Equal(t, clock.Ticks(0), (f.fire-prev.fire)%period)
		prev = f
	}
	s.CancelAlarm(&a)
}

func TestCancelNoOps(t *testing.T) {
	s, clk := newManual(t)
	h, ch := recorder(clk)

	var idle Alarm
	s.CancelAlarm(&idle)
	assert.Equal(t, 0, s.CancelAlarms(0))

	var untagged Alarm
	s.SetAlarm(&untagged, 10, h)
	assert.Equal(t, 0, s.CancelAlarms(0))
	assert.True(t, untagged.Queued())

	clk.Advance(10)
	next(t, ch)
	s.CancelAlarm(&untagged)
	assert.Equal(t, 0, s.Len())
}

func TestCancelAlarmsByTag(t *testing.T) {
	s, clk := newManual(t)
	h, ch := recorder(clk)

	alarms := make([]Alarm, 6)
	for i := range alarms {
		alarms[i].SetTag(uint32(i%2 + 1))
		s.SetAlarm(&alarms[i], clock.Ticks(10+i), h)
	}
	assert.Equal(t, 3, s.CancelAlarms(2))
	assert.Equal(t, 3, s.Len())
	require.NoError(t, s.Check())
	for i := range alarms {
		assert.Equal(t, i%2 == 0, alarms[i].Queued(), "alarm %d", i)
	}

	clk.Advance(100)
	for range 3 {
		assert.Equal(t, uint32(1), next(t, ch).a.Tag())
	}
	quiet(t, ch)
}

func TestRescheduleQueued(t *testing.T) {
	s, clk := newManual(t)
	h, ch := recorder(clk)

	var a Alarm
	s.SetAlarm(&a, 10, h)
	s.SetAbsAlarm(&a, 50, h)
	assert.Equal(t, 1, s.Len())

	clk.Set(20)
	quiet(t, ch)
	clk.Set(50)
	assert.Equal(t, clock.Ticks(50), next(t, ch).fire)
	quiet(t, ch)
}

func TestMoveBetweenSchedulers(t *testing.T) {
	s1, clk := newManual(t)
	s2 := New(Config{Clock: clk})
	defer s2.Close()
	h, ch := recorder(clk)

	var a Alarm
	s1.SetAlarm(&a, 10, h)
	s2.SetAlarm(&a, 20, h)
	assert.Equal(t, 0, s1.Len())
	assert.Equal(t, 1, s2.Len())

	clk.Set(20)
	assert.Equal(t, clock.Ticks(20), next(t, ch).fire)
}

func TestHandlerContext(t *testing.T) {
	s, clk := newManual(t)
	got := make(chan *thread.Thread, 1)

	var a Alarm
	a.SetUserData("payload")
	s.SetAlarm(&a, 0, func(ctx context.Context, a *Alarm) {
		assert.Equal(t, "payload", a.UserData())
		got <- thread.Current(ctx)
	})
	clk.Advance(1)

	select {
	case th := <-got:
		require.NotNil(t, th)
		assert.Equal(t, thread.Running, th.State())
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not run")
	}
}

func TestContractViolations(t *testing.T) {
	s, clk := newManual(t)
	h, _ := recorder(clk)
	var a Alarm
	require.Panics(t, func() { s.SetPeriodicAlarm(&a, 0, 0, h) })
	require.Panics(t, func() { s.SetAlarm(&a, 1, nil) })
}

func TestCheckDetectsCorruption(t *testing.T) {
	s, clk := newManual(t)
	h, _ := recorder(clk)

	alarms := make([]Alarm, 3)
	for i := range alarms {
		s.SetAlarm(&alarms[i], clock.Ticks(10*(i+1)), h)
	}
	require.NoError(t, s.Check())

	s.mu.Lock()
	s.q[0].fire = 1000
	s.mu.Unlock()
	assert.ErrorIs(t, s.Check(), ErrCorrupt)
}

func TestCloseStopsFiring(t *testing.T) {
	clk := clock.NewManual(1000)
	s := New(Config{Clock: clk})
	h, ch := recorder(clk)

	var a Alarm
	s.SetAlarm(&a, 10, h)
	s.Close()
	s.Close()

	clk.Advance(10)
	quiet(t, ch)
	assert.True(t, a.Queued())
}
