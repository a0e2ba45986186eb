// Package alarm schedules one-shot and periodic callbacks against a tick
// source.
//
// A Scheduler owns one queue ordered by absolute fire time and one
// dispatcher thread. The dispatcher sleeps until the earliest alarm is due,
// removes it, re-queues it if it is periodic, and then runs its handler with
// the queue unlocked. Handlers therefore run one at a time, and a slow
// handler delays every alarm due after it.
//
// Alarms are owned by the caller and may be reused after they fire or are
// canceled:
//
//	var a alarm.Alarm
//	a.SetTag(7)
//	s.SetPeriodicAlarm(&a, clk.Now(), rate.Milliseconds(16), vsync)
//	...
//	s.CancelAlarms(7)
//
// Tag 0 means untagged; CancelAlarms(0) does nothing.
package alarm
