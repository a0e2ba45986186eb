// Package thread wraps goroutines in console-style thread handles.
//
// A Thread is created suspended with a suspend count of 1 and starts its
// goroutine the first time Resume brings the count to zero:
//
//	t := thread.Create(thread.Params{Entry: worker, Arg: job, Priority: 16})
//	t.Resume()
//	v, err := thread.Join(ctx, t)
//
// The entry function receives a context that identifies the running thread;
// Current, Exit and the thread-specific slot accessors resolve the calling
// thread from it. The host's own goroutine joins the model through Adopt.
//
// # States
//
//	Ready -> Running   first Resume that reaches a zero suspend count
//	Running -> Moribund  Exit, or the entry function returning
//
// The suspend count can change in any state, but the host scheduler owns a
// running goroutine: suspending a thread that has already started only
// increments its count and does not pause it.
//
// # Wait Queues
//
// WaitQueue is the blocking building block shared with package osync. It is
// ordered by thread priority (0 is highest), first-come first-served among
// equal priorities, and is always used under the owning primitive's lock.
package thread
