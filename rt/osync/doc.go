// Package osync provides the console synchronization primitives: a
// recursive Mutex with ownership handoff, a Cond bound to such a mutex, a
// counting Semaphore and a bounded MessageQueue.
//
// Every primitive guards its check-and-update step with its own short-held
// lock and blocks through a thread.WaitQueue. Blocking calls take a context
// that must carry the calling thread (see thread.Adopt and thread.Create);
// cancellation of that context abandons the wait. Try variants never block.
package osync
