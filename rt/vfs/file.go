package vfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/joshuapare/osrt/internal/buf"
	"github.com/joshuapare/osrt/rt/fault"
)

// File is an open guest file. It carries one command block, so it has at
// most one read in flight.
type File struct {
	fs   *FS
	path string
	res  Resource
	size int64
	blk  *block // guarded by fs.mu

	closed bool // guarded by fs.mu

	posMu sync.Mutex
	pos   int64
}

// Path returns the absolute guest path the file was opened as.
func (f *File) Path() string { return f.path }

// Length returns the file size in bytes.
func (f *File) Length() int64 { return f.size }

// State returns the state of the file's command block.
func (f *File) State() State {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	if f.closed {
		return StateIdle
	}
	return f.blk.state
}

// ReadAsync starts reading into buf from off at PriorityDefault. See
// ReadAsyncPrio.
func (f *File) ReadAsync(buf []byte, off int64, cb Callback) bool {
	return f.ReadAsyncPrio(buf, off, PriorityDefault, cb)
}

// ReadAsyncPrio starts reading into buf from off and returns whether the
// read was accepted. It is not accepted while another read is in flight or
// after Close. An accepted read calls cb exactly once, on a worker thread,
// with the number of bytes read: len(buf) clamped to the end of the file.
// buf must not be touched until cb runs.
func (f *File) ReadAsyncPrio(buf []byte, off int64, prio Priority, cb Callback) bool {
	_, err := f.start(buf, off, prio, cb)
	return err == nil
}

func (f *File) start(p []byte, off int64, prio Priority, cb Callback) (*request, error) {
	fault.Assert(off >= 0, "vfs: negative offset %d", off)
	fault.Assert(cb != nil, "vfs: nil callback")

	v := f.fs
	v.mu.Lock()
	defer v.mu.Unlock()
	switch {
	case f.closed:
		return nil, ErrClosed
	case f.blk.state != StateIdle:
		return nil, ErrBusy
	}
	req := &request{
		buf:  p[:buf.Clamp(off, int64(len(p)), f.size)],
		off:  off,
		cb:   cb,
		done: make(chan struct{}),
	}
	v.submit(f.blk, req, prio)
	return req, nil
}

// ReadOffset reads into buf from off at PriorityDefault. See ReadOffsetPrio.
func (f *File) ReadOffset(ctx context.Context, buf []byte, off int64) (int, error) {
	return f.ReadOffsetPrio(ctx, buf, off, PriorityDefault)
}

type result struct {
	n   int
	err error
}

// ReadOffsetPrio reads into buf from off through the command queue and
// waits for it to finish. The count is clamped to the end of the file, so
// a read at or past the end returns 0 and no error. If ctx ends first the
// read is canceled and ctx.Err() is returned. A read already underway runs
// to completion before ReadOffsetPrio returns, but its count is dropped.
func (f *File) ReadOffsetPrio(ctx context.Context, buf []byte, off int64, prio Priority) (int, error) {
	ch := make(chan result, 1)
	req, err := f.start(buf, off, prio, func(_ context.Context, n int, err error) {
		ch <- result{n, err}
	})
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", f.path, err)
	}

	select {
	case r := <-ch:
		return r.n, r.err
	case <-ctx.Done():
		f.cancel(req)
		r := <-ch
		if errors.Is(r.err, ErrCanceled) {
			return 0, ctx.Err()
		}
		return r.n, r.err
	}
}

// Read implements io.Reader at the file's current offset.
func (f *File) Read(p []byte) (int, error) {
	f.posMu.Lock()
	defer f.posMu.Unlock()
	if len(p) == 0 {
		return 0, nil
	}
	if f.pos >= f.size {
		return 0, io.EOF
	}
	n, err := f.ReadOffset(context.Background(), p, f.pos)
	f.pos += int64(n)
	return n, err
}

// Seek implements io.Seeker. The resulting offset is clamped to
// [0, Length()].
func (f *File) Seek(offset int64, whence int) (int64, error) {
	f.posMu.Lock()
	defer f.posMu.Unlock()

	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = f.pos + offset
	case io.SeekEnd:
		pos = f.size + offset
	default:
		return f.pos, fmt.Errorf("seek %s: invalid whence %d", f.path, whence)
	}
	f.pos = min(max(pos, 0), f.size)
	return f.pos, nil
}

// Cancel cancels the file's read, if any, and reports whether there was
// one. A waiting read never starts; a running read completes but reports
// ErrCanceled.
func (f *File) Cancel() bool {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	return f.cancelLocked(f.blk.req)
}

// cancel cancels req only if it is still the file's current read.
func (f *File) cancel(req *request) bool {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	return f.cancelLocked(req)
}

func (f *File) cancelLocked(req *request) bool {
	if f.closed || req == nil || f.blk.req != req {
		return false
	}
	switch f.blk.state {
	case StateWaiting:
		return f.fs.cancelWaiting(f.blk)
	case StateBusy:
		req.canceled = true
		return true
	}
	return false
}

// Close cancels a waiting read, waits for a running one, then releases the
// backing resource and the command block.
func (f *File) Close() error {
	v := f.fs
	v.mu.Lock()
	if f.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	f.closed = true
	var done chan struct{}
	if req := f.blk.req; req != nil {
		done = req.done
		v.cancelWaiting(f.blk)
	}
	v.mu.Unlock()

	if done != nil {
		<-done
	}
	err := f.res.Close()

	v.mu.Lock()
	v.release(f.blk)
	delete(v.files, f)
	v.mu.Unlock()
	return err
}
