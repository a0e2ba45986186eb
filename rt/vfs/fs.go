package vfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/text/encoding"

	"github.com/joshuapare/osrt/rt/fault"
	"github.com/joshuapare/osrt/rt/logger"
	"github.com/joshuapare/osrt/rt/thread"
)

// DefaultPoolSize is the command block pool size used when Config.PoolSize is 0.
const DefaultPoolSize = 32

// Config configures an FS. The zero value is usable.
type Config struct {
	// PoolSize bounds the number of open files. 0 selects DefaultPoolSize.
	PoolSize int

	// Workers is the number of reader threads draining the priority queue.
	// 0 starts one thread per read.
	Workers int

	// WorkerPriority is the thread priority of reader threads.
	// nil selects thread.PriorityDefault.
	WorkerPriority *int

	// Encoding decodes guest path names to UTF-8, for example
	// japanese.ShiftJIS for discs mastered with Shift-JIS names. nil means
	// paths are already UTF-8.
	Encoding encoding.Encoding

	// CaseInsensitive retries lookups that miss using Unicode case folding.
	CaseInsensitive bool

	// Logger receives diagnostics. nil uses logger.L.
	Logger *slog.Logger
}

// FS is a virtual root over a Storage.
type FS struct {
	storage  Storage
	enc      encoding.Encoding
	caseFold bool
	log      *slog.Logger

	wdMu sync.RWMutex
	cwd  string

	ctx        context.Context
	cancel     context.CancelFunc
	workerPrio int
	workers    []*thread.Thread

	mu     sync.Mutex
	blocks []block
	free   []int
	queue  [numPriorities][]*block
	workQ  thread.WaitQueue
	files  map[*File]struct{}
	closed bool
}

// New builds an FS over storage. The FS owns storage and closes it in Close.
func New(storage Storage, cfg *Config) (*FS, error) {
	if storage == nil {
		return nil, errors.New("vfs: nil storage")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.PoolSize < 0 || cfg.Workers < 0 {
		return nil, fmt.Errorf("vfs: invalid config (pool %d, workers %d)", cfg.PoolSize, cfg.Workers)
	}
	if _, err := storage.Stat("."); err != nil {
		return nil, fmt.Errorf("vfs: root: %w", err)
	}

	size := cfg.PoolSize
	if size == 0 {
		size = DefaultPoolSize
	}
	prio := thread.PriorityDefault
	if cfg.WorkerPriority != nil {
		prio = *cfg.WorkerPriority
	}
	if prio < thread.PriorityHighest || prio > thread.PriorityLowest {
		return nil, fmt.Errorf("vfs: invalid worker priority %d", prio)
	}

	ctx, cancel := context.WithCancel(context.Background())
	v := &FS{
		storage:    storage,
		enc:        cfg.Encoding,
		caseFold:   cfg.CaseInsensitive,
		log:        logger.Component(cfg.Logger, "vfs"),
		cwd:        Sep,
		ctx:        ctx,
		cancel:     cancel,
		workerPrio: prio,
		blocks:     make([]block, size),
		free:       make([]int, 0, size),
		files:      make(map[*File]struct{}),
	}
	for i := size - 1; i >= 0; i-- {
		v.blocks[i].id = i
		v.free = append(v.free, i)
	}
	for range cfg.Workers {
		t := v.spawn(v.work, nil)
		v.workers = append(v.workers, t)
	}
	v.log.Info("vfs root ready", "pool", size, "workers", cfg.Workers, "caseInsensitive", v.caseFold)
	return v, nil
}

// Close closes every open file, stops the reader threads and closes the
// storage.
func (v *FS) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	v.closed = true
	files := make([]*File, 0, len(v.files))
	for f := range v.files {
		files = append(files, f)
	}
	v.mu.Unlock()

	for _, f := range files {
		if err := f.Close(); err != nil && !errors.Is(err, ErrClosed) {
			v.log.Warn("close file", "path", f.path, "err", err)
		}
	}
	v.cancel()
	for _, t := range v.workers {
		<-t.Done()
	}
	return v.storage.Close()
}

// Getwd returns the current directory as an absolute guest path.
func (v *FS) Getwd() string {
	v.wdMu.RLock()
	defer v.wdMu.RUnlock()
	return v.cwd
}

// Chdir changes the current directory.
func (v *FS) Chdir(p string) error {
	abs, name, err := v.resolve(p)
	if err != nil {
		return err
	}
	info, err := v.storage.Stat(name)
	if err != nil {
		return wrap("chdir", abs, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("chdir %s: %w", abs, ErrNotDir)
	}
	v.wdMu.Lock()
	v.cwd = abs
	v.wdMu.Unlock()
	return nil
}

// Stat describes the file or directory at p.
func (v *FS) Stat(p string) (DirEntry, error) {
	abs, name, err := v.resolve(p)
	if err != nil {
		return DirEntry{}, err
	}
	info, err := v.storage.Stat(name)
	if err != nil {
		return DirEntry{}, wrap("stat", abs, err)
	}
	return v.entry(abs, info.Name(), info.IsDir(), info.Size()), nil
}

// Open opens the file at p for reading and assigns it a command block.
func (v *FS) Open(p string) (*File, error) {
	abs, name, err := v.resolve(p)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	closed := v.closed
	v.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	res, err := v.storage.Open(name)
	if err != nil {
		return nil, wrap("open", abs, err)
	}
	f := &File{fs: v, path: abs, res: res, size: res.Size()}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		res.Close()
		return nil, ErrClosed
	}
	if f.blk, err = v.acquire(f); err != nil {
		res.Close()
		return nil, fmt.Errorf("open %s: %w", abs, err)
	}
	v.files[f] = struct{}{}
	return f, nil
}

// PoolFree returns the number of unused command blocks.
func (v *FS) PoolFree() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.free)
}

// spawn starts a detached reader thread.
func (v *FS) spawn(entry thread.Entry, arg any) *thread.Thread {
	t := thread.Create(thread.Params{
		Entry:    entry,
		Arg:      arg,
		Priority: v.workerPrio,
		Context:  v.ctx,
	})
	t.Resume()
	return t
}

// submit queues req on b and hands it to a reader. Callers hold v.mu.
func (v *FS) submit(b *block, req *request, prio Priority) {
	fault.Assert(prio >= PriorityHighest && prio <= PriorityLowest, "vfs: invalid priority %d", prio)
	b.req = req
	b.prio = prio
	v.enqueue(b)
	if len(v.workers) == 0 {
		v.spawn(v.runOne, nil)
		return
	}
	v.workQ.WakeOne()
}

// work is the body of a pooled reader thread.
func (v *FS) work(ctx context.Context, _ any) any {
	v.mu.Lock()
	for {
		b := v.dequeue()
		if b == nil {
			if err := v.workQ.Sleep(ctx, &v.mu); err != nil {
				v.mu.Unlock()
				return nil
			}
			continue
		}
		v.mu.Unlock()
		v.execute(ctx, b)
		v.mu.Lock()
	}
}

// runOne is the body of a per-read thread. It takes the most urgent
// waiting block, which may belong to another read.
func (v *FS) runOne(ctx context.Context, _ any) any {
	v.mu.Lock()
	b := v.dequeue()
	v.mu.Unlock()
	if b != nil {
		v.execute(ctx, b)
	}
	return nil
}

// execute performs the read on a dequeued block and fires its callback.
func (v *FS) execute(ctx context.Context, b *block) {
	v.mu.Lock()
	req := b.req
	res := b.file.res
	v.mu.Unlock()

	// an empty request is at or past the end; some storages reject the offset
	var n int
	var err error
	if len(req.buf) > 0 {
		n, err = res.ReadAt(req.buf, req.off)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	}

	v.mu.Lock()
	if req.canceled {
		n, err = 0, ErrCanceled
	} else if err != nil {
		err = fmt.Errorf("read %s: %w", b.file.path, err)
	}
	b.state = StateIdle
	b.req = nil
	v.mu.Unlock()

	close(req.done)
	req.cb(ctx, n, err)
}

// cancelWaiting takes a waiting block off the queue and reports
// ErrCanceled on a new thread. Callers hold v.mu.
func (v *FS) cancelWaiting(b *block) bool {
	if b.state != StateWaiting || !v.unqueue(b) {
		return false
	}
	req := b.req
	req.canceled = true
	b.state = StateIdle
	b.req = nil
	close(req.done)
	v.spawn(func(ctx context.Context, _ any) any {
		req.cb(ctx, 0, ErrCanceled)
		return nil
	}, nil)
	return true
}
