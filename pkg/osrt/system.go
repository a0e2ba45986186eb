package osrt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joshuapare/osrt/internal/mmfile"
	"github.com/joshuapare/osrt/internal/statsview"
	"github.com/joshuapare/osrt/rt/alarm"
	"github.com/joshuapare/osrt/rt/alloc"
	"github.com/joshuapare/osrt/rt/clock"
	"github.com/joshuapare/osrt/rt/logger"
	"github.com/joshuapare/osrt/rt/thread"
	"github.com/joshuapare/osrt/rt/vfs"
)

const (
	// DefaultArenaBase is the guest address of the first arena byte,
	// the start of cached main memory.
	DefaultArenaBase alloc.Addr = 0x80000000

	// DefaultArenaSize matches the console's 24 MiB of main memory.
	DefaultArenaSize = 24 << 20

	// DefaultMaxHeaps is the descriptor count reserved when MaxHeaps is 0.
	DefaultMaxHeaps = 4
)

// Config configures a System. Zero fields take the documented defaults.
type Config struct {
	// ArenaBase is the guest address the arena is mapped at.
	// 0 selects DefaultArenaBase.
	ArenaBase alloc.Addr

	// ArenaSize is the arena length in bytes. 0 selects DefaultArenaSize.
	ArenaSize int

	// MaxHeaps is the number of heap descriptors. 0 selects DefaultMaxHeaps.
	MaxHeaps int

	// DefaultHeap creates one heap spanning the whole arena and makes it
	// the current heap.
	DefaultHeap bool

	// ClockRate is the tick frequency. 0 selects clock.DefaultRate.
	ClockRate clock.Rate

	// Clock overrides the host clock, mainly for tests.
	Clock clock.Source

	// Root is the host directory served as the virtual root. Empty means
	// no file system.
	Root string

	// MapFiles serves Root through memory-mapped files.
	MapFiles bool

	// FS holds the virtual file system options. Its Logger defaults to
	// the System logger.
	FS vfs.Config

	// MainPriority is the priority of the adopted main thread.
	// nil selects thread.PriorityDefault.
	MainPriority *int

	// Log, when enabled, initializes the package logger before anything
	// else is built.
	Log logger.Options

	// Logger receives init lines from every subsystem. nil uses logger.L.
	Logger *slog.Logger

	// StatsView starts the host runtime stats server when the binary is
	// built with the statsview tag.
	StatsView bool
}

// System is one independent runtime instance.
type System struct {
	Arena  *alloc.Arena
	Heap   alloc.Heap // alloc.InvalidHeap unless Config.DefaultHeap
	Clock  clock.Source
	Alarms *alarm.Scheduler
	FS     *vfs.FS // nil without Config.Root
	Main   *thread.Thread

	ctx       context.Context
	log       *slog.Logger
	unmap     func() error
	stopStats func()
	closed    bool
}

// New builds a System and adopts the calling goroutine as its main thread.
// The returned System's Context identifies that thread.
func New(ctx context.Context, cfg Config) (*System, error) {
	if cfg.Log.Enabled {
		if err := logger.Init(cfg.Log); err != nil {
			return nil, fmt.Errorf("osrt: logger: %w", err)
		}
	}
	// subsystems tag their own lines from the shared sink
	sink := logger.Or(cfg.Logger)
	log := logger.Component(sink, "system")

	base := cfg.ArenaBase
	if base == 0 {
		base = DefaultArenaBase
	}
	size := cfg.ArenaSize
	if size == 0 {
		size = DefaultArenaSize
	}
	maxHeaps := cfg.MaxHeaps
	if maxHeaps == 0 {
		maxHeaps = DefaultMaxHeaps
	}
	prio := thread.PriorityDefault
	if cfg.MainPriority != nil {
		prio = *cfg.MainPriority
	}
	if prio < thread.PriorityHighest || prio > thread.PriorityLowest {
		return nil, fmt.Errorf("osrt: invalid main priority %d", prio)
	}

	mem, unmap, err := mmfile.Anonymous(size)
	if err != nil {
		return nil, fmt.Errorf("osrt: arena memory: %w", err)
	}
	s := &System{
		Arena: alloc.NewArena(base, mem, maxHeaps, &alloc.Config{Logger: sink}),
		Heap:  alloc.InvalidHeap,
		log:   log,
		unmap: unmap,
	}

	if cfg.DefaultHeap {
		s.Heap = s.Arena.CreateHeap(s.Arena.Lo(), s.Arena.Hi())
		s.Arena.SetCurrentHeap(s.Heap)
	}

	s.Clock = cfg.Clock
	if s.Clock == nil {
		s.Clock = clock.NewHost(cfg.ClockRate)
	}
	s.Alarms = alarm.New(alarm.Config{Clock: s.Clock, Logger: sink})

	if cfg.Root != "" {
		if s.FS, err = openFS(cfg, sink); err != nil {
			s.Alarms.Close()
			unmap()
			return nil, err
		}
	}

	s.stopStats = func() {}
	if cfg.StatsView {
		if statsview.Available() {
			s.stopStats = statsview.Launch(logger.Component(sink, "statsview"))
		} else {
			log.Warn("stats server requested but not compiled in (build with -tags statsview)")
		}
	}

	s.ctx, s.Main = thread.Adopt(ctx, prio)
	log.Info("system ready",
		"heap", int(s.Heap),
		"rate", int64(s.Clock.Rate()),
		"root", cfg.Root,
		"mapped", cfg.MapFiles)
	return s, nil
}

func openFS(cfg Config, log *slog.Logger) (*vfs.FS, error) {
	open := vfs.HostStorage
	if cfg.MapFiles {
		open = vfs.MappedStorage
	}
	st, err := open(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("osrt: root: %w", err)
	}
	fsCfg := cfg.FS
	if fsCfg.Logger == nil {
		fsCfg.Logger = log
	}
	v, err := vfs.New(st, &fsCfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("osrt: %w", err)
	}
	return v, nil
}

// Context returns a context identifying the main thread.
func (s *System) Context() context.Context { return s.ctx }

// Close stops the alarm dispatcher, closes the file system and releases
// the arena memory. The arena must not be used afterwards.
func (s *System) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	s.stopStats()
	s.Alarms.Close()
	var errs []error
	if s.FS != nil {
		if err := s.FS.Close(); err != nil {
			errs = append(errs, fmt.Errorf("osrt: fs: %w", err))
		}
	}
	if s.Heap != alloc.InvalidHeap {
		s.Arena.DestroyHeap(s.Heap)
	}
	if err := s.unmap(); err != nil {
		errs = append(errs, fmt.Errorf("osrt: arena memory: %w", err))
	}
	s.log.Info("system closed")
	return errors.Join(errs...)
}
