package vfs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/osrt/internal/testutil"
)

func newTestFS(t *testing.T, cfg *Config) *FS {
	t.Helper()
	return newFSOver(t, FSStorage(testutil.MapFS(testutil.DiscLayout())), cfg)
}

func newFSOver(t *testing.T, st Storage, cfg *Config) *FS {
	t.Helper()
	v, err := New(st, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { v.Close() })
	return v
}

// gatedStorage holds every ReadAt until the gate is closed.
type gatedStorage struct {
	Storage
	gate    chan struct{}
	entered atomic.Int32
}

func newGated() *gatedStorage {
	return &gatedStorage{
		Storage: FSStorage(testutil.MapFS(testutil.DiscLayout())),
		gate:    make(chan struct{}),
	}
}

func (g *gatedStorage) Open(name string) (Resource, error) {
	r, err := g.Storage.Open(name)
	if err != nil {
		return nil, err
	}
	return &gatedResource{Resource: r, g: g}, nil
}

func (g *gatedStorage) release() { close(g.gate) }

type gatedResource struct {
	Resource
	g *gatedStorage
}

func (r *gatedResource) ReadAt(p []byte, off int64) (int, error) {
	r.g.entered.Add(1)
	<-r.g.gate
	return r.Resource.ReadAt(p, off)
}

func waitState(t *testing.T, f *File, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return f.State() == want }, 2*time.Second, time.Millisecond,
		"%s never reached %s", f.Path(), want)
}

// completion is one callback invocation.
type completion struct {
	tag string
	n   int
	err error
}

func collect(ch chan<- completion, tag string) Callback {
	return func(_ context.Context, n int, err error) {
		ch <- completion{tag, n, err}
	}
}

func await(t *testing.T, ch <-chan completion) completion {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("callback did not fire")
		return completion{}
	}
}
