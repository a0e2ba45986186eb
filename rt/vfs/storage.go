package vfs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joshuapare/osrt/internal/mmfile"
)

// Resource is an open, read-only backing file.
type Resource interface {
	io.ReaderAt
	io.Closer
	Size() int64
}

// Storage backs a virtual root. Names are unrooted slash paths as accepted
// by fs.ValidPath; "." is the root itself.
type Storage interface {
	Open(name string) (Resource, error)
	Stat(name string) (fs.FileInfo, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	Close() error
}

// FSStorage serves files from fsys. Files that do not implement io.ReaderAt
// are read fully into memory when opened.
func FSStorage(fsys fs.FS) Storage {
	return &fsStorage{fsys: fsys}
}

type fsStorage struct {
	fsys  fs.FS
	close func() error
}

func (s *fsStorage) Open(name string) (Resource, error) {
	f, err := s.fsys.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s: %w", name, ErrIsDir)
	}
	if ra, ok := f.(io.ReaderAt); ok {
		return &fileResource{ReaderAt: ra, Closer: f, size: info.Size()}, nil
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return nil, err
	}
	return &memResource{Reader: bytes.NewReader(data)}, nil
}

func (s *fsStorage) Stat(name string) (fs.FileInfo, error) { return fs.Stat(s.fsys, name) }

func (s *fsStorage) ReadDir(name string) ([]fs.DirEntry, error) { return fs.ReadDir(s.fsys, name) }

func (s *fsStorage) Close() error {
	if s.close != nil {
		return s.close()
	}
	return nil
}

type fileResource struct {
	io.ReaderAt
	io.Closer
	size int64
}

func (r *fileResource) Size() int64 { return r.size }

type memResource struct {
	*bytes.Reader
}

func (r *memResource) Close() error { return nil }

// HostStorage serves files from the host directory dir. Lookups cannot
// escape dir, including through symbolic links.
func HostStorage(dir string) (Storage, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, err
	}
	return &fsStorage{fsys: root.FS(), close: root.Close}, nil
}

// MappedStorage is HostStorage with each opened file mapped read-only into
// memory instead of read through a descriptor.
func MappedStorage(dir string) (Storage, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, err
	}
	return &mappedStorage{fsStorage{fsys: root.FS(), close: root.Close}, root}, nil
}

type mappedStorage struct {
	fsStorage
	root *os.Root
}

func (s *mappedStorage) Open(name string) (Resource, error) {
	f, err := s.root.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s: %w", name, ErrIsDir)
	}
	data, unmap, err := mmfile.MapFile(f)
	if err != nil {
		return nil, err
	}
	return &mappedResource{memResource{bytes.NewReader(data)}, unmap}, nil
}

type mappedResource struct {
	memResource
	unmap func() error
}

func (r *mappedResource) Close() error { return r.unmap() }

// notFound reports whether err means the name does not exist.
func notFound(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
