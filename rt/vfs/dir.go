package vfs

import (
	"fmt"
	"io"
	"path"
	"sync"
)

// DirEntry describes a file or directory.
type DirEntry struct {
	// Name is the UTF-8 base name.
	Name string
	// GuestName is Name in the configured guest encoding.
	GuestName string
	// Path is the absolute guest path.
	Path  string
	IsDir bool
	// Size is the file length; 0 for directories.
	Size int64
}

func (v *FS) entry(abs, name string, isDir bool, size int64) DirEntry {
	if abs == Sep {
		name = Sep
	}
	e := DirEntry{Name: name, GuestName: name, Path: abs, IsDir: isDir}
	if !isDir {
		e.Size = size
	}
	if v.enc != nil {
		if g, err := v.enc.NewEncoder().String(name); err == nil {
			e.GuestName = g
		}
	}
	return e
}

// Dir is an open directory listing, read one entry at a time in name order.
type Dir struct {
	path string

	mu      sync.Mutex
	entries []DirEntry
	next    int
	closed  bool
}

// OpenDir lists the directory at p.
func (v *FS) OpenDir(p string) (*Dir, error) {
	abs, name, err := v.resolve(p)
	if err != nil {
		return nil, err
	}
	info, err := v.storage.Stat(name)
	if err != nil {
		return nil, wrap("opendir", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("opendir %s: %w", abs, ErrNotDir)
	}
	list, err := v.storage.ReadDir(name)
	if err != nil {
		return nil, wrap("opendir", abs, err)
	}

	d := &Dir{path: abs, entries: make([]DirEntry, 0, len(list))}
	for _, de := range list {
		var size int64
		if !de.IsDir() {
			if info, err := de.Info(); err == nil {
				size = info.Size()
			}
		}
		d.entries = append(d.entries, v.entry(path.Join(abs, de.Name()), de.Name(), de.IsDir(), size))
	}
	return d, nil
}

// Path returns the directory's absolute guest path.
func (d *Dir) Path() string { return d.path }

// Read returns the next entry, or io.EOF after the last one.
func (d *Dir) Read() (DirEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return DirEntry{}, ErrClosed
	}
	if d.next >= len(d.entries) {
		return DirEntry{}, io.EOF
	}
	e := d.entries[d.next]
	d.next++
	return e, nil
}

// Rewind restarts the listing from the first entry.
func (d *Dir) Rewind() {
	d.mu.Lock()
	d.next = 0
	d.mu.Unlock()
}

// Close releases the listing.
func (d *Dir) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.closed = true
	d.entries = nil
	return nil
}
