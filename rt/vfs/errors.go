package vfs

import "errors"

var (
	// ErrNotFound is returned when a path does not name a file or directory.
	ErrNotFound = errors.New("vfs: not found")

	// ErrNotDir is returned when a directory operation names a file.
	ErrNotDir = errors.New("vfs: not a directory")

	// ErrIsDir is returned when Open names a directory.
	ErrIsDir = errors.New("vfs: is a directory")

	// ErrCanceled is the result of a read canceled before it completed.
	ErrCanceled = errors.New("vfs: canceled")

	// ErrPoolExhausted is returned by Open when every command block is in use.
	ErrPoolExhausted = errors.New("vfs: command block pool exhausted")

	// ErrBusy is returned when a file already has a read in flight.
	ErrBusy = errors.New("vfs: file busy")

	// ErrClosed is returned by operations on a closed File, Dir or FS.
	ErrClosed = errors.New("vfs: closed")
)
