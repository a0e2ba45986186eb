// Package vfs serves read-only guest file I/O from a virtual root.
//
// An FS resolves slash-separated guest paths against a mutable current
// directory, opens files from a Storage backend, and executes reads as
// command blocks. Every open File owns one block from a fixed pool; a read
// queues the block by priority and a worker thread performs it:
//
//	fsys, _ := vfs.New(vfs.HostStorage("/games/dolphin/files"), nil)
//	f, err := fsys.Open("/audio/bgm.adp")
//	...
//	ok := f.ReadAsync(buf, 0x8000, func(ctx context.Context, n int, err error) {
//		// runs on a worker thread
//	})
//
// Reads never run past the end of a file: a request is clamped to the bytes
// that remain, and a request at or past the end reads nothing.
//
// # Storage
//
// HostStorage confines lookups to a host directory with os.Root.
// MappedStorage maps each opened file read-only into memory. FSStorage
// adapts any fs.FS; tests use it with testing/fstest.
//
// # Priorities
//
// Waiting blocks sit in four FIFO buckets, PriorityHighest through
// PriorityLowest. With Config.Workers set, that many worker threads drain
// the buckets highest first. With Workers at zero every read gets its own
// thread and the buckets only hold blocks for the moment before it starts.
package vfs
