// Package osrt assembles the runtime into one System: a guest memory
// arena with its heaps, the alarm scheduler, the virtual file system and
// the adopted main thread.
//
// A host builds one System at startup and passes it, or the context it
// returns, to guest code:
//
//	sys, err := osrt.New(context.Background(), osrt.Config{
//		ArenaSize:   24 << 20,
//		DefaultHeap: true,
//		Root:        "/games/gzle/files",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer sys.Close()
//
//	p, err := sys.Arena.Alloc(512)
//
// Independent Systems share nothing, so tests create as many as they need.
package osrt
