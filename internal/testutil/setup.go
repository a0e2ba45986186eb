package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

// Pattern returns n bytes whose value depends on their offset, so a read
// from the wrong position is visible in a comparison.
func Pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + i>>8)
	}
	return b
}

// WriteRoot writes files, keyed by slash path, into a new temporary
// directory and returns it. Parent directories are created as needed; a
// key ending in "/" creates an empty directory.
//
// Example:
//
//	dir := testutil.WriteRoot(t, testutil.DiscLayout())
//	st, _ := vfs.HostStorage(dir)
func WriteRoot(t *testing.T, files map[string][]byte) string {
	t.Helper()
	dir := t.TempDir()
	for name, data := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if name[len(name)-1] == '/' {
			require.NoError(t, os.MkdirAll(p, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, data, 0o644))
	}
	return dir
}

// MapFS converts files to an in-memory fstest.MapFS using the same key
// conventions as WriteRoot.
func MapFS(files map[string][]byte) fstest.MapFS {
	m := fstest.MapFS{}
	for name, data := range files {
		if name[len(name)-1] == '/' {
			m[name[:len(name)-1]] = &fstest.MapFile{Mode: os.ModeDir | 0o755}
			continue
		}
		m[name] = &fstest.MapFile{Data: data, Mode: 0o644}
	}
	return m
}
