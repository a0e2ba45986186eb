package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRootAndMapFSAgree(t *testing.T) {
	files := DiscLayout()
	dir := WriteRoot(t, files)
	m := MapFS(files)

	got, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(SmallFile)))
	require.NoError(t, err)
	assert.Equal(t, Pattern(SmallSize), got)

	data, err := fs.ReadFile(m, SmallFile)
	require.NoError(t, err)
	assert.Equal(t, got, data)

	info, err := os.Stat(filepath.Join(dir, "empty"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	info, err = fs.Stat(m, "empty")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestPatternVaries(t *testing.T) {
	p := Pattern(512)
	assert.NotEqual(t, p[:256], p[256:])
	assert.Equal(t, Pattern(16), p[:16])
}
