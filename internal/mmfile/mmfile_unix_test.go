//go:build linux || darwin

package mmfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disc.bin")
	want := []byte{0xde, 0xad, 0xbe, 0xef, 0x42}
	require.NoError(t, os.WriteFile(path, want, 0o644))

	data, cleanup, err := Map(path)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, cleanup())
	}()
	assert.Equal(t, want, data)
}

func TestMapZeroLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	data, cleanup, err := Map(path)
	require.NoError(t, err)
	assert.Empty(t, data)
	require.NotNil(t, cleanup)
	require.NoError(t, cleanup())
}

func TestMapMissing(t *testing.T) {
	_, _, err := Map(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestMapDirectory(t *testing.T) {
	_, _, err := Map(t.TempDir())
	require.Error(t, err)
}

func TestAnonymous(t *testing.T) {
	data, cleanup, err := Anonymous(1 << 16)
	require.NoError(t, err)
	require.Len(t, data, 1<<16)
	assert.Equal(t, byte(0), data[100])
	data[100] = 7
	assert.Equal(t, byte(7), data[100])
	require.NoError(t, cleanup())
	require.NoError(t, cleanup(), "double unmap is a no-op")

	_, _, err = Anonymous(0)
	require.Error(t, err)
}

func TestMapFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opening.bnr")
	want := []byte("BNR1 banner")
	require.NoError(t, os.WriteFile(path, want, 0o644))

	f, err := os.Open(path)
	require.NoError(t, err)
	data, cleanup, err := MapFile(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.Equal(t, want, data, "mapping outlives the descriptor")
	require.NoError(t, cleanup())
}
