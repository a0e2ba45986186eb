package fault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPanicfCarriesLocation(t *testing.T) {
	defer func() {
		fe, ok := From(recover())
		require.True(t, ok)
		assert.Equal(t, "fault_test.go", fe.File)
		assert.Positive(t, fe.Line)
		assert.Equal(t, "bad handle 7", fe.Msg)
		assert.Contains(t, fe.Error(), "fault_test.go:")
	}()
	Panicf("bad handle %d", 7)
}

func TestAssert(t *testing.T) {
	require.NotPanics(t, func() { Assert(true, "unused") })
	require.Panics(t, func() { Assert(false, "size %d", -1) })
}

func TestFromForeignValue(t *testing.T) {
	_, ok := From("not an error")
	assert.False(t, ok)
	_, ok = From(nil)
	assert.False(t, ok)
}
