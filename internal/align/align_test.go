package align

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpDown(t *testing.T) {
	cases := []struct {
		in, up, down int64
	}{
		{0, 0, 0},
		{1, 32, 0},
		{31, 32, 0},
		{32, 32, 32},
		{33, 64, 32},
		{100, 128, 96},
	}
	for _, c := range cases {
		assert.Equal(t, c.up, Up(c.in), "Up(%d)", c.in)
		assert.Equal(t, c.down, Down(c.in), "Down(%d)", c.in)
	}
}

func TestUint32Variants(t *testing.T) {
	assert.Equal(t, uint32(0x80000020), Up32(0x80000001))
	assert.Equal(t, uint32(0x80000000), Down32(0x8000001F))
	assert.True(t, Is(64))
	assert.False(t, Is(65))
}
