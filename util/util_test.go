package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundUp(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(uint64(4), RoundUp(10, 3))
	assert.Equal(uint64(3), RoundUp(9, 3), "exact division")
	assert.Equal(uint64(0), RoundUp(0, 3))
	assert.Equal(uint64(5), RoundUp(4096*4+4095, 4096))
	assert.Equal(uint64(5), RoundUp(4096*4+1, 4096), "round up by sz-1")
}

func TestIsPowerOfTwo(t *testing.T) {
	assert := assert.New(t)
	assert.True(IsPowerOfTwo(512))
	assert.True(IsPowerOfTwo(4096))
	assert.False(IsPowerOfTwo(0))
	assert.False(IsPowerOfTwo(4095))
	assert.False(IsPowerOfTwo(3000))
}
