package addr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMkAddr(t *testing.T) {
	assert := assert.New(t)
	a := MkAddr(3, 200)
	assert.Equal(uint32(3), a.Blkno)
	assert.Equal(uint32(200), a.Off)
	assert.Equal("3:200", a.String())
}
