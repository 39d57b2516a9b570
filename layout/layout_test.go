package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-ffs/addr"
	"github.com/mit-pdos/go-ffs/common"
)

func TestDefaultGeometry(t *testing.T) {
	assert := assert.New(t)
	g, err := New(4096, 5000)
	require.NoError(t, err)

	assert.Equal(uint64(20480000), g.FsSize())
	assert.Equal(uint32(320), g.InodeCount)
	assert.Equal(uint32(40), g.InodesPerBlock())
	assert.Equal(common.Bnum(11), g.FirstDataBlock)
	assert.Equal(uint32(4989), g.DataBlocks())
}

func TestRejectsBadGeometry(t *testing.T) {
	tests := []struct {
		name        string
		blockSize   uint32
		totalBlocks uint32
	}{
		{"no data blocks", 4096, 11},
		{"too small", 4096, 3},
		{"not a power of two", 4000, 5000},
		{"block too small", 256, 100},
		{"bitmap overflow", 4096, 4096*8 + 1},
		{"inode table too small", 512, 1000},
	}
	for _, tt := range tests {
		_, err := New(tt.blockSize, tt.totalBlocks)
		assert.ErrorIs(t, err, common.ErrInvalidArgument, tt.name)
	}
}

func TestLargestVolume(t *testing.T) {
	g, err := New(4096, 4096*8)
	require.NoError(t, err)
	assert.Equal(t, uint32(4096*8-11), g.DataBlocks())
}

func TestInodeAddr(t *testing.T) {
	assert := assert.New(t)
	g, err := New(4096, 5000)
	require.NoError(t, err)

	a, err := g.InodeAddr(1)
	assert.NoError(err)
	assert.Equal(addr.MkAddr(3, 0), a)

	a, err = g.InodeAddr(2)
	assert.NoError(err)
	assert.Equal(addr.MkAddr(3, 100), a)

	a, err = g.InodeAddr(40)
	assert.NoError(err)
	assert.Equal(addr.MkAddr(3, 3900), a)

	a, err = g.InodeAddr(41)
	assert.NoError(err)
	assert.Equal(addr.MkAddr(4, 0), a)

	a, err = g.InodeAddr(320)
	assert.NoError(err)
	assert.Equal(addr.MkAddr(10, 3900), a)

	for _, inum := range []common.Inum{0, 321} {
		_, err = g.InodeAddr(inum)
		assert.ErrorIs(err, common.ErrInvalidArgument)
	}
}

func TestRecordsNeverStraddle(t *testing.T) {
	for _, bs := range []uint32{4096, 8192, 16384} {
		g, err := New(bs, 1000)
		require.NoError(t, err)
		for inum := common.Inum(1); inum <= g.InodeCount; inum++ {
			a, err := g.InodeAddr(inum)
			require.NoError(t, err)
			assert.LessOrEqual(t, a.Off+common.INODESZ, bs)
			assert.Less(t, a.Blkno, g.FirstDataBlock)
		}
	}
}

func TestSmallBlocksCannotHoldInodeTable(t *testing.T) {
	for _, bs := range []uint32{1024, 2048} {
		_, err := New(bs, 1000)
		assert.ErrorIs(t, err, common.ErrInvalidArgument)
	}
}
