package super

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-ffs/common"
	"github.com/mit-pdos/go-ffs/disk"
)

func TestNew(t *testing.T) {
	assert := assert.New(t)
	sb, err := New(4096, 5000)
	require.NoError(t, err)

	assert.Equal(common.MAGIC, sb.Magic)
	assert.Equal(uint32(1), sb.Version)
	assert.Equal(uint64(4096*5000), sb.FsSize)
	assert.Equal(uint32(4989), sb.FreeBlocks)
	assert.Equal(uint32(320), sb.InodeCount)
	assert.Equal(uint32(320), sb.FreeInodes)
	assert.Equal(common.Bnum(11), sb.FirstDataBlock)
	assert.Equal(common.Bnum(3), sb.FirstInodeBlock)
	assert.Equal(uint32(8), sb.InodeBlocks)
	assert.Equal(common.Bnum(1), sb.BlockBitmapBlock)
	assert.Equal(common.Bnum(2), sb.InodeBitmapBlock)
	assert.Equal(common.Inum(1), sb.RootInode)
	assert.Equal(uint32(0), sb.MountCount)
	assert.Equal(StateClean, sb.State)
	assert.NotZero(sb.CreatedTime)
	assert.Equal(sb.CreatedTime, sb.LastWriteTime)
	assert.NoError(sb.Validate())
}

func TestNewRejectsGeometry(t *testing.T) {
	_, err := New(4096, 11)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
	_, err = New(512, 5000)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestEncodeDecode(t *testing.T) {
	assert := assert.New(t)
	sb, err := New(4096, 5000)
	require.NoError(t, err)
	sb.FreeBlocks = 17
	sb.FreeInodes = 3
	sb.MarkMounted(1700000000)
	sb.BackupSuperblock[2] = 99

	b := sb.Encode()
	assert.Len(b, int(common.SBSZ))
	assert.Equal(common.MAGIC, binary.LittleEndian.Uint32(b[0:4]))
	assert.Equal(uint64(4096*5000), binary.LittleEndian.Uint64(b[16:24]))
	assert.Equal(uint32(17), binary.LittleEndian.Uint32(b[44:48]))
	assert.Equal(make([]byte, 104), b[132:236], "reserved area")

	sb2, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(sb, sb2)
	assert.Equal(b, sb2.Encode())
}

func TestWriteReadBlockZero(t *testing.T) {
	assert := assert.New(t)
	path := filepath.Join(t.TempDir(), "disk.img")
	require.NoError(t, disk.CreateImage(path, 4096*5000))
	d, err := disk.NewImageDisk(path, 4096, 5000)
	require.NoError(t, err)

	sb, err := New(4096, 5000)
	require.NoError(t, err)
	require.NoError(t, sb.Write(d))

	blk := make([]byte, 4096)
	require.NoError(t, disk.ReadBlock(path, blk, 4096, 0))
	assert.Equal(sb.Encode(), blk[:common.SBSZ], "byte-identical record")
	assert.Equal(make([]byte, 4096-common.SBSZ), blk[common.SBSZ:])

	sb2, err := Read(d)
	require.NoError(t, err)
	assert.Equal(sb, sb2)

	sb3, err := Probe(path)
	require.NoError(t, err)
	assert.Equal(sb, sb3)
}

func TestBadMagic(t *testing.T) {
	d := disk.NewMemDisk(4096, 16)
	_, err := Read(d)
	assert.ErrorIs(t, err, common.ErrBadMagic)

	sb, err := New(4096, 16)
	require.NoError(t, err)
	b := sb.Encode()
	b[0] ^= 0xFF
	_, err = Decode(b)
	assert.ErrorIs(t, err, common.ErrBadMagic)
}

func TestCorrupt(t *testing.T) {
	assert := assert.New(t)
	sb, err := New(4096, 5000)
	require.NoError(t, err)

	b := sb.Encode()
	b[50] ^= 1
	_, err = Decode(b)
	assert.ErrorIs(err, common.ErrCorruptSuperblock, "checksum")

	_, err = Decode(b[:100])
	assert.ErrorIs(err, common.ErrCorruptSuperblock, "short record")

	bad := *sb
	bad.FreeBlocks = 4990
	_, err = Decode(bad.Encode())
	assert.ErrorIs(err, common.ErrCorruptSuperblock, "free blocks above capacity")

	bad = *sb
	bad.FreeInodes = 321
	_, err = Decode(bad.Encode())
	assert.ErrorIs(err, common.ErrCorruptSuperblock, "free inodes above count")

	bad = *sb
	bad.FirstDataBlock = 12
	_, err = Decode(bad.Encode())
	assert.ErrorIs(err, common.ErrCorruptSuperblock, "layout")

	bad = *sb
	bad.Version = 2
	_, err = Decode(bad.Encode())
	assert.ErrorIs(err, common.ErrCorruptSuperblock, "version")

	bad = *sb
	bad.FsSize = 1
	_, err = Decode(bad.Encode())
	assert.ErrorIs(err, common.ErrCorruptSuperblock, "fs size")
}

func TestWrongDiskBlockSize(t *testing.T) {
	sb, err := New(4096, 64)
	require.NoError(t, err)
	d := disk.NewMemDisk(8192, 64)
	assert.ErrorIs(t, sb.Write(d), common.ErrInvalidArgument)
}

func TestMountBookkeeping(t *testing.T) {
	assert := assert.New(t)
	sb, err := New(4096, 64)
	require.NoError(t, err)
	sb.MarkMounted(100)
	sb.MarkMounted(200)
	assert.Equal(uint32(2), sb.MountCount)
	assert.Equal(int64(200), sb.LastMountTime)
	assert.Equal(StateMounted, sb.State)
	sb.MarkClean(300)
	assert.Equal(StateClean, sb.State)
	assert.Equal(int64(300), sb.LastWriteTime)
}
