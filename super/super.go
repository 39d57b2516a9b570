// Package super holds the superblock: the volume's geometry and its free
// space counters. It lives at block 0 and is the single authority on how many
// blocks and inodes are free.
package super

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"time"

	"github.com/google/uuid"
	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-ffs/common"
	"github.com/mit-pdos/go-ffs/disk"
	"github.com/mit-pdos/go-ffs/layout"
)

const (
	StateClean   uint32 = 0
	StateMounted uint32 = 1

	NBACKUP = 5

	// the checksum covers every byte before it
	checksumOff = common.SBSZ - 4
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

type Superblock struct {
	Magic       uint32
	Version     uint32
	BlockSize   uint32
	TotalBlocks uint32
	FsSize      uint64

	InodeCount       uint32
	FreeInodes       uint32
	FirstInodeBlock  common.Bnum
	InodeBlocks      uint32
	InodeBitmapBlock common.Bnum

	FreeBlocks       uint32
	FirstDataBlock   common.Bnum
	BlockBitmapBlock common.Bnum

	RootInode common.Inum
	InodeSize uint32

	CreatedTime   int64
	LastMountTime int64
	LastWriteTime int64

	MountCount uint32
	State      uint32

	// Not yet written; kept so backup copies can be added without a format
	// change.
	BackupSuperblock [NBACKUP]common.Bnum

	UUID uuid.UUID
}

// New computes the superblock of a fresh volume of totalBlocks blocks of
// blockSize bytes.
func New(blockSize uint32, totalBlocks uint32) (*Superblock, error) {
	g, err := layout.New(blockSize, totalBlocks)
	if err != nil {
		return nil, err
	}
	return FromGeometry(g), nil
}

// FromGeometry returns the superblock of a freshly formatted volume: every
// data block and every inode is free.
func FromGeometry(g layout.Geometry) *Superblock {
	now := time.Now().Unix()
	return &Superblock{
		Magic:       common.MAGIC,
		Version:     common.VERSION,
		BlockSize:   g.BlockSize,
		TotalBlocks: g.TotalBlocks,
		FsSize:      g.FsSize(),

		InodeCount:       g.InodeCount,
		FreeInodes:       g.InodeCount,
		FirstInodeBlock:  g.FirstInodeBlock,
		InodeBlocks:      g.InodeBlocks,
		InodeBitmapBlock: g.InodeBitmapBlock,

		FreeBlocks:       g.DataBlocks(),
		FirstDataBlock:   g.FirstDataBlock,
		BlockBitmapBlock: g.BlockBitmapBlock,

		RootInode: g.RootInum,
		InodeSize: common.INODESZ,

		CreatedTime:   now,
		LastMountTime: now,
		LastWriteTime: now,

		MountCount: 0,
		State:      StateClean,

		UUID: uuid.New(),
	}
}

// Geometry returns the layout recorded in the superblock.
func (sb *Superblock) Geometry() layout.Geometry {
	return layout.Geometry{
		BlockSize:        sb.BlockSize,
		TotalBlocks:      sb.TotalBlocks,
		InodeCount:       sb.InodeCount,
		InodeBlocks:      sb.InodeBlocks,
		BlockBitmapBlock: sb.BlockBitmapBlock,
		InodeBitmapBlock: sb.InodeBitmapBlock,
		FirstInodeBlock:  sb.FirstInodeBlock,
		FirstDataBlock:   sb.FirstDataBlock,
		RootInum:         sb.RootInode,
	}
}

func corrupt(format string, a ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, a...), common.ErrCorruptSuperblock)
}

// Validate checks that the superblock describes the one layout this version
// knows and that its counters are within range.
func (sb *Superblock) Validate() error {
	if sb.Magic != common.MAGIC {
		return fmt.Errorf("magic 0x%08x: %w", sb.Magic, common.ErrBadMagic)
	}
	if sb.Version != common.VERSION {
		return corrupt("version %d", sb.Version)
	}
	if sb.InodeSize != common.INODESZ {
		return corrupt("inode size %d", sb.InodeSize)
	}
	want, err := layout.New(sb.BlockSize, sb.TotalBlocks)
	if err != nil {
		return corrupt("geometry: %v", err)
	}
	if sb.Geometry() != want {
		return corrupt("layout %+v differs from %+v", sb.Geometry(), want)
	}
	if sb.FsSize != want.FsSize() {
		return corrupt("fs size %d, want %d", sb.FsSize, want.FsSize())
	}
	if sb.FreeBlocks > want.DataBlocks() {
		return corrupt("%d free blocks of %d data blocks", sb.FreeBlocks, want.DataBlocks())
	}
	if sb.FreeInodes > sb.InodeCount {
		return corrupt("%d free inodes of %d", sb.FreeInodes, sb.InodeCount)
	}
	return nil
}

// Encode lays the superblock out as a common.SBSZ-byte little-endian record.
func (sb *Superblock) Encode() []byte {
	enc := marshal.NewEnc(uint64(common.SBSZ))
	enc.PutInt32(sb.Magic)
	enc.PutInt32(sb.Version)
	enc.PutInt32(sb.BlockSize)
	enc.PutInt32(sb.TotalBlocks)
	enc.PutInt(sb.FsSize)

	enc.PutInt32(sb.InodeCount)
	enc.PutInt32(sb.FreeInodes)
	enc.PutInt32(sb.FirstInodeBlock)
	enc.PutInt32(sb.InodeBlocks)
	enc.PutInt32(sb.InodeBitmapBlock)

	enc.PutInt32(sb.FreeBlocks)
	enc.PutInt32(sb.FirstDataBlock)
	enc.PutInt32(sb.BlockBitmapBlock)

	enc.PutInt32(sb.RootInode)
	enc.PutInt32(sb.InodeSize)

	enc.PutInt(uint64(sb.CreatedTime))
	enc.PutInt(uint64(sb.LastMountTime))
	enc.PutInt(uint64(sb.LastWriteTime))

	enc.PutInt32(sb.MountCount)
	enc.PutInt32(sb.State)

	for _, bn := range sb.BackupSuperblock {
		enc.PutInt32(bn)
	}
	enc.PutInt(binary.LittleEndian.Uint64(sb.UUID[:8]))
	enc.PutInt(binary.LittleEndian.Uint64(sb.UUID[8:]))

	// the reserved area stays zero
	b := enc.Finish()
	binary.LittleEndian.PutUint32(b[checksumOff:], crc32.Checksum(b[:checksumOff], castagnoli))
	return b
}

// Decode parses and validates a record produced by Encode. b may be longer
// than the record (a whole block 0).
func Decode(b []byte) (*Superblock, error) {
	if uint32(len(b)) < common.SBSZ {
		return nil, corrupt("record of %d bytes", len(b))
	}
	b = b[:common.SBSZ]
	dec := marshal.NewDec(b)
	sb := &Superblock{}
	sb.Magic = dec.GetInt32()
	if sb.Magic != common.MAGIC {
		return nil, fmt.Errorf("magic 0x%08x: %w", sb.Magic, common.ErrBadMagic)
	}
	sum := binary.LittleEndian.Uint32(b[checksumOff:])
	if crc := crc32.Checksum(b[:checksumOff], castagnoli); crc != sum {
		return nil, corrupt("checksum 0x%08x, computed 0x%08x", sum, crc)
	}
	sb.Version = dec.GetInt32()
	sb.BlockSize = dec.GetInt32()
	sb.TotalBlocks = dec.GetInt32()
	sb.FsSize = dec.GetInt()

	sb.InodeCount = dec.GetInt32()
	sb.FreeInodes = dec.GetInt32()
	sb.FirstInodeBlock = dec.GetInt32()
	sb.InodeBlocks = dec.GetInt32()
	sb.InodeBitmapBlock = dec.GetInt32()

	sb.FreeBlocks = dec.GetInt32()
	sb.FirstDataBlock = dec.GetInt32()
	sb.BlockBitmapBlock = dec.GetInt32()

	sb.RootInode = dec.GetInt32()
	sb.InodeSize = dec.GetInt32()

	sb.CreatedTime = int64(dec.GetInt())
	sb.LastMountTime = int64(dec.GetInt())
	sb.LastWriteTime = int64(dec.GetInt())

	sb.MountCount = dec.GetInt32()
	sb.State = dec.GetInt32()

	for i := range sb.BackupSuperblock {
		sb.BackupSuperblock[i] = dec.GetInt32()
	}
	binary.LittleEndian.PutUint64(sb.UUID[:8], dec.GetInt())
	binary.LittleEndian.PutUint64(sb.UUID[8:], dec.GetInt())

	if err := sb.Validate(); err != nil {
		return nil, err
	}
	return sb, nil
}

// Write stores the superblock in block 0 of d; the rest of the block is
// zeroed.
func (sb *Superblock) Write(d disk.Disk) error {
	if d.BlockSize() != sb.BlockSize {
		return fmt.Errorf("%d-byte superblock on %d-byte disk: %w",
			sb.BlockSize, d.BlockSize(), common.ErrInvalidArgument)
	}
	blk := make(disk.Block, sb.BlockSize)
	copy(blk, sb.Encode())
	return d.Write(common.SUPERBLOCK, blk)
}

// Read loads and validates the superblock in block 0 of d.
func Read(d disk.Disk) (*Superblock, error) {
	blk, err := d.Read(common.SUPERBLOCK)
	if err != nil {
		return nil, err
	}
	sb, err := Decode(blk)
	if err != nil {
		return nil, err
	}
	if sb.BlockSize != d.BlockSize() {
		return nil, corrupt("block size %d on %d-byte disk", sb.BlockSize, d.BlockSize())
	}
	return sb, nil
}

// Probe reads the superblock of the image at path without knowing its block
// size: block 0 starts at offset 0 for every block size, and the record fits
// in the smallest one.
func Probe(path string) (*Superblock, error) {
	blk := make([]byte, common.MinBlockSize)
	if err := disk.ReadBlock(path, blk, common.MinBlockSize, common.SUPERBLOCK); err != nil {
		return nil, err
	}
	return Decode(blk)
}

func (sb *Superblock) MarkMounted(now int64) {
	sb.MountCount++
	sb.LastMountTime = now
	sb.State = StateMounted
}

func (sb *Superblock) MarkClean(now int64) {
	sb.State = StateClean
	sb.LastWriteTime = now
}

// Touch records a write to the volume.
func (sb *Superblock) Touch(now int64) {
	sb.LastWriteTime = now
}
