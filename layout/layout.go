// Package layout describes where everything lives on a volume.
//
// A Geometry is computed once, at format time, from the block size and the
// volume size, and is then passed to every component that needs to find a
// reserved region. Nothing else in the module hard-codes block numbers.
package layout

import (
	"fmt"

	"github.com/mit-pdos/go-ffs/addr"
	"github.com/mit-pdos/go-ffs/common"
	"github.com/mit-pdos/go-ffs/util"
)

type Geometry struct {
	BlockSize   uint32
	TotalBlocks uint32

	InodeCount  uint32
	InodeBlocks uint32

	BlockBitmapBlock common.Bnum
	InodeBitmapBlock common.Bnum
	FirstInodeBlock  common.Bnum
	FirstDataBlock   common.Bnum

	RootInum common.Inum
}

// New returns the fixed layout for a volume of totalBlocks blocks of
// blockSize bytes: superblock, block bitmap, inode bitmap, an 8-block inode
// table and then data.
func New(blockSize uint32, totalBlocks uint32) (Geometry, error) {
	g := Geometry{
		BlockSize:        blockSize,
		TotalBlocks:      totalBlocks,
		InodeCount:       common.NINODES,
		InodeBlocks:      common.NINODEBLOCKS,
		BlockBitmapBlock: common.BLOCKBITMAPBLOCK,
		InodeBitmapBlock: common.INODEBITMAPBLOCK,
		FirstInodeBlock:  common.FIRSTINODEBLOCK,
		FirstDataBlock:   common.FIRSTDATABLOCK,
		RootInum:         common.ROOTINUM,
	}
	if err := g.Validate(); err != nil {
		return Geometry{}, err
	}
	return g, nil
}

func (g Geometry) Validate() error {
	if !util.IsPowerOfTwo(g.BlockSize) || g.BlockSize < common.MinBlockSize ||
		g.BlockSize > common.MaxBlockSize {
		return fmt.Errorf("block size %d: %w", g.BlockSize, common.ErrInvalidArgument)
	}
	if common.SBSZ > g.BlockSize {
		return fmt.Errorf("superblock does not fit in %d-byte block: %w",
			g.BlockSize, common.ErrInvalidArgument)
	}
	if g.FirstInodeBlock+common.Bnum(g.InodeBlocks) != g.FirstDataBlock {
		return fmt.Errorf("inode table [%d,+%d) overlaps data at %d: %w",
			g.FirstInodeBlock, g.InodeBlocks, g.FirstDataBlock, common.ErrInvalidArgument)
	}
	if g.TotalBlocks <= g.FirstDataBlock {
		return fmt.Errorf("%d blocks leaves no data blocks: %w",
			g.TotalBlocks, common.ErrInvalidArgument)
	}
	nbit := common.NBitBlock(g.BlockSize)
	if g.TotalBlocks > nbit {
		return fmt.Errorf("%d blocks exceed one %d-bit bitmap block: %w",
			g.TotalBlocks, nbit, common.ErrInvalidArgument)
	}
	// bit 0 of the inode bitmap is the reserved sentinel
	if uint64(g.InodeCount)+1 > uint64(nbit) {
		return fmt.Errorf("%d inodes exceed one %d-bit bitmap block: %w",
			g.InodeCount, nbit, common.ErrInvalidArgument)
	}
	if util.RoundUp(uint64(g.InodeCount), uint64(g.InodesPerBlock())) > uint64(g.InodeBlocks) {
		return fmt.Errorf("%d inodes of %d bytes do not fit in %d blocks of %d bytes: %w",
			g.InodeCount, common.INODESZ, g.InodeBlocks, g.BlockSize, common.ErrInvalidArgument)
	}
	return nil
}

func (g Geometry) FsSize() uint64 {
	return uint64(g.BlockSize) * uint64(g.TotalBlocks)
}

// InodesPerBlock is the number of whole inode records in one block. Records
// never straddle a block boundary; the remainder of each block is padding.
func (g Geometry) InodesPerBlock() uint32 {
	return g.BlockSize / common.INODESZ
}

func (g Geometry) DataBlocks() uint32 {
	return g.TotalBlocks - uint32(g.FirstDataBlock)
}

func (g Geometry) ValidInum(inum common.Inum) bool {
	return inum != common.NULLINUM && inum <= g.InodeCount
}

// InodeAddr returns the block and byte offset of inode inum. Inode numbers
// start at 1, so inode n occupies table slot n-1; the root sits at table
// offset 0 and the last inode still falls inside the table.
func (g Geometry) InodeAddr(inum common.Inum) (addr.Addr, error) {
	if !g.ValidInum(inum) {
		return addr.Addr{}, fmt.Errorf("inode %d: %w", inum, common.ErrInvalidArgument)
	}
	slot := inum - 1
	per := g.InodesPerBlock()
	return addr.MkAddr(g.FirstInodeBlock+common.Bnum(slot/per), (slot%per)*common.INODESZ), nil
}
