package common

const (
	MAGIC   uint32 = 0xF0F03410
	VERSION uint32 = 1

	FileTypeFile uint32 = 1
	FileTypeDir  uint32 = 2

	// Reserved blocks at the front of every volume.
	SUPERBLOCK       Bnum   = 0
	BLOCKBITMAPBLOCK Bnum   = 1
	INODEBITMAPBLOCK Bnum   = 2
	FIRSTINODEBLOCK  Bnum   = 3
	NINODEBLOCKS     uint32 = 8
	FIRSTDATABLOCK   Bnum   = FIRSTINODEBLOCK + Bnum(NINODEBLOCKS)

	NINODES uint32 = 320

	INODESZ uint32 = 100 // on-disk size
	SBSZ    uint32 = 240 // on-disk size

	NDIRECT uint32 = 12

	MinBlockSize uint32 = 512
	MaxBlockSize uint32 = 65536
)

type Inum = uint32
type Bnum = uint32

const (
	NULLINUM Inum = 0
	ROOTINUM Inum = 1
	NULLBNUM Bnum = 0
)

// NBitBlock is the number of bits a single bitmap block of blockSize bytes
// can track.
func NBitBlock(blockSize uint32) uint32 {
	return blockSize * 8
}
