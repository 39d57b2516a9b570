package disk

import (
	"github.com/mit-pdos/go-ffs/common"
)

// Block is a block-sized buffer
type Block = []byte

// Disk provides access to a logical block-based disk
type Disk interface {
	// Read reads a disk block by address
	//
	// Expects a < Size().
	Read(a common.Bnum) (Block, error)

	// ReadTo reads the disk block at a and stores the result in b
	//
	// Expects a < Size() and len(b) == BlockSize().
	ReadTo(a common.Bnum, b Block) error

	// Write updates a disk block by address
	//
	// Expects a < Size() and len(v) == BlockSize().
	Write(a common.Bnum, v Block) error

	// Size reports how big the disk is, in blocks
	Size() (uint64, error)

	// BlockSize reports the size of every block, in bytes
	BlockSize() uint32

	// Barrier ensures data is persisted.
	//
	// When it returns, all outstanding writes are guaranteed to be durably on
	// disk
	Barrier() error

	// Close releases any resources used by the disk and makes it unusable.
	Close() error
}
