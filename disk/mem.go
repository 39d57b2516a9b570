package disk

import (
	"fmt"
	"sync"

	gdisk "github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/go-ffs/common"
)

var _ Disk = (*MemDisk)(nil)

// MemDisk keeps every block in memory.
type MemDisk struct {
	l         *sync.RWMutex
	blockSize uint32
	blocks    [][]byte
}

func NewMemDisk(blockSize uint32, numBlocks uint64) *MemDisk {
	blocks := make([][]byte, numBlocks)
	for i := range blocks {
		blocks[i] = make([]byte, blockSize)
	}
	return &MemDisk{l: new(sync.RWMutex), blockSize: blockSize, blocks: blocks}
}

func (d *MemDisk) check(a common.Bnum, b Block) error {
	if uint64(len(b)) != uint64(d.blockSize) {
		return fmt.Errorf("buffer of %d bytes for %d-byte block: %w",
			len(b), d.blockSize, common.ErrInvalidArgument)
	}
	if int(a) >= len(d.blocks) {
		return fmt.Errorf("block %d of %d: %w", a, len(d.blocks), common.ErrInvalidArgument)
	}
	return nil
}

func (d *MemDisk) ReadTo(a common.Bnum, buf Block) error {
	if err := d.check(a, buf); err != nil {
		return err
	}
	d.l.RLock()
	defer d.l.RUnlock()
	copy(buf, d.blocks[a])
	return nil
}

func (d *MemDisk) Read(a common.Bnum) (Block, error) {
	buf := make(Block, d.blockSize)
	err := d.ReadTo(a, buf)
	return buf, err
}

func (d *MemDisk) Write(a common.Bnum, v Block) error {
	if err := d.check(a, v); err != nil {
		return err
	}
	d.l.Lock()
	defer d.l.Unlock()
	copy(d.blocks[a], v)
	return nil
}

func (d *MemDisk) Size() (uint64, error) {
	// this never changes so we assume it's safe to run lock-free
	return uint64(len(d.blocks)), nil
}

func (d *MemDisk) BlockSize() uint32 { return d.blockSize }

func (d *MemDisk) Barrier() error { return nil }

func (d *MemDisk) Close() error { return nil }

var _ Disk = (*GooseDisk)(nil)

// GooseDisk adapts a goose machine disk, which always has 4096-byte blocks
// and panics on bad addresses, to Disk.
type GooseDisk struct {
	d gdisk.Disk
}

func Wrap(d gdisk.Disk) *GooseDisk {
	return &GooseDisk{d: d}
}

func (d *GooseDisk) check(a common.Bnum, b Block) error {
	if uint64(len(b)) != gdisk.BlockSize {
		return fmt.Errorf("buffer of %d bytes for %d-byte block: %w",
			len(b), gdisk.BlockSize, common.ErrInvalidArgument)
	}
	if uint64(a) >= d.d.Size() {
		return fmt.Errorf("block %d of %d: %w", a, d.d.Size(), common.ErrInvalidArgument)
	}
	return nil
}

func (d *GooseDisk) ReadTo(a common.Bnum, buf Block) error {
	if err := d.check(a, buf); err != nil {
		return err
	}
	copy(buf, d.d.Read(uint64(a)))
	return nil
}

func (d *GooseDisk) Read(a common.Bnum) (Block, error) {
	buf := make(Block, gdisk.BlockSize)
	err := d.ReadTo(a, buf)
	return buf, err
}

func (d *GooseDisk) Write(a common.Bnum, v Block) error {
	if err := d.check(a, v); err != nil {
		return err
	}
	d.d.Write(uint64(a), v)
	return nil
}

func (d *GooseDisk) Size() (uint64, error) {
	return d.d.Size(), nil
}

func (d *GooseDisk) BlockSize() uint32 {
	return uint32(gdisk.BlockSize)
}

func (d *GooseDisk) Barrier() error {
	d.d.Barrier()
	return nil
}

func (d *GooseDisk) Close() error {
	d.d.Close()
	return nil
}
