package alloc

import (
	"fmt"
	"sync"
	"time"

	"github.com/mit-pdos/go-ffs/bitmap"
	"github.com/mit-pdos/go-ffs/common"
	"github.com/mit-pdos/go-ffs/disk"
	"github.com/mit-pdos/go-ffs/super"
	"github.com/mit-pdos/go-ffs/util"
)

// pool is one class of allocatable numbers (blocks or inodes) tracked by a
// single bitmap block and one superblock counter.
type pool struct {
	name   string
	lock   *sync.Mutex // protects the bitmap block and free
	bitmap common.Bnum
	start  uint32  // first number to try
	end    uint32  // one past the last number
	max    uint32  // largest legal value of *free
	free   *uint32 // superblock counter, also guarded by Alloc.sblock
}

// Alloc hands out blocks and inodes lowest-number-first. A number is in use
// iff its bit is set; the superblock counters are kept in step with the
// bitmaps on every call.
//
// Allocation writes the decremented counter before setting the bit and
// freeing clears the bit before writing the incremented counter, so if only
// one of the two writes reaches the disk the counter understates free space.
type Alloc struct {
	d      disk.Disk
	sb     *super.Superblock
	sblock *sync.Mutex // protects sb
	blocks pool
	inodes pool
}

func MkAlloc(d disk.Disk, sb *super.Superblock) *Alloc {
	a := &Alloc{
		d:      d,
		sb:     sb,
		sblock: new(sync.Mutex),
		blocks: pool{
			name:   "block",
			lock:   new(sync.Mutex),
			bitmap: sb.BlockBitmapBlock,
			start:  uint32(sb.FirstDataBlock),
			end:    sb.TotalBlocks,
			max:    sb.TotalBlocks - uint32(sb.FirstDataBlock),
			free:   &sb.FreeBlocks,
		},
		// Inode 0 is kept out of circulation by its pre-set bitmap bit, not
		// by the scan range.
		inodes: pool{
			name:   "inode",
			lock:   new(sync.Mutex),
			bitmap: sb.InodeBitmapBlock,
			start:  0,
			end:    sb.InodeCount + 1,
			max:    sb.InodeCount,
			free:   &sb.FreeInodes,
		},
	}
	return a
}

func (a *Alloc) readBitmap(p *pool) (bitmap.Bitmap, error) {
	blk, err := a.d.Read(p.bitmap)
	if err != nil {
		return nil, fmt.Errorf("read %s bitmap: %w", p.name, err)
	}
	return bitmap.Bitmap(blk), nil
}

func (a *Alloc) writeBitmap(p *pool, bm bitmap.Bitmap) error {
	if err := a.d.Write(p.bitmap, bm); err != nil {
		return fmt.Errorf("write %s bitmap: %w", p.name, err)
	}
	return nil
}

// adjustFree applies delta to p's counter and persists the superblock. If the
// write fails the in-memory superblock is left as it was.
func (a *Alloc) adjustFree(p *pool, delta int) error {
	a.sblock.Lock()
	defer a.sblock.Unlock()
	oldFree, oldTime := *p.free, a.sb.LastWriteTime
	if delta < 0 {
		*p.free--
	} else {
		*p.free++
	}
	a.sb.Touch(time.Now().Unix())
	if err := a.sb.Write(a.d); err != nil {
		*p.free, a.sb.LastWriteTime = oldFree, oldTime
		return fmt.Errorf("write superblock: %w", err)
	}
	return nil
}

func (a *Alloc) numFree(p *pool) uint32 {
	a.sblock.Lock()
	defer a.sblock.Unlock()
	return *p.free
}

func mismatch(p *pool, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %s: %w", p.name, fmt.Sprintf(format, args...), common.ErrCounterMismatch)
}

// allocNum returns the lowest free number of p, or 0 and no error when the
// pool is exhausted.
func (a *Alloc) allocNum(p *pool) (uint32, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	bm, err := a.readBitmap(p)
	if err != nil {
		return 0, err
	}
	n, ok := bm.FindFreeFrom(p.start, p.end)
	free := a.numFree(p)
	if !ok {
		if free != 0 {
			return 0, mismatch(p, "bitmap full but counter says %d free", free)
		}
		util.DPrintf(1, "allocNum: no free %s\n", p.name)
		return 0, nil
	}
	if free == 0 {
		return 0, mismatch(p, "counter is 0 but %d is free", n)
	}

	if err := bm.Set(n); err != nil {
		return 0, err
	}
	if err := a.adjustFree(p, -1); err != nil {
		return 0, err
	}
	if err := a.writeBitmap(p, bm); err != nil {
		// the bit never reached the disk; give the unit back
		if rerr := a.adjustFree(p, 1); rerr != nil {
			util.DPrintf(1, "allocNum: restore %s counter: %v\n", p.name, rerr)
		}
		return 0, err
	}
	util.DPrintf(5, "allocNum: %s %d (bitmap block %d)\n", p.name, n, p.bitmap)
	return n, nil
}

func (a *Alloc) freeNum(p *pool, n uint32) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	bm, err := a.readBitmap(p)
	if err != nil {
		return err
	}
	used, err := bm.Test(n)
	if err != nil {
		return err
	}
	if !used {
		return fmt.Errorf("%s %d: %w", p.name, n, common.ErrDoubleFree)
	}
	if free := a.numFree(p); free >= p.max {
		return mismatch(p, "%d in use but counter says all %d free", n, free)
	}

	if err := bm.Clear(n); err != nil {
		return err
	}
	if err := a.writeBitmap(p, bm); err != nil {
		return err
	}
	if err := a.adjustFree(p, 1); err != nil {
		// put the bit back so the bitmap agrees with the unchanged counter
		if serr := bm.Set(n); serr == nil {
			if rerr := a.writeBitmap(p, bm); rerr != nil {
				util.DPrintf(1, "freeNum: restore %s bit %d: %v\n", p.name, n, rerr)
			}
		}
		return err
	}
	util.DPrintf(5, "freeNum: %s %d\n", p.name, n)
	return nil
}

// AllocBlock reserves the lowest free data block. It returns
// common.NULLBNUM, with no error, when the volume is full.
func (a *Alloc) AllocBlock() (common.Bnum, error) {
	n, err := a.allocNum(&a.blocks)
	return common.Bnum(n), err
}

// AllocInode reserves the lowest free inode number. It returns
// common.NULLINUM, with no error, when no inode is free.
func (a *Alloc) AllocInode() (common.Inum, error) {
	n, err := a.allocNum(&a.inodes)
	return common.Inum(n), err
}

func (a *Alloc) FreeBlock(bn common.Bnum) error {
	if bn < a.sb.FirstDataBlock || uint32(bn) >= a.sb.TotalBlocks {
		return fmt.Errorf("free of non-data block %d: %w", bn, common.ErrInvalidArgument)
	}
	return a.freeNum(&a.blocks, uint32(bn))
}

// FreeInode releases inum. The reserved inode 0 and the root inode can never
// be freed.
func (a *Alloc) FreeInode(inum common.Inum) error {
	if inum == common.NULLINUM || inum == a.sb.RootInode || inum > a.sb.InodeCount {
		return fmt.Errorf("free of inode %d: %w", inum, common.ErrInvalidArgument)
	}
	return a.freeNum(&a.inodes, uint32(inum))
}

func (a *Alloc) NumFreeBlocks() uint32 {
	return a.numFree(&a.blocks)
}

func (a *Alloc) NumFreeInodes() uint32 {
	return a.numFree(&a.inodes)
}
