package volume

import (
	"fmt"

	"github.com/mit-pdos/go-ffs/bitmap"
	"github.com/mit-pdos/go-ffs/common"
)

// Report is the result of comparing the bitmaps with the superblock.
type Report struct {
	FreeBlocks       uint32 // superblock counter
	FreeInodes       uint32
	BitmapFreeBlocks uint32 // clear bits in the allocatable range
	BitmapFreeInodes uint32

	ReservedBlocksMissing []common.Bnum
	SentinelMissing       bool
	RootMissing           bool
}

func (r Report) OK() bool {
	return r.FreeBlocks == r.BitmapFreeBlocks && r.FreeInodes == r.BitmapFreeInodes &&
		len(r.ReservedBlocksMissing) == 0 && !r.SentinelMissing && !r.RootMissing
}

func (r Report) String() string {
	return fmt.Sprintf("blocks free %d (bitmap %d), inodes free %d (bitmap %d), "+
		"reserved missing %v, sentinel missing %t, root missing %t",
		r.FreeBlocks, r.BitmapFreeBlocks, r.FreeInodes, r.BitmapFreeInodes,
		r.ReservedBlocksMissing, r.SentinelMissing, r.RootMissing)
}

// Check compares both bitmaps against the superblock counters. It never
// repairs anything; on any disagreement the report is returned together with
// an error wrapping common.ErrCounterMismatch.
func (v *Volume) Check() (Report, error) {
	var r Report
	g := v.Geom

	blk, err := v.Disk.Read(g.BlockBitmapBlock)
	if err != nil {
		return r, err
	}
	bbm := bitmap.Bitmap(blk)
	blk, err = v.Disk.Read(g.InodeBitmapBlock)
	if err != nil {
		return r, err
	}
	ibm := bitmap.Bitmap(blk)

	r.FreeBlocks = v.Alloc.NumFreeBlocks()
	r.FreeInodes = v.Alloc.NumFreeInodes()

	start := uint32(g.FirstDataBlock)
	r.BitmapFreeBlocks = g.TotalBlocks - start - bbm.CountSet(start, g.TotalBlocks)
	for bn := common.Bnum(0); bn < g.FirstDataBlock; bn++ {
		if set, _ := bbm.Test(uint32(bn)); !set {
			r.ReservedBlocksMissing = append(r.ReservedBlocksMissing, bn)
		}
	}

	// inode numbers 1..InodeCount; bit 0 is the sentinel
	r.BitmapFreeInodes = g.InodeCount - ibm.CountSet(1, g.InodeCount+1)
	set, _ := ibm.Test(uint32(common.NULLINUM))
	r.SentinelMissing = !set
	set, _ = ibm.Test(uint32(g.RootInum))
	r.RootMissing = !set

	if !r.OK() {
		return r, fmt.Errorf("%v: %w", r, common.ErrCounterMismatch)
	}
	return r, nil
}
