// Package volume ties the block store, superblock, inode table and allocator
// together: it formats images, mounts them and manages the inode lifecycle.
package volume

import (
	"fmt"
	"os"
	"time"

	"github.com/mit-pdos/go-ffs/alloc"
	"github.com/mit-pdos/go-ffs/bitmap"
	"github.com/mit-pdos/go-ffs/common"
	"github.com/mit-pdos/go-ffs/disk"
	"github.com/mit-pdos/go-ffs/inode"
	"github.com/mit-pdos/go-ffs/layout"
	"github.com/mit-pdos/go-ffs/lockmap"
	"github.com/mit-pdos/go-ffs/logger"
	"github.com/mit-pdos/go-ffs/super"
	"github.com/mit-pdos/go-ffs/util"
)

const RootPerm uint32 = 0o755

type Volume struct {
	Disk  disk.Disk
	Super *super.Superblock
	Alloc *alloc.Alloc
	Geom  layout.Geometry

	// inode table blocks hold several records, so updates to any record
	// hold the lock of its block
	locks   *lockmap.LockMap
	mounted bool
}

func mkVolume(d disk.Disk, sb *super.Superblock) *Volume {
	return &Volume{
		Disk:  d,
		Super: sb,
		Alloc: alloc.MkAlloc(d, sb),
		Geom:  sb.Geometry(),
		locks: lockmap.MkLockMap(),
	}
}

func (v *Volume) lockInode(inum common.Inum) (common.Bnum, error) {
	a, err := v.Geom.InodeAddr(inum)
	if err != nil {
		return 0, err
	}
	v.locks.Acquire(a.Blkno)
	return a.Blkno, nil
}

// Format creates a new image at path and lays down an empty filesystem with
// a root directory. The geometry is checked before the image is created.
func Format(path string, blockSize uint32, totalBlocks uint32) (*Volume, error) {
	g, err := layout.New(blockSize, totalBlocks)
	if err != nil {
		return nil, err
	}
	if err := disk.CreateImage(path, g.FsSize()); err != nil {
		return nil, err
	}
	d, err := disk.NewImageDisk(path, g.BlockSize, uint64(g.TotalBlocks))
	if err != nil {
		return nil, err
	}
	v, err := formatDisk(d, g)
	if err != nil {
		d.Close()
		if rerr := os.Remove(path); rerr != nil {
			logger.LogWarn("remove partially formatted image", map[string]interface{}{
				"path":  path,
				"error": rerr.Error(),
			})
		}
		return nil, err
	}
	logger.LogInfo("formatted volume", map[string]interface{}{
		"path":        path,
		"block_size":  g.BlockSize,
		"blocks":      g.TotalBlocks,
		"free_blocks": v.Super.FreeBlocks,
		"free_inodes": v.Super.FreeInodes,
		"uuid":        v.Super.UUID.String(),
	})
	return v, nil
}

var formatDisk = FormatDisk

// FormatDisk writes the superblock, both bitmaps with the reserved entries
// marked, a zeroed inode table and the root inode to d.
func FormatDisk(d disk.Disk, g layout.Geometry) (*Volume, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if d.BlockSize() != g.BlockSize {
		return nil, fmt.Errorf("%d-byte geometry on %d-byte disk: %w",
			g.BlockSize, d.BlockSize(), common.ErrInvalidArgument)
	}
	if sz, err := d.Size(); err != nil {
		return nil, err
	} else if sz < uint64(g.TotalBlocks) {
		return nil, fmt.Errorf("%d-block geometry on %d-block disk: %w",
			g.TotalBlocks, sz, common.ErrInvalidArgument)
	}

	sb := super.FromGeometry(g)
	if err := sb.Write(d); err != nil {
		return nil, err
	}

	bbm := make(bitmap.Bitmap, g.BlockSize)
	if err := bbm.SetRange(0, uint32(g.FirstDataBlock)); err != nil {
		return nil, err
	}
	if err := d.Write(g.BlockBitmapBlock, bbm); err != nil {
		return nil, err
	}

	ibm := make(bitmap.Bitmap, g.BlockSize)
	if err := ibm.Set(uint32(common.NULLINUM)); err != nil {
		return nil, err
	}
	if err := d.Write(g.InodeBitmapBlock, ibm); err != nil {
		return nil, err
	}

	if err := inode.InitTable(d, g); err != nil {
		return nil, err
	}

	v := mkVolume(d, sb)
	inum, err := v.Alloc.AllocInode()
	if err != nil {
		return nil, err
	}
	if inum != g.RootInum {
		return nil, fmt.Errorf("root allocated as inode %d: %w", inum, common.ErrCounterMismatch)
	}
	root := inode.New(inum, common.FileTypeDir, RootPerm, 0)
	if err := inode.Write(d, g, root); err != nil {
		return nil, err
	}
	if err := d.Barrier(); err != nil {
		return nil, err
	}
	util.DPrintf(1, "FormatDisk: %d blocks, %d free, %d inodes free\n",
		g.TotalBlocks, sb.FreeBlocks, sb.FreeInodes)
	return v, nil
}

// Mount opens the image at path using the geometry stored in its
// superblock.
func Mount(path string) (*Volume, error) {
	sb, err := super.Probe(path)
	if err != nil {
		return nil, err
	}
	d, err := disk.NewImageDisk(path, sb.BlockSize, uint64(sb.TotalBlocks))
	if err != nil {
		return nil, err
	}
	return MountDisk(d)
}

// MountDisk validates the superblock of d and records the mount in it.
func MountDisk(d disk.Disk) (*Volume, error) {
	sb, err := super.Read(d)
	if err != nil {
		return nil, err
	}
	if sb.State != super.StateClean {
		logger.LogWarn("volume was not cleanly closed", map[string]interface{}{
			"uuid":        sb.UUID.String(),
			"mount_count": sb.MountCount,
		})
	}
	sb.MarkMounted(time.Now().Unix())
	if err := sb.Write(d); err != nil {
		return nil, err
	}
	v := mkVolume(d, sb)
	v.mounted = true
	logger.LogDebug("mounted volume", map[string]interface{}{
		"uuid":        sb.UUID.String(),
		"mount_count": sb.MountCount,
		"free_blocks": sb.FreeBlocks,
		"free_inodes": sb.FreeInodes,
	})
	return v, nil
}

// Close marks a mounted volume clean, flushes it and releases the disk.
func (v *Volume) Close() error {
	if v.mounted {
		v.Super.MarkClean(time.Now().Unix())
		if err := v.Super.Write(v.Disk); err != nil {
			return err
		}
		v.mounted = false
	}
	if err := v.Disk.Barrier(); err != nil {
		return err
	}
	return v.Disk.Close()
}

// CreateInode allocates an inode number and writes a fresh record for it.
func (v *Volume) CreateInode(kind uint32, perm uint32, owner uint32) (*inode.Inode, error) {
	if !inode.ValidKind(kind) {
		return nil, fmt.Errorf("file type %d: %w", kind, common.ErrInvalidArgument)
	}
	inum, err := v.Alloc.AllocInode()
	if err != nil {
		return nil, err
	}
	if inum == common.NULLINUM {
		return nil, common.ErrNoInodes
	}
	ip := inode.New(inum, kind, perm, owner)
	if err := v.WriteInode(ip); err != nil {
		if ferr := v.Alloc.FreeInode(inum); ferr != nil {
			util.DPrintf(1, "CreateInode: release %d: %v\n", inum, ferr)
		}
		return nil, err
	}
	return ip, nil
}

func (v *Volume) ReadInode(inum common.Inum) (*inode.Inode, error) {
	bn, err := v.lockInode(inum)
	if err != nil {
		return nil, err
	}
	defer v.locks.Release(bn)
	return inode.Read(v.Disk, v.Geom, inum)
}

func (v *Volume) WriteInode(ip *inode.Inode) error {
	bn, err := v.lockInode(ip.Inum)
	if err != nil {
		return err
	}
	defer v.locks.Release(bn)
	return inode.Write(v.Disk, v.Geom, ip)
}

// RemoveInode returns inum to the allocator and marks its record deleted.
// The record stays in the table with its deletion time. If the allocator
// refuses the number the record is left untouched.
func (v *Volume) RemoveInode(inum common.Inum) error {
	if inum == v.Geom.RootInum {
		return fmt.Errorf("remove root inode: %w", common.ErrInvalidArgument)
	}
	bn, err := v.lockInode(inum)
	if err != nil {
		return err
	}
	defer v.locks.Release(bn)

	ip, err := inode.Read(v.Disk, v.Geom, inum)
	if err != nil {
		return err
	}
	if ip.IsDeleted || ip.Inum != inum {
		return fmt.Errorf("inode %d not in use: %w", inum, common.ErrDoubleFree)
	}
	if err := v.Alloc.FreeInode(inum); err != nil {
		return err
	}
	ip.MarkDeleted(uint32(time.Now().Unix()))
	return inode.Write(v.Disk, v.Geom, ip)
}
