package inode

import (
	"fmt"
	"time"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-ffs/buf"
	"github.com/mit-pdos/go-ffs/common"
	"github.com/mit-pdos/go-ffs/disk"
	"github.com/mit-pdos/go-ffs/layout"
	"github.com/mit-pdos/go-ffs/util"
)

const (
	flagDeleted  uint32 = 1 << 0
	flagTampered uint32 = 1 << 1
)

// Inode is the in-memory form of one inode table record. Timestamps are unix
// seconds.
type Inode struct {
	Inum        common.Inum
	Kind        uint32
	Permissions uint32
	Size        uint64

	Direct   [common.NDIRECT]common.Bnum
	Indirect common.Bnum

	Created  uint32
	Modified uint32
	Accessed uint32
	Deleted  uint32 // deletion time, 0 while live

	Owner     uint32
	LinkCount uint32

	IsDeleted bool
	Tampered  bool
}

func ValidKind(kind uint32) bool {
	return kind == common.FileTypeFile || kind == common.FileTypeDir
}

func New(inum common.Inum, kind uint32, perm uint32, owner uint32) *Inode {
	now := uint32(time.Now().Unix())
	return &Inode{
		Inum:        inum,
		Kind:        kind,
		Permissions: perm,
		Size:        0,
		Created:     now,
		Modified:    now,
		Accessed:    now,
		Owner:       owner,
		LinkCount:   1,
	}
}

// RecordSize is the size of an encoded inode. It is part of the on-disk
// format and cannot change within a format version.
func RecordSize() uint32 {
	return common.INODESZ
}

func (ip *Inode) IsDir() bool {
	return ip.Kind == common.FileTypeDir
}

// MarkDeleted flags the inode as removed. The record itself stays in the
// table.
func (ip *Inode) MarkDeleted(now uint32) {
	ip.IsDeleted = true
	ip.Deleted = now
	ip.Modified = now
}

func (ip *Inode) MarkTampered() {
	ip.Tampered = true
}

func (ip *Inode) flags() uint32 {
	var f uint32
	if ip.IsDeleted {
		f |= flagDeleted
	}
	if ip.Tampered {
		f |= flagTampered
	}
	return f
}

func (ip *Inode) Encode() []byte {
	enc := marshal.NewEnc(uint64(common.INODESZ))
	enc.PutInt32(ip.Inum)
	enc.PutInt32(ip.Kind)
	enc.PutInt32(ip.Permissions)
	enc.PutInt(ip.Size)
	for _, bn := range ip.Direct {
		enc.PutInt32(bn)
	}
	enc.PutInt32(ip.Indirect)
	enc.PutInt32(ip.Created)
	enc.PutInt32(ip.Modified)
	enc.PutInt32(ip.Accessed)
	enc.PutInt32(ip.Deleted)
	enc.PutInt32(ip.Owner)
	enc.PutInt32(ip.LinkCount)
	enc.PutInt32(ip.flags())
	return enc.Finish()
}

func Decode(b []byte) (*Inode, error) {
	if uint32(len(b)) != common.INODESZ {
		return nil, fmt.Errorf("inode record of %d bytes: %w", len(b), common.ErrInvalidArgument)
	}
	dec := marshal.NewDec(b)
	ip := &Inode{}
	ip.Inum = dec.GetInt32()
	ip.Kind = dec.GetInt32()
	ip.Permissions = dec.GetInt32()
	ip.Size = dec.GetInt()
	for i := range ip.Direct {
		ip.Direct[i] = dec.GetInt32()
	}
	ip.Indirect = dec.GetInt32()
	ip.Created = dec.GetInt32()
	ip.Modified = dec.GetInt32()
	ip.Accessed = dec.GetInt32()
	ip.Deleted = dec.GetInt32()
	ip.Owner = dec.GetInt32()
	ip.LinkCount = dec.GetInt32()
	f := dec.GetInt32()
	ip.IsDeleted = f&flagDeleted != 0
	ip.Tampered = f&flagTampered != 0
	return ip, nil
}

// Read loads inode inum from the inode table with a single block read.
func Read(d disk.Disk, g layout.Geometry, inum common.Inum) (*Inode, error) {
	a, err := g.InodeAddr(inum)
	if err != nil {
		return nil, err
	}
	blk, err := d.Read(a.Blkno)
	if err != nil {
		return nil, err
	}
	b, err := buf.MkBufLoad(a, common.INODESZ, blk)
	if err != nil {
		return nil, err
	}
	return Decode(b.Data)
}

// Write stores ip in its slot of the inode table, leaving the other records
// of the block unchanged.
func Write(d disk.Disk, g layout.Geometry, ip *Inode) error {
	a, err := g.InodeAddr(ip.Inum)
	if err != nil {
		return err
	}
	util.DPrintf(5, "inode.Write: %d at %v\n", ip.Inum, a)
	return buf.MkBuf(a, ip.Encode()).WriteDirect(d)
}

// InitTable zeroes every block of the inode table.
func InitTable(d disk.Disk, g layout.Geometry) error {
	zero := make(disk.Block, g.BlockSize)
	for i := uint32(0); i < g.InodeBlocks; i++ {
		if err := d.Write(g.FirstInodeBlock+common.Bnum(i), zero); err != nil {
			return err
		}
	}
	return nil
}
