// buf manages sub-block disk objects, to be packed into disk blocks
package buf

import (
	"fmt"

	"github.com/mit-pdos/go-ffs/addr"
	"github.com/mit-pdos/go-ffs/common"
	"github.com/mit-pdos/go-ffs/disk"
	"github.com/mit-pdos/go-ffs/util"
)

// A Buf is a write to a disk object (an inode record or a whole block).
// Addr.Off is a byte offset.
type Buf struct {
	Addr addr.Addr
	Sz   uint32 // number of bytes
	Data []byte
}

func MkBuf(addr addr.Addr, data []byte) *Buf {
	b := &Buf{
		Addr: addr,
		Sz:   uint32(len(data)),
		Data: data,
	}
	return b
}

func checkFits(a addr.Addr, sz uint32, blk disk.Block) error {
	if uint64(a.Off)+uint64(sz) > uint64(len(blk)) {
		return fmt.Errorf("object %v of %d bytes overruns %d-byte block: %w",
			a, sz, len(blk), common.ErrInvalidArgument)
	}
	return nil
}

// Load the bytes of a disk block into a new buf, as specified by addr. The
// buf aliases blk.
func MkBufLoad(addr addr.Addr, sz uint32, blk disk.Block) (*Buf, error) {
	if err := checkFits(addr, sz, blk); err != nil {
		return nil, err
	}
	b := &Buf{
		Addr: addr,
		Sz:   sz,
		Data: blk[addr.Off : addr.Off+sz],
	}
	return b, nil
}

// Install the bytes from buf into blk.
func (buf *Buf) Install(blk disk.Block) error {
	if err := checkFits(buf.Addr, buf.Sz, blk); err != nil {
		return err
	}
	util.DPrintf(10, "%v: install %d bytes\n", buf.Addr, buf.Sz)
	copy(blk[buf.Addr.Off:buf.Addr.Off+buf.Sz], buf.Data)
	return nil
}

// WriteDirect writes buf to d. A buf covering a whole block is written as is;
// anything smaller is installed into the current contents of its block, so
// the rest of the block is preserved.
func (buf *Buf) WriteDirect(d disk.Disk) error {
	if buf.Addr.Off == 0 && buf.Sz == d.BlockSize() {
		return d.Write(buf.Addr.Blkno, buf.Data)
	}
	blk, err := d.Read(buf.Addr.Blkno)
	if err != nil {
		return err
	}
	if err := buf.Install(blk); err != nil {
		return err
	}
	return d.Write(buf.Addr.Blkno, blk)
}
