package addr

import (
	"fmt"

	"github.com/mit-pdos/go-ffs/common"
)

// Addr identifies the start of an on-disk object.
//
// Blkno is the block number containing the object, and Off is its byte offset
// within the block; the size of the object is determined by the context in
// which Addr is used.
type Addr struct {
	Blkno common.Bnum
	Off   uint32
}

func MkAddr(blkno common.Bnum, off uint32) Addr {
	return Addr{Blkno: blkno, Off: off}
}

func (a Addr) String() string {
	return fmt.Sprintf("%d:%d", a.Blkno, a.Off)
}
