// Package bitmap implements the packed bit vectors that track which blocks
// and inodes are in use. Bit i lives in byte i/8 at position i%8, least
// significant bit first. A set bit means the unit is in use.
package bitmap

import (
	"fmt"

	"github.com/mit-pdos/go-ffs/common"
)

type Bitmap []byte

// Len is the number of addressable bits.
func (bm Bitmap) Len() uint32 {
	return uint32(len(bm)) * 8
}

func (bm Bitmap) check(bit uint32) error {
	if bit >= bm.Len() {
		return fmt.Errorf("bit %d of %d: %w", bit, bm.Len(), common.ErrOutOfRange)
	}
	return nil
}

func (bm Bitmap) Set(bit uint32) error {
	if err := bm.check(bit); err != nil {
		return err
	}
	bm[bit/8] |= 1 << (bit % 8)
	return nil
}

func (bm Bitmap) Clear(bit uint32) error {
	if err := bm.check(bit); err != nil {
		return err
	}
	bm[bit/8] &^= 1 << (bit % 8)
	return nil
}

func (bm Bitmap) Test(bit uint32) (bool, error) {
	if err := bm.check(bit); err != nil {
		return false, err
	}
	return bm.isSet(bit), nil
}

func (bm Bitmap) isSet(bit uint32) bool {
	return bm[bit/8]&(1<<(bit%8)) != 0
}

// FindFree returns the lowest clear bit in [0, max).
func (bm Bitmap) FindFree(max uint32) (uint32, bool) {
	return bm.FindFreeFrom(0, max)
}

// FindFreeFrom returns the lowest clear bit in [start, max). max is clamped
// to Len.
func (bm Bitmap) FindFreeFrom(start uint32, max uint32) (uint32, bool) {
	if max > bm.Len() {
		max = bm.Len()
	}
	for i := start; i < max; i++ {
		// skip full bytes
		if i%8 == 0 && bm[i/8] == 0xFF && i+8 <= max {
			i += 7
			continue
		}
		if !bm.isSet(i) {
			return i, true
		}
	}
	return 0, false
}

// CountSet returns the number of set bits in [start, max), max clamped to Len.
func (bm Bitmap) CountSet(start uint32, max uint32) uint32 {
	if max > bm.Len() {
		max = bm.Len()
	}
	var n uint32
	for i := start; i < max; i++ {
		if bm.isSet(i) {
			n++
		}
	}
	return n
}

// SetRange marks every bit in [start, end) used.
func (bm Bitmap) SetRange(start uint32, end uint32) error {
	for i := start; i < end; i++ {
		if err := bm.Set(i); err != nil {
			return err
		}
	}
	return nil
}
