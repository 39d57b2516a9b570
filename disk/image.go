package disk

import (
	"fmt"
	"io"

	"golang.org/x/sys/unix"

	"github.com/mit-pdos/go-ffs/common"
	"github.com/mit-pdos/go-ffs/util"
)

func ioError(op string, path string, err error) error {
	return fmt.Errorf("%s %s: %w: %w", op, path, common.ErrIO, err)
}

// CreateImage creates a disk image of exactly size bytes at path, replacing
// any existing file. Only the last byte is written, so the file is sparse.
func CreateImage(path string, size uint64) error {
	if size == 0 {
		return fmt.Errorf("image size 0: %w", common.ErrInvalidArgument)
	}
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC|unix.O_CLOEXEC, 0666)
	if err != nil {
		return ioError("create", path, err)
	}
	defer unix.Close(fd)
	if _, err := unix.Pwrite(fd, []byte{0}, int64(size-1)); err != nil {
		return ioError("extend", path, err)
	}
	util.DPrintf(1, "CreateImage: %s %d bytes\n", path, size)
	return nil
}

func checkBuf(b []byte, blockSize uint32) error {
	if blockSize == 0 || uint64(len(b)) != uint64(blockSize) {
		return fmt.Errorf("buffer of %d bytes for %d-byte block: %w",
			len(b), blockSize, common.ErrInvalidArgument)
	}
	return nil
}

func offset(blockSize uint32, bn common.Bnum) int64 {
	return int64(bn) * int64(blockSize)
}

// ReadBlock fills b with block bn of the image at path. Every call opens the
// image afresh.
func ReadBlock(path string, b []byte, blockSize uint32, bn common.Bnum) error {
	if err := checkBuf(b, blockSize); err != nil {
		return err
	}
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return ioError("open", path, err)
	}
	defer unix.Close(fd)
	n, err := unix.Pread(fd, b, offset(blockSize, bn))
	if err != nil {
		return ioError("read", path, err)
	}
	if n != len(b) {
		return ioError(fmt.Sprintf("read block %d of", bn), path, io.ErrUnexpectedEOF)
	}
	return nil
}

// WriteBlock writes b to block bn of the image at path. Every call opens the
// image afresh.
func WriteBlock(path string, b []byte, blockSize uint32, bn common.Bnum) error {
	if err := checkBuf(b, blockSize); err != nil {
		return err
	}
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return ioError("open", path, err)
	}
	defer unix.Close(fd)
	n, err := unix.Pwrite(fd, b, offset(blockSize, bn))
	if err != nil {
		return ioError("write", path, err)
	}
	if n != len(b) {
		return ioError(fmt.Sprintf("write block %d of", bn), path, io.ErrShortWrite)
	}
	return nil
}

// ImageSize reports the length of the image at path in bytes.
func ImageSize(path string) (uint64, error) {
	var stat unix.Stat_t
	if err := unix.Stat(path, &stat); err != nil {
		return 0, ioError("stat", path, err)
	}
	return uint64(stat.Size), nil
}

var _ Disk = (*ImageDisk)(nil)

// ImageDisk is a Disk backed by an image file. It holds no file descriptor
// between calls.
type ImageDisk struct {
	path      string
	blockSize uint32
	numBlocks uint64
}

// NewImageDisk opens the existing image at path as numBlocks blocks of
// blockSize bytes. The image must be at least that long; it is never grown.
func NewImageDisk(path string, blockSize uint32, numBlocks uint64) (*ImageDisk, error) {
	if blockSize == 0 || numBlocks == 0 {
		return nil, fmt.Errorf("%d blocks of %d bytes: %w",
			numBlocks, blockSize, common.ErrInvalidArgument)
	}
	sz, err := ImageSize(path)
	if err != nil {
		return nil, err
	}
	if sz < numBlocks*uint64(blockSize) {
		return nil, fmt.Errorf("%s has %d bytes, want %d: %w: %w",
			path, sz, numBlocks*uint64(blockSize), common.ErrIO, io.ErrUnexpectedEOF)
	}
	return &ImageDisk{path: path, blockSize: blockSize, numBlocks: numBlocks}, nil
}

func (d *ImageDisk) Path() string {
	return d.path
}

func (d *ImageDisk) checkAddr(a common.Bnum) error {
	if uint64(a) >= d.numBlocks {
		return fmt.Errorf("block %d of %d: %w", a, d.numBlocks, common.ErrInvalidArgument)
	}
	return nil
}

func (d *ImageDisk) ReadTo(a common.Bnum, buf Block) error {
	if err := d.checkAddr(a); err != nil {
		return err
	}
	return ReadBlock(d.path, buf, d.blockSize, a)
}

func (d *ImageDisk) Read(a common.Bnum) (Block, error) {
	buf := make(Block, d.blockSize)
	err := d.ReadTo(a, buf)
	return buf, err
}

func (d *ImageDisk) Write(a common.Bnum, v Block) error {
	if err := d.checkAddr(a); err != nil {
		return err
	}
	return WriteBlock(d.path, v, d.blockSize, a)
}

func (d *ImageDisk) Size() (uint64, error) {
	return d.numBlocks, nil
}

func (d *ImageDisk) BlockSize() uint32 {
	return d.blockSize
}

func (d *ImageDisk) Barrier() error {
	fd, err := unix.Open(d.path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return ioError("open", d.path, err)
	}
	defer unix.Close(fd)
	// NOTE: on macOS, this flushes to the drive but doesn't actually issue a
	// disk barrier; the correct replacement is fcntl F_FULLFSYNC.
	if err := unix.Fsync(fd); err != nil {
		return ioError("fsync", d.path, err)
	}
	return nil
}

func (d *ImageDisk) Close() error {
	return nil
}
