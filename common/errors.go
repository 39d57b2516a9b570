package common

import "errors"

var (
	// Argument and geometry errors are reported before any disk mutation.
	ErrInvalidArgument = errors.New("invalid argument")
	ErrOutOfRange      = errors.New("bit index out of range")

	ErrIO = errors.New("i/o error")

	// Mount-time validation failures.
	ErrBadMagic          = errors.New("bad superblock magic")
	ErrCorruptSuperblock = errors.New("corrupt superblock")

	// Bitmap state disagrees with the superblock counters.
	ErrDoubleFree      = errors.New("double free")
	ErrCounterMismatch = errors.New("free counter does not match bitmap")

	ErrNoInodes = errors.New("no free inodes")
)
