package util

import (
	"github.com/mit-pdos/go-ffs/logger"
)

// Debug is the highest DPrintf level that is emitted. Messages go to the
// zap logger at debug level, so they also need a debug-enabled logger.
var Debug uint64 = 1

func DPrintf(level uint64, format string, a ...interface{}) {
	if level <= Debug {
		logger.Logger.Debugf(format, a...)
	}
}

func RoundUp(n uint64, sz uint64) uint64 {
	return (n + sz - 1) / sz
}

func IsPowerOfTwo(n uint32) bool {
	return n != 0 && n&(n-1) == 0
}
