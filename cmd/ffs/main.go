package main

import (
	"os"

	"github.com/mit-pdos/go-ffs/logger"
)

func main() {
	err := newRootCmd().Execute()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
