package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mit-pdos/go-ffs/config"
	"github.com/mit-pdos/go-ffs/logger"
	"github.com/mit-pdos/go-ffs/super"
	"github.com/mit-pdos/go-ffs/volume"
)

func newFormatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "format <image>",
		Short: "Create an image and write an empty filesystem to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bs := config.Instance.Format.BlockSize
			if cmd.Flags().Changed("block-size") {
				bs, _ = cmd.Flags().GetUint32("block-size")
			}
			total := config.Instance.Format.TotalBlocks
			if cmd.Flags().Changed("blocks") {
				total, _ = cmd.Flags().GetUint32("blocks")
			}

			v, err := volume.Format(args[0], bs, total)
			if err != nil {
				logger.LogError("format failed", err, map[string]interface{}{
					"image":      args[0],
					"block_size": bs,
					"blocks":     total,
				})
				return err
			}
			sb := v.Super
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d blocks of %d bytes, %d free blocks, %d free inodes, uuid %s\n",
				args[0], sb.TotalBlocks, sb.BlockSize, sb.FreeBlocks, sb.FreeInodes, sb.UUID)
			return v.Close()
		},
	}
	cmd.Flags().Uint32("block-size", 4096, "block size in bytes")
	cmd.Flags().Uint32("blocks", 5000, "total number of blocks")
	return cmd
}

func newStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat <image>",
		Short: "Print the superblock of an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sb, err := super.Probe(args[0])
			if err != nil {
				return err
			}
			printSuper(cmd, sb)
			return nil
		},
	}
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <image>",
		Short: "Compare the allocation bitmaps with the superblock counters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := volume.Mount(args[0])
			if err != nil {
				return err
			}
			r, cerr := v.Check()
			if err := v.Close(); err != nil {
				return err
			}
			if cerr != nil {
				logger.LogError("check failed", cerr, map[string]interface{}{"image": args[0]})
				return cerr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: clean: %v\n", args[0], r)
			return nil
		},
	}
}

func printSuper(cmd *cobra.Command, sb *super.Superblock) {
	w := cmd.OutOrStdout()
	ts := func(t int64) string {
		if t == 0 {
			return "never"
		}
		return time.Unix(t, 0).UTC().Format(time.RFC3339)
	}
	state := "clean"
	if sb.State != super.StateClean {
		state = "mounted"
	}
	fmt.Fprintf(w, "magic:              %#x\n", sb.Magic)
	fmt.Fprintf(w, "version:            %d\n", sb.Version)
	fmt.Fprintf(w, "uuid:               %s\n", sb.UUID)
	fmt.Fprintf(w, "block size:         %d\n", sb.BlockSize)
	fmt.Fprintf(w, "blocks:             %d\n", sb.TotalBlocks)
	fmt.Fprintf(w, "free blocks:        %d\n", sb.FreeBlocks)
	fmt.Fprintf(w, "inodes:             %d\n", sb.InodeCount)
	fmt.Fprintf(w, "free inodes:        %d\n", sb.FreeInodes)
	fmt.Fprintf(w, "first data block:   %d\n", sb.FirstDataBlock)
	fmt.Fprintf(w, "root inode:         %d\n", sb.RootInode)
	fmt.Fprintf(w, "state:              %s\n", state)
	fmt.Fprintf(w, "mount count:        %d\n", sb.MountCount)
	fmt.Fprintf(w, "created:            %s\n", ts(sb.CreatedTime))
	fmt.Fprintf(w, "last mounted:       %s\n", ts(sb.LastMountTime))
	fmt.Fprintf(w, "last written:       %s\n", ts(sb.LastWriteTime))
}
