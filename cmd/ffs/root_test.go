package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-ffs/common"
	"github.com/mit-pdos/go-ffs/config"
	"github.com/mit-pdos/go-ffs/disk"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestFormatStatCheck(t *testing.T) {
	assert := assert.New(t)
	img := filepath.Join(t.TempDir(), "disk.img")

	out, err := run(t, "format", img)
	require.NoError(t, err)
	assert.Contains(out, "5000 blocks of 4096 bytes")
	assert.Contains(out, "4989 free blocks")
	assert.Contains(out, "319 free inodes")

	fi, err := os.Stat(img)
	require.NoError(t, err)
	assert.Equal(int64(20480000), fi.Size())

	out, err = run(t, "stat", img)
	require.NoError(t, err)
	assert.Contains(out, "free blocks:        4989")
	assert.Contains(out, "state:              clean")
	assert.Contains(out, "mount count:        0")

	_, err = run(t, "check", img)
	require.NoError(t, err)

	out, err = run(t, "stat", img)
	require.NoError(t, err)
	assert.Contains(out, "mount count:        1")
	assert.Contains(out, "state:              clean")
}

func TestFormatFlags(t *testing.T) {
	img := filepath.Join(t.TempDir(), "small.img")
	out, err := run(t, "format", "--block-size", "8192", "--blocks", "64", img)
	require.NoError(t, err)
	assert.Contains(t, out, "64 blocks of 8192 bytes")
	assert.Contains(t, out, "53 free blocks")
}

func TestFormatInvalid(t *testing.T) {
	img := filepath.Join(t.TempDir(), "bad.img")
	_, err := run(t, "format", "--block-size", "1000", img)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
	_, err = os.Stat(img)
	assert.True(t, os.IsNotExist(err))
}

func TestCheckMismatch(t *testing.T) {
	img := filepath.Join(t.TempDir(), "disk.img")
	_, err := run(t, "format", "--blocks", "64", img)
	require.NoError(t, err)

	blk := make([]byte, 4096)
	require.NoError(t, disk.ReadBlock(img, blk, 4096, common.BLOCKBITMAPBLOCK))
	blk[4] = 0xff
	require.NoError(t, disk.WriteBlock(img, blk, 4096, common.BLOCKBITMAPBLOCK))

	_, err = run(t, "check", img)
	assert.ErrorIs(t, err, common.ErrCounterMismatch)
}

func TestStatNotAnImage(t *testing.T) {
	img := filepath.Join(t.TempDir(), "zero.img")
	require.NoError(t, disk.CreateImage(img, 4096))
	_, err := run(t, "stat", img)
	assert.ErrorIs(t, err, common.ErrBadMagic)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "ffs v"+version+"\n", out)
}

func TestConfigSource(t *testing.T) {
	loaded, file := config.ConfigLoaded, config.ConfigFile
	t.Cleanup(func() { config.ConfigLoaded, config.ConfigFile = loaded, file })

	config.ConfigLoaded, config.ConfigFile = false, ""
	assert.Equal(t, "defaults and environment", configSource())
	config.ConfigLoaded, config.ConfigFile = true, "/etc/ffs/ffs.yaml"
	assert.Equal(t, "/etc/ffs/ffs.yaml", configSource())
}
