package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir moves into an empty directory so no stray ffs.yaml is picked up.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(old) })
	t.Setenv("HOME", dir)
	return dir
}

func TestDefaults(t *testing.T) {
	assert := assert.New(t)
	chdir(t)
	c, err := Load("")
	require.NoError(t, err)
	assert.False(c.Debug)
	assert.Equal("human", c.LogFormat)
	assert.Equal("", c.LogFile)
	assert.Equal(uint32(4096), c.Format.BlockSize)
	assert.Equal(uint32(5000), c.Format.TotalBlocks)
}

func TestConfigFile(t *testing.T) {
	assert := assert.New(t)
	dir := chdir(t)
	cfg := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`debug: true
log_format: json
format:
  block_size: 8192
  total_blocks: 100
`), 0o644))

	c, err := Load(cfg)
	require.NoError(t, err)
	assert.True(c.Debug)
	assert.Equal("json", c.LogFormat)
	assert.Equal(uint32(8192), c.Format.BlockSize)
	assert.Equal(uint32(100), c.Format.TotalBlocks)
}

func TestSearchPath(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ffs.yaml"),
		[]byte("format:\n  total_blocks: 64\n"), 0o644))
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, uint32(64), c.Format.TotalBlocks)
	assert.Equal(t, uint32(4096), c.Format.BlockSize)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := chdir(t)
	cfg := filepath.Join(dir, "ffs.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("format:\n  block_size: 8192\n"), 0o644))
	t.Setenv("FFS_FORMAT_BLOCK_SIZE", "16384")
	t.Setenv("FFS_LOG_FORMAT", "json")

	c, err := Load(cfg)
	require.NoError(t, err)
	assert.Equal(t, uint32(16384), c.Format.BlockSize)
	assert.Equal(t, "json", c.LogFormat)
}

func TestBadConfigFile(t *testing.T) {
	dir := chdir(t)
	cfg := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("format: [1, 2\n"), 0o644))
	_, err := Load(cfg)
	assert.Error(t, err)
}

func TestInitialize(t *testing.T) {
	chdir(t)
	require.NoError(t, Initialize(""))
	assert.False(t, ConfigLoaded)
	assert.Equal(t, uint32(4096), Instance.Format.BlockSize)
}
