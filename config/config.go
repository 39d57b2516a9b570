// Package config loads ffs settings from an optional YAML file, FFS_*
// environment variables and built-in defaults, in that order of precedence
// (highest last).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

const (
	// AppName is the base name of the config file and directory
	AppName = "ffs"

	// EnvPrefix is the prefix for environment variables
	EnvPrefix = "FFS"
)

// AppConfig holds the application configuration
type AppConfig struct {
	Debug     bool   `mapstructure:"debug"`
	LogFormat string `mapstructure:"log_format"`
	LogFile   string `mapstructure:"log_file"`

	// Geometry used by "ffs format" when no flag overrides it
	Format struct {
		BlockSize   uint32 `mapstructure:"block_size"`
		TotalBlocks uint32 `mapstructure:"total_blocks"`
	} `mapstructure:"format"`
}

var (
	// Instance is the configuration loaded by Initialize
	Instance AppConfig

	// ConfigLoaded reports whether a config file was read; ConfigFile is its path
	ConfigLoaded bool
	ConfigFile   string

	initOnce sync.Once
)

// Initialize loads the configuration into Instance. Only the first call has
// any effect.
func Initialize(cfgFile string) error {
	var err error
	initOnce.Do(func() {
		var used string
		Instance, used, err = load(cfgFile)
		ConfigLoaded = used != ""
		ConfigFile = used
	})
	return err
}

// Load reads the configuration without touching Instance.
func Load(cfgFile string) (AppConfig, error) {
	c, _, err := load(cfgFile)
	return c, err
}

func load(cfgFile string) (AppConfig, string, error) {
	var c AppConfig
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
		addSearchPaths(v)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	used := ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return c, "", fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		used = v.ConfigFileUsed()
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, "", fmt.Errorf("error parsing config: %w", err)
	}
	return c, used, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("log_format", "human")
	v.SetDefault("log_file", "")

	v.SetDefault("format.block_size", 4096)
	v.SetDefault("format.total_blocks", 5000)
}

func addSearchPaths(v *viper.Viper) {
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", AppName))
	}
}
