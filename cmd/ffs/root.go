package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mit-pdos/go-ffs/config"
	"github.com/mit-pdos/go-ffs/logger"
	"github.com/mit-pdos/go-ffs/util"
)

const version = "0.1.0"

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "ffs",
		Short: "Create and inspect ffs volume images",
		Long: `ffs formats disk images with a fixed-layout block filesystem and
inspects existing images: superblock contents and the agreement between the
allocation bitmaps and the superblock free counters.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Initialize(cfgFile); err != nil {
				return err
			}
			// flags beat the config file and environment
			if cmd.Flags().Changed("debug") {
				config.Instance.Debug, _ = cmd.Flags().GetBool("debug")
			}
			if cmd.Flags().Changed("log-format") {
				config.Instance.LogFormat, _ = cmd.Flags().GetString("log-format")
			}
			if config.Instance.Debug {
				util.Debug = 5
			}
			lc := logger.DefaultConfig()
			lc.Debug = config.Instance.Debug
			if config.Instance.LogFormat != "" {
				lc.LogFormat = config.Instance.LogFormat
			}
			lc.LogFile = config.Instance.LogFile
			if err := logger.InitLogger(lc); err != nil {
				return err
			}
			logger.LogDebug("configuration loaded", map[string]interface{}{
				"source": configSource(),
			})
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./ffs.yaml or ~/.config/ffs/ffs.yaml)")
	root.PersistentFlags().Bool("debug", false, "Enable debug logging")
	root.PersistentFlags().String("log-format", "human", "Log format: json or human")

	root.AddCommand(newFormatCmd(), newStatCmd(), newCheckCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ffs v%s\n", version)
		},
	}
}

// configSource names where the settings came from.
func configSource() string {
	if config.ConfigLoaded && config.ConfigFile != "" {
		return config.ConfigFile
	}
	return "defaults and environment"
}
