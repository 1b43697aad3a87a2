package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wbrown/piecewise/config"
	"github.com/wbrown/piecewise/internal/logger"
)

var (
	cfgFile   string
	activeCfg config.Config
)

func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()
	cfgFile = ""
	activeCfg = config.Config{}

	cmd := &cobra.Command{
		Use:          "piecewise",
		Short:        "Score-based subword segmentation",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}
			activeCfg = loaded
			return setupLogger(loaded)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"Optional config file (toml|yaml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newEncodeCmd())
	cmd.AddCommand(newDecodeCmd())
	cmd.AddCommand(newBatchCmd())
	cmd.AddCommand(newConvertCmd())
	cmd.AddCommand(newFetchCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

func setupLogger(cfg config.Config) error {
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logger.SetFormat(cfg.LogFormat)
	return nil
}
