package main

import (
	"github.com/spf13/cobra"
)

const appName = "aurorabot"

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:           appName,
		Short:         "aurorabot introduces Telegram users to a new conversation partner every week",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "./config.yaml", "path to the configuration file")
}
