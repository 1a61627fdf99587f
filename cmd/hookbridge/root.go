package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/holomush/hookbridge/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the hookbridge CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hookbridge",
		Short: "hookbridge - Lua event hooks and timed events",
		Long: `hookbridge loads Lua scripts that subscribe to server, player and
creature events and schedule timed callbacks, then drives them from a tick loop.`,
		SilenceUsage: true,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/hookbridge/config.yaml if present)")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewSchemaCmd())
	cmd.AddCommand(NewStatusCmd())

	return cmd
}

// resolveConfigFile returns the --config value, or the XDG default when it
// exists. An empty result means no file is read.
func resolveConfigFile() string {
	if configFile != "" {
		return configFile
	}
	path := xdg.ConfigFile()
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}
