// Package commands implements the ara-ipcbinding daemon's cobra CLI:
// start, version, and config show, grounded on cmd/dittofs/commands' shape.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "ipcbindingd",
	Short: "ara-ipcbinding daemon",
	Long: `ipcbindingd hosts the ara::com SOME/IP IPC binding: it accepts Unix-socket
connections from application threads, reassembles SOME/IP-TP segments,
dispatches requests/notifications/subscriptions through the skeleton
router, and enforces access control on every incoming call.

Use "ipcbindingd [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds every child command to rootCmd and runs it. Called once from
// main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/ara-ipcbinding/config.yaml)")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
