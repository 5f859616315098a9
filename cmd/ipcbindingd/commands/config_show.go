package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/ara-ipcbinding/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the daemon's configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the loaded configuration",
	Long: `Load configuration from file, environment, and defaults the same way
start would, and print the result as YAML without starting the binding.`,
	RunE: runConfigShow,
}

func init() {
	configCmd.AddCommand(configShowCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(cfg)
}
