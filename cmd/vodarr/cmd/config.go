package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  `Commands for managing vodarr configuration.`,
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the effective configuration",
	Long: `Dump the effective configuration values in YAML format.

This shows all configuration options after defaults, config file, and
environment variables are applied. Redirect the output to a file to
create a configuration template:

  vodarr config dump > config.yaml

Configuration can be set via:
  - Config file (.vodarr.yaml in the home or working directory, /etc/vodarr)
  - Environment variables (VODARR_SERVER_PORT, VODARR_DATABASE_DSN, etc.)
  - Command-line flags (for some options)

Environment variables use the VODARR_ prefix and underscores for nesting.
Example: server.port -> VODARR_SERVER_PORT`,
	RunE: runConfigDump,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configDumpCmd)
}

func runConfigDump(cmd *cobra.Command, args []string) error {
	out, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Print(string(out))
	return nil
}
