package main

import (
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Show the effective configuration as YAML, after defaults, the config
file, .env and environment overrides are applied. Secrets are redacted.

Example:
  WORKS_SYNC_ATOMIC=false works config`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()

	out, err := cfg.YAML()
	if err != nil {
		exitWithError(ExitError, "rendering config: %v", err)
	}
	os.Stdout.Write(out)
	return nil
}
