// Package main provides the works CLI entry point.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	// configFile is an explicit config file path
	configFile string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "works",
	Short: "OpenAlex works synchronizer and query service",
	Long: `works keeps a local table of OpenAlex works in step with the OpenAlex API.

It clears and reloads the table on demand, serves it over HTTP, and answers
natural-language questions about it. All commands output JSON by default
for easy integration with other tools.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ./works.yaml)")
	rootCmd.Version = Version
}
