package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/works/internal/openalex"
)

func init() {
	rootCmd.AddCommand(getCmd)
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get a single work by ID",
	Long: `Get a single work by its OpenAlex ID or full OpenAlex URI.

Examples:
  works get W2100837269
  works get https://openalex.org/W2100837269`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	ctx := context.Background()
	db := mustOpenStore(ctx, cfg)
	defer db.Close()

	id := args[0]
	if strings.HasPrefix(id, "http") {
		id = openalex.ExtractID(id)
	}

	w, err := db.GetByID(ctx, id)
	if err != nil {
		exitWithError(ExitStoreError, "getting work: %v", err)
	}
	if w == nil {
		exitWithError(ExitError, "work not found: %s", id)
	}

	if humanOutput {
		printWorkDetail(*w)
	} else {
		outputJSON(w)
	}
	return nil
}
