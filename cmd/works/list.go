package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var listLimit int

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum results to return (0 = all)")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored works",
	Long: `List the works in the local table, ordered by ID.

Examples:
  works list
  works list --limit 10 --human`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	ctx := context.Background()
	db := mustOpenStore(ctx, cfg)
	defer db.Close()

	works, err := db.ListAll(ctx, listLimit)
	if err != nil {
		exitWithError(ExitStoreError, "listing works: %v", err)
	}

	if humanOutput {
		if len(works) == 0 {
			fmt.Println("No works stored")
			return nil
		}
		total, _ := db.Count(ctx)
		if listLimit > 0 && listLimit < total {
			fmt.Printf("%d works (showing first %d):\n\n", total, len(works))
		} else {
			fmt.Printf("%d works:\n\n", len(works))
		}
		printWorkList(works)
	} else {
		outputJSON(works)
	}
	return nil
}
