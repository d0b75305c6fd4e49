package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/works/internal/work"
)

var (
	searchKeyword  string
	searchYear     int
	searchLanguage string
	searchLimit    int
)

func init() {
	searchCmd.Flags().StringVarP(&searchKeyword, "keyword", "k", "", "Case-insensitive title substring")
	searchCmd.Flags().IntVarP(&searchYear, "year", "y", 0, "Publication year")
	searchCmd.Flags().StringVarP(&searchLanguage, "language", "l", "", "Language code (e.g. en, es)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "Maximum results to return (0 = all)")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search stored works",
	Long: `Search the local table by title keyword, year and language.
Filters combine with AND; with no filters every work is returned.

Examples:
  works search --keyword prisma
  works search -k prisma -y 2009 -l en --human`,
	Args: cobra.NoArgs,
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	ctx := context.Background()
	db := mustOpenStore(ctx, cfg)
	defer db.Close()

	f := work.Filter{Keyword: searchKeyword, Language: searchLanguage, Limit: searchLimit}
	if cmd.Flags().Changed("year") {
		f.Year = &searchYear
	}

	works, err := db.Search(ctx, f)
	if err != nil {
		exitWithError(ExitStoreError, "searching: %v", err)
	}

	if humanOutput {
		if len(works) == 0 {
			fmt.Println("No matching works")
			return nil
		}
		fmt.Printf("%d matching works:\n\n", len(works))
		printWorkList(works)
	} else {
		outputJSON(works)
	}
	return nil
}
