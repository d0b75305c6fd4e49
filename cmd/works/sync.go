package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matsen/works/internal/pipeline"
)

func init() {
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Clear the works table and reload it from OpenAlex",
	Long: `Clear the works table and reload it with one page of works from OpenAlex.

By default the clear and the load happen in one transaction, so a failed
run leaves the previous contents in place. Set sync.atomic=false for the
legacy behavior where the clear is committed first.

Exit codes:
  3  a record could not be normalized
  4  OpenAlex unavailable
  5  schema or load failure

Example:
  works sync --human`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	log := mustNewLogger(cfg)
	defer log.Sync()

	ctx := context.Background()
	db := mustOpenStore(ctx, cfg)
	defer db.Close()

	res, err := newSyncer(cfg, db, log).Run(ctx)
	if err != nil {
		exitSyncError(err)
	}

	if humanOutput {
		mode := "atomic"
		if !res.Atomic {
			mode = "non-atomic"
		}
		fmt.Printf("Sync %s complete (%s)\n", res.RunID, mode)
		fmt.Printf("  Fetched:  %d\n", res.Fetched)
		fmt.Printf("  Loaded:   %d\n", res.Affected)
		if len(res.Skipped) > 0 {
			fmt.Printf("  Skipped:  %d\n", len(res.Skipped))
			for _, s := range res.Skipped {
				fmt.Printf("    %s: %s\n", s.SourceID, s.Reason)
			}
		}
		fmt.Printf("  Duration: %s\n", res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))
	} else {
		outputJSON(res)
	}
	return nil
}

// exitSyncError reports a failed run with its category and exits.
func exitSyncError(err error) {
	code := exitCodeFor(err)
	kind := pipeline.KindOf(err)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: sync failed: %v\n", err)
	} else {
		outputJSON(ErrorResponse{Error: err.Error(), Category: string(kind)})
	}
	os.Exit(code)
}
