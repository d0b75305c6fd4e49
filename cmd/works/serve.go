package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/matsen/works/internal/httpapi"
	"github.com/matsen/works/internal/pipeline"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides http.addr)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the works table over HTTP",
	Long: `Serve the works table over HTTP.

Endpoints:
  GET  /healthz
  GET  /records            all works
  GET  /records/{id}       one work by ID or OpenAlex URI
  GET  /filter             keyword, year and language filters
  POST /update             clear and reload from OpenAlex (X-API-Key)

Example:
  works serve --addr :8000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	log := mustNewLogger(cfg)
	defer log.Sync()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db := mustOpenStore(ctx, cfg)
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		exitWithError(ExitStoreError, "preparing schema: %v", err)
	}

	trigger := pipeline.NewSingleFlight(newSyncer(cfg, db, log))
	srv := httpapi.New(db, trigger, cfg.API.Token, log)

	addr := cfg.HTTP.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	if err := srv.ListenAndServe(ctx, addr, httpapi.Timeouts{
		Read:  cfg.HTTP.ReadTimeout,
		Write: cfg.HTTP.WriteTimeout,
	}); err != nil {
		exitWithError(ExitError, "serving: %v", err)
	}
	return nil
}
