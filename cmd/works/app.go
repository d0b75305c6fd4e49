package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/matsen/works/internal/config"
	"github.com/matsen/works/internal/logger"
	"github.com/matsen/works/internal/openalex"
	"github.com/matsen/works/internal/pipeline"
	"github.com/matsen/works/internal/storage"
)

// mustLoadConfig loads configuration or exits with ExitConfigError.
func mustLoadConfig() *config.Config {
	cfg, err := config.Load(config.LoadOptions{ConfigFile: configFile})
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// mustNewLogger builds the process logger or exits with ExitConfigError.
func mustNewLogger(cfg *config.Config) *zap.Logger {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		exitWithError(ExitConfigError, "creating logger: %v", err)
	}
	return log
}

// mustOpenStore opens the configured database or exits with ExitStoreError.
func mustOpenStore(ctx context.Context, cfg *config.Config) *storage.DB {
	db, err := storage.Open(ctx, storage.Options{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSNString(),
	})
	if err != nil {
		exitWithError(ExitStoreError, "opening database: %v", err)
	}
	return db
}

// newSyncer wires the OpenAlex client, normalizer and store into a Syncer.
func newSyncer(cfg *config.Config, db *storage.DB, log *zap.Logger) *pipeline.Syncer {
	client := openalex.NewClient(
		openalex.WithBaseURL(cfg.Source.BaseURL),
		openalex.WithMailto(cfg.Source.Mailto),
		openalex.WithRateLimit(cfg.Source.RateLimit),
		openalex.WithUserAgent("works/"+Version),
		openalex.WithHTTPClient(&http.Client{Timeout: cfg.Source.Timeout}),
	)
	normalizer := openalex.Normalizer{RequireID: cfg.Sync.RequireID}

	return pipeline.NewSyncer(client, normalizer, db, pipeline.Options{
		Page:          openalex.Page{PerPage: cfg.Source.PerPage, Page: cfg.Source.Page},
		Atomic:        cfg.Sync.Atomic,
		SkipMalformed: cfg.Sync.SkipMalformed,
		Timeout:       cfg.Sync.Timeout,
	}, log)
}
