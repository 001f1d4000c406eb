/*
Ingestd is the entry point for the ingestion core.

It wires together the relational registry (PostgreSQL), the full-text search
index (bleve), the tag resolver, the embedding scheduler, and the external
crawl queue, then hands the assembled ingest.Core to whatever out-of-scope
caller drives crawling, lens parsing, deletion, or tag edits.

Usage:

	go run cmd/ingestd/main.go

The environment variables are:

	DATABASE_URL        Postgres connection string (required)
	MIGRATION_PATH      path to the registry's SQL migrations (default: ./internal/platform/migration/sql)
	INDEX_DIR           path to the full-text search index (required)
	EMBEDDING_ENABLED   whether to schedule embedding work (default: false)
	BATCH_SIZE          parsed into Config.BatchSize (default: 500); the stores chunk by constants.BatchSize
	ENVIRONMENT         deployment environment (development, production)
	DEBUG               enable debug logging (default: false)

Startup Sequence:

 1. Logger: Initialize structured JSON logging (slog).
 2. Config: Load and validate environment variables.
 3. Storage: Establish a connection to Postgres.
 4. Migration: Run idempotent registry schema updates.
 5. Index: Open (or create) the search index at IndexDir.
 6. Schema migration: if a legacy index directory is present, migrate it
    into the current schema once.
 7. Wiring: Assemble the ingestion core from its collaborators.

No business logic lives here. This file is strictly for orchestration and
wiring.
*/
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmgolembiowski/spyglass/internal/crawlqueue"
	"github.com/dmgolembiowski/spyglass/internal/embedqueue"
	"github.com/dmgolembiowski/spyglass/internal/ingest"
	"github.com/dmgolembiowski/spyglass/internal/platform/config"
	"github.com/dmgolembiowski/spyglass/internal/platform/constants"
	"github.com/dmgolembiowski/spyglass/internal/platform/migration"
	pgstore "github.com/dmgolembiowski/spyglass/internal/platform/postgres"
	"github.com/dmgolembiowski/spyglass/internal/registry"
	"github.com/dmgolembiowski/spyglass/internal/schemamigrate"
	"github.com/dmgolembiowski/spyglass/internal/searchindex"
	"github.com/dmgolembiowski/spyglass/internal/tagresolver"
)

// legacyIndexSuffix names the directory a pre-existing index is found under
// when this process must run a one-shot schema migration before serving
// (spec §4.I).
const legacyIndexSuffix = "_old"

func main() {
	if err := run(); err != nil {
		slog.Error("application_startup_failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	// # 1. Logger
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("service_initializing")

	// # 2. Configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("index_dir", cfg.IndexDir),
		slog.Bool("embedding_enabled", cfg.EmbeddingEnabled),
	)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), constants.StartupTimeout)
	defer startupCancel()

	// # 3. PostgreSQL
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer func() {
		log.Info("closing_postgres_pool")
		pool.Close()
	}()

	// # 4. Migrations
	if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// # 5. Search index
	indexWriter, err := searchindex.Open(cfg.IndexDir)
	if err != nil {
		return fmt.Errorf("open search index: %w", err)
	}
	defer func() {
		if cerr := indexWriter.Close(); cerr != nil {
			log.Error("index_close_failed", slog.Any("error", cerr))
		}
	}()

	// # 6. Collaborators
	reg := registry.New(pool)
	tags := tagresolver.New(pool)
	embed := embedqueue.New(pool)
	crawl := crawlqueue.New(pool)

	// # 7. Schema migration
	// A legacy index directory alongside IndexDir signals a one-shot
	// migration is owed before this process can be considered ready.
	legacyDir := cfg.IndexDir + legacyIndexSuffix
	if _, statErr := os.Stat(legacyDir); statErr == nil {
		log.Info("legacy_index_detected", slog.String("path", legacyDir))

		migrator := schemamigrate.New(schemamigrate.NewPostgresRowSource(pool), crawl, log)
		if err := migrator.Migrate(startupCtx, legacyDir); err != nil {
			return fmt.Errorf("migrate legacy index: %w", err)
		}
	}

	// # 8. Core assembly
	_ = ingest.New(reg, indexWriter, tags, embed, crawl, log, cfg.EmbeddingEnabled)

	log.Info("ingestd_ready")

	// Block until signaled. The assembled core is held by whatever
	// out-of-scope process embeds this binary's wiring; standalone, this
	// process simply stays alive to keep the pool and index open.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	sig := <-quit
	log.Info("shutdown_signal_received", slog.String("signal", sig.String()))

	return nil
}
