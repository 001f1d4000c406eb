/*
Package config handles ingestion-core-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (registry, index, embedding queue) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the core is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the ingestion core.
type Config struct {

	// Environment settings
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Debug       bool   `env:"DEBUG"       envDefault:"false"`

	// Relational registry (PostgreSQL): document records, tag rows,
	// embedding queue, crawl queue.
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the registry's SQL migrations.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./internal/platform/migration/sql"`

	// IndexDir is the filesystem path to the full-text search index.
	IndexDir string `env:"INDEX_DIR,required"`

	// EmbeddingEnabled reports whether an embedding-model handle is
	// configured. The embedding runtime itself is out of scope for this
	// core (spec §1); this flag only gates whether the ingestor schedules
	// embedding work at all.
	EmbeddingEnabled bool `env:"EMBEDDING_ENABLED" envDefault:"false"`

	// BatchSize is parsed from BATCH_SIZE (spec §4.C's BATCH_SIZE). No
	// component reads it: the stores chunk by constants.BatchSize.
	BatchSize int `env:"BATCH_SIZE" envDefault:"500"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	return cfg, nil
}

// IsDevelopment reports whether the core is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the core is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
