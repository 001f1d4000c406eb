/*
Package constants provides centralized, immutable values for the ingestion
core.

It defines default timeouts, batch sizes, and filesystem-layout suffixes
shared between the registry, search index, embedding queue, and schema
migration components.

Using this package ensures magic strings and magic numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "spyglass-ingest"
	AppVersion = "0.1.0-dev"
)

// # Database & Index Timing

const (
	// GlobalRequestTimeout bounds a single database statement: the postgres
	// package applies it as each connection's statement_timeout. Index
	// operations are not bounded by it.
	GlobalRequestTimeout = 30 * time.Second

	// StartupTimeout bounds the pool connect and the legacy-index schema
	// migration at process startup. The registry SQL migrations and the
	// index open take no context and are not bounded by it.
	StartupTimeout = 30 * time.Second
)

// # Batching

const (
	// BatchSize is the chunk size for batched registry, embedding-queue and
	// crawl-queue operations (spec §4.C). config.Config.BatchSize is parsed
	// from BATCH_SIZE but no store reads it; they all chunk by this constant.
	BatchSize = 500
)

// # Search Index Filesystem Layout

const (
	// MigratedIndexSuffix names the sibling directory used as the staging
	// area while the schema migrator builds a replacement index.
	MigratedIndexSuffix = "_migrated"

	// BackupIndexSuffix names the sibling directory the retired index is
	// moved to once a migration completes successfully.
	BackupIndexSuffix = "_backup"

	// MigrationMarkerFile is the durable marker written into the migrated
	// index directory once the handoff is complete.
	MigrationMarkerFile = "MIGRATION_COMPLETE"
)

// # Index Field Names

const (
	FieldID           = "id"
	FieldTitle        = "title"
	FieldDescription  = "description"
	FieldContent      = "content"
	FieldDomain       = "domain"
	FieldURL          = "url"
	FieldTags         = "tags"
	FieldPublishedAt  = "published_at"
	FieldLastModified = "last_modified"
)
