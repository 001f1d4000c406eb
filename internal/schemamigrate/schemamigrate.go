// Package schemamigrate is the SchemaMigrator component (spec §4.H): a
// one-shot migration that copies every document named in the registry from
// a legacy search index into a freshly built one, then swaps the new index
// into place.
//
// It runs at most once per process lifetime, triggered by cmd/ingestd
// finding a legacy index directory at startup (spec §4.I, §6).
package schemamigrate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	natomic "github.com/natefinch/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/dmgolembiowski/spyglass/internal/crawlqueue"
	"github.com/dmgolembiowski/spyglass/internal/platform/constants"
	"github.com/dmgolembiowski/spyglass/internal/platform/database/schema"
	"github.com/dmgolembiowski/spyglass/internal/platform/dberr"
	"github.com/dmgolembiowski/spyglass/internal/searchindex"
	"github.com/dmgolembiowski/spyglass/spyglass"
)

// LegacyRow is a row read from the registry's indexed_document table:
// everything the migration needs to find the matching entry in the legacy
// index and to request a re-crawl once it's copied over.
type LegacyRow struct {
	DocID string
	URL   string
}

// RowSource lists the registry rows a migration must carry forward. Kept as
// an interface (rather than a dependency on *pgxpool.Pool directly) so tests
// can substitute an in-memory fake instead of a live PostgreSQL connection.
type RowSource interface {
	ListDocuments(ctx context.Context) ([]LegacyRow, error)
}

// PostgresRowSource is the default [RowSource], reading directly from the
// registry's indexed_document table.
type PostgresRowSource struct {
	pool *pgxpool.Pool
}

// NewPostgresRowSource constructs a PostgresRowSource backed by pool.
func NewPostgresRowSource(pool *pgxpool.Pool) *PostgresRowSource {
	return &PostgresRowSource{pool: pool}
}

// ListDocuments implements [RowSource].
func (s *PostgresRowSource) ListDocuments(ctx context.Context) ([]LegacyRow, error) {
	query := fmt.Sprintf(
		`SELECT %s, %s FROM %s`,
		schema.IndexedDocument.DocID, schema.IndexedDocument.URL, schema.IndexedDocument.Table,
	)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, dberr.Wrap(err, "schemamigrate_load_rows")
	}
	defer rows.Close()

	var out []LegacyRow
	for rows.Next() {
		var row LegacyRow
		if err := rows.Scan(&row.DocID, &row.URL); err != nil {
			return nil, dberr.Wrap(err, "schemamigrate_scan_row")
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "schemamigrate_iterate_rows")
	}

	return out, nil
}

// Migrator copies a legacy bleve index into the current schema.
type Migrator struct {
	rows   RowSource
	crawl  crawlqueue.Store
	logger *slog.Logger
}

// New constructs a Migrator.
func New(rows RowSource, crawl crawlqueue.Store, logger *slog.Logger) *Migrator {
	return &Migrator{rows: rows, crawl: crawl, logger: logger}
}

// Migrate copies every registry-known document from the bleve index at
// oldDir into a new index, re-enqueues each document's url for a forced
// recrawl (the legacy index is assumed to be missing content this schema
// wants), and swaps the new index into oldDir's place. oldDir's prior
// contents are preserved as a sibling backup directory. When the registry
// has no rows there is nothing to carry forward, and oldDir is removed
// outright instead.
func (m *Migrator) Migrate(ctx context.Context, oldDir string) error {
	rows, err := m.rows.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("schemamigrate: load registry rows: %w", err)
	}

	if len(rows) == 0 {
		m.logger.Info("schema_migration_skipped_no_rows")
		return os.RemoveAll(oldDir)
	}

	newDir := oldDir + constants.MigratedIndexSuffix
	if err := os.MkdirAll(newDir, 0o755); err != nil {
		return fmt.Errorf("schemamigrate: create new index dir: %w", err)
	}

	oldIndex, err := bleve.Open(oldDir)
	if err != nil {
		m.logger.Warn("schema_migration_old_index_unopenable", "error", err)
		return nil
	}

	newWriter, err := searchindex.Open(newDir)
	if err != nil {
		_ = oldIndex.Close()
		return fmt.Errorf("schemamigrate: open new index: %w", err)
	}

	m.logger.Info("schema_migration_started", "documents", len(rows))

	var writeMu sync.Mutex
	group := new(errgroup.Group)
	group.SetLimit(runtime.GOMAXPROCS(0))

	for _, row := range rows {
		row := row
		group.Go(func() error {
			fields, found, err := getLegacyFields(oldIndex, row.DocID)
			if err != nil {
				m.logger.Warn("schema_migration_lookup_failed", "doc_id", row.DocID, "error", err)
				return nil
			}
			if !found {
				return nil
			}

			docID := row.DocID
			writeMu.Lock()
			_, err = newWriter.Upsert(&spyglass.DocumentUpdate{
				DocID:   &docID,
				Title:   fields["title"],
				Domain:  fields["domain"],
				URL:     fields["url"],
				Content: fields["description"],
			})
			writeMu.Unlock()
			if err != nil {
				m.logger.Warn("schema_migration_write_failed", "doc_id", row.DocID, "error", err)
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		_ = oldIndex.Close()
		_ = newWriter.Close()
		return fmt.Errorf("schemamigrate: copy documents: %w", err)
	}

	for _, row := range rows {
		if err := m.crawl.EnqueueRecrawl(ctx, row.URL, true, true); err != nil {
			m.logger.Warn("schema_migration_recrawl_enqueue_failed", "url", row.URL, "error", err)
		}
	}

	if err := newWriter.Save(); err != nil {
		_ = oldIndex.Close()
		_ = newWriter.Close()
		return fmt.Errorf("schemamigrate: commit new index: %w", err)
	}

	if err := newWriter.Close(); err != nil {
		m.logger.Warn("schema_migration_new_index_close_failed", "error", err)
	}
	if err := oldIndex.Close(); err != nil {
		m.logger.Warn("schema_migration_old_index_close_failed", "error", err)
	}

	markerPath := filepath.Join(newDir, constants.MigrationMarkerFile)
	if err := natomic.WriteFile(markerPath, strings.NewReader("migration complete")); err != nil {
		return fmt.Errorf("schemamigrate: write completion marker: %w", err)
	}

	backupDir := oldDir + constants.BackupIndexSuffix
	if err := os.Rename(oldDir, backupDir); err != nil {
		return fmt.Errorf("schemamigrate: back up old index: %w", err)
	}

	if err := os.Rename(newDir, oldDir); err != nil {
		return fmt.Errorf("schemamigrate: move new index into place: %w", err)
	}

	m.logger.Info("schema_migration_complete", "documents", len(rows), "backup_dir", backupDir)
	return nil
}

// legacyIDField is the old schema's stored, queryable id field — distinct
// from whatever key bleve happened to index the document under internally.
// Looking documents up this way (exact-term query against the field, top-1)
// matches the old schema's own get_by_id lookup rather than assuming the
// two keys coincide.
const legacyIDField = "id"

// getLegacyFields reads the stored field values for docID out of a legacy
// bleve index via an exact-term query against the stored id field, since
// bleve has no lower-level "get stored document by internal key" call in
// its public API.
func getLegacyFields(index bleve.Index, docID string) (map[string]string, bool, error) {
	termQuery := bleve.NewTermQuery(docID)
	termQuery.SetField(legacyIDField)

	request := bleve.NewSearchRequest(termQuery)
	request.Size = 1
	request.Fields = []string{"domain", "title", "description", "url"}

	result, err := index.Search(request)
	if err != nil {
		return nil, false, err
	}
	if len(result.Hits) == 0 {
		return nil, false, nil
	}

	fields := make(map[string]string, len(result.Hits[0].Fields))
	for key, value := range result.Hits[0].Fields {
		if s, ok := value.(string); ok {
			fields[key] = s
		}
	}
	return fields, true, nil
}
