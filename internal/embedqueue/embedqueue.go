// Package embedqueue is the EmbeddingScheduler component (spec §4.D): it
// enqueues document content for the out-of-scope embedding runtime to
// consume later, and removes queued work for documents that no longer
// exist.
//
// Open Question resolved: enqueue is a plain insert, never an upsert.
// Duplicate enqueues for the same document are accepted; the (out-of-scope)
// consumer is expected to dedup by reading with `ORDER BY enqueued_at DESC`
// and taking the most recent row, exactly as the original implementation.
package embedqueue

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmgolembiowski/spyglass/internal/platform/constants"
	"github.com/dmgolembiowski/spyglass/internal/platform/database/schema"
	"github.com/dmgolembiowski/spyglass/internal/platform/dberr"
	"github.com/dmgolembiowski/spyglass/internal/platform/dbtx"
	"github.com/dmgolembiowski/spyglass/pkg/slice"
)

// Scheduler enqueues embedding work items inside an existing transaction,
// and deletes them standalone against its own pool.
type Scheduler struct {
	pool *pgxpool.Pool
}

// New constructs a Scheduler backed by pool. Enqueue ignores pool and runs
// inside whatever transaction its caller supplies; DeleteAllByURLs uses
// pool directly.
func New(pool *pgxpool.Pool) *Scheduler {
	return &Scheduler{pool: pool}
}

// Enqueue inserts a new embedding_queue row for the document identified by
// docID (the search index id) and documentID (the indexed_document.id
// foreign key), carrying content as the text to embed.
func (s *Scheduler) Enqueue(ctx context.Context, tx dbtx.Tx, docID, documentID, content string) error {
	query := fmt.Sprintf(
		`INSERT INTO %s (%s, %s, %s) VALUES ($1, $2, $3)`,
		schema.EmbeddingQueue.Table, schema.EmbeddingQueue.DocID, schema.EmbeddingQueue.DocumentID, schema.EmbeddingQueue.Content,
	)

	if _, err := tx.Exec(ctx, query, docID, documentID, content); err != nil {
		return dberr.Wrap(err, "embedqueue_enqueue")
	}

	return nil
}

// DeleteAllByURLs removes every embedding_queue row belonging to a document
// at one of urls, the Go equivalent of the original's
// vec_to_indexed::delete_all_by_urls call made from DeleteDocumentsByURI
// (spec §4.F step 2), so no queued embedding work ever references a
// deleted url.
func (s *Scheduler) DeleteAllByURLs(ctx context.Context, urls []string) error {
	if len(urls) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		`DELETE FROM %s WHERE %s IN (SELECT %s FROM %s WHERE %s = ANY($1))`,
		schema.EmbeddingQueue.Table, schema.EmbeddingQueue.DocumentID,
		schema.IndexedDocument.ID, schema.IndexedDocument.Table, schema.IndexedDocument.URL,
	)

	for _, chunk := range slice.Chunk(urls, constants.BatchSize) {
		if _, err := s.pool.Exec(ctx, query, chunk); err != nil {
			return dberr.Wrap(err, "embedqueue_delete_all_by_urls")
		}
	}

	return nil
}
