// Package crawlqueue is the interface this core uses to reach into the
// crawler's own crawl_queue table (spec §3: "external collaborator's
// store, referenced through an interface owned by this core only for
// delete/enqueue calls it must make"). The crawler itself, and everything
// else about how it decides what to fetch, is out of scope.
package crawlqueue

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmgolembiowski/spyglass/internal/platform/constants"
	"github.com/dmgolembiowski/spyglass/internal/platform/database/schema"
	"github.com/dmgolembiowski/spyglass/internal/platform/dberr"
	"github.com/dmgolembiowski/spyglass/pkg/slice"
)

// Store is the subset of crawl_queue operations this core needs.
type Store interface {
	// DeleteManyByURL removes crawl_queue rows for urls, so a deleted
	// document is not immediately re-crawled.
	DeleteManyByURL(ctx context.Context, urls []string) error

	// EnqueueRecrawl inserts (or reactivates) a crawl_queue row for url,
	// used by schema migration to force a re-crawl of every document url
	// the registry lists (spec §4.H).
	EnqueueRecrawl(ctx context.Context, url string, forceAllow, isRecrawl bool) error
}

// PostgresStore is the default [Store] backed by the registry's own
// PostgreSQL pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// New constructs a PostgresStore backed by pool.
func New(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// DeleteManyByURL implements [Store].
func (s *PostgresStore) DeleteManyByURL(ctx context.Context, urls []string) error {
	if len(urls) == 0 {
		return nil
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = ANY($1)`, schema.CrawlQueue.Table, schema.CrawlQueue.URL)

	for _, chunk := range slice.Chunk(urls, constants.BatchSize) {
		if _, err := s.pool.Exec(ctx, query, chunk); err != nil {
			return dberr.Wrap(err, "crawlqueue_delete_many_by_url")
		}
	}
	return nil
}

// EnqueueRecrawl implements [Store]. A pre-existing row for the same url is
// reactivated with the new force_allow/is_recrawl flags rather than
// duplicated.
func (s *PostgresStore) EnqueueRecrawl(ctx context.Context, url string, forceAllow, isRecrawl bool) error {
	query := fmt.Sprintf(
		`INSERT INTO %s (%s, %s, %s) VALUES ($1, $2, $3)
		 ON CONFLICT (%s) DO UPDATE SET %s = $2, %s = $3`,
		schema.CrawlQueue.Table, schema.CrawlQueue.URL, schema.CrawlQueue.ForceAllow, schema.CrawlQueue.IsRecrawl,
		schema.CrawlQueue.URL, schema.CrawlQueue.ForceAllow, schema.CrawlQueue.IsRecrawl,
	)

	if _, err := s.pool.Exec(ctx, query, url, forceAllow, isRecrawl); err != nil {
		return dberr.Wrap(err, "crawlqueue_enqueue_recrawl")
	}
	return nil
}
