// Package tagresolver resolves (label, value) tag pairs to the numeric tag
// ids the registry and search index actually store, creating rows in the
// `tag` table on first use.
package tagresolver

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmgolembiowski/spyglass/internal/platform/database/schema"
	"github.com/dmgolembiowski/spyglass/internal/platform/dberr"
	"github.com/dmgolembiowski/spyglass/spyglass"
)

// Resolver resolves tag pairs to ids, creating missing tag rows as needed.
type Resolver struct {
	pool *pgxpool.Pool
}

// New constructs a Resolver backed by pool.
func New(pool *pgxpool.Pool) *Resolver {
	return &Resolver{pool: pool}
}

func uid(t spyglass.TagPair) string {
	return fmt.Sprintf("%s:%s", t.Label, t.Value)
}

// Resolve returns the tag id for every pair in tags, in no particular order,
// creating any tag rows that don't already exist.
//
// cache is a per-call map the caller supplies and reuses across repeated
// calls within a single ingestion pass (spec §5's tag cache), so the same
// label/value pair is only looked up once even across many documents.
func (r *Resolver) Resolve(ctx context.Context, tags []spyglass.TagPair, cache map[string]int64) ([]int64, error) {
	if len(tags) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(tags))
	var toCreate []spyglass.TagPair

	for _, t := range tags {
		key := uid(t)
		if id, ok := cache[key]; ok {
			ids = append(ids, id)
			continue
		}
		toCreate = append(toCreate, t)
	}

	if len(toCreate) == 0 {
		return ids, nil
	}

	created, err := r.getOrCreateMany(ctx, toCreate)
	if err != nil {
		return nil, err
	}

	for key, id := range created {
		cache[key] = id
	}
	for _, t := range toCreate {
		ids = append(ids, created[uid(t)])
	}

	return ids, nil
}

// getOrCreateMany looks up existing tag rows for pairs and inserts rows for
// any pair that doesn't already exist, returning a uid -> id map for all of
// them.
func (r *Resolver) getOrCreateMany(ctx context.Context, pairs []spyglass.TagPair) (map[string]int64, error) {
	result := make(map[string]int64, len(pairs))

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("tagresolver: begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, pair := range pairs {
		id, err := getOrCreateOne(ctx, tx, pair)
		if err != nil {
			return nil, err
		}
		result[uid(pair)] = id
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("tagresolver: commit transaction: %w", err)
	}

	return result, nil
}

// getOrCreateOne resolves a single pair inside tx: select first, and on a
// unique-constraint race fall back to selecting the row the concurrent
// insert won.
func getOrCreateOne(ctx context.Context, tx pgx.Tx, pair spyglass.TagPair) (int64, error) {
	selectQuery := fmt.Sprintf(
		`SELECT %s FROM %s WHERE %s = $1 AND %s = $2`,
		schema.Tag.ID, schema.Tag.Table, schema.Tag.Label, schema.Tag.Value,
	)

	var id int64
	err := tx.QueryRow(ctx, selectQuery, pair.Label, pair.Value).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !isNoRows(err) {
		return 0, dberr.Wrap(err, "tag_select")
	}

	insertQuery := fmt.Sprintf(
		`INSERT INTO %s (%s, %s) VALUES ($1, $2)
		 ON CONFLICT (%s, %s) DO UPDATE SET %s = %s.%s
		 RETURNING %s`,
		schema.Tag.Table, schema.Tag.Label, schema.Tag.Value,
		schema.Tag.Label, schema.Tag.Value, schema.Tag.Label, schema.Tag.Table, schema.Tag.Label,
		schema.Tag.ID,
	)

	err = tx.QueryRow(ctx, insertQuery, pair.Label, pair.Value).Scan(&id)
	if err != nil {
		return 0, dberr.Wrap(err, "tag_insert")
	}

	return id, nil
}

func isNoRows(err error) bool {
	return err == pgx.ErrNoRows
}
