// Package dbtx declares the minimal transaction surface the registry and
// embedding scheduler need, so those packages (and their callers in
// internal/ingest) can be exercised against a fake in tests without
// depending on a live PostgreSQL connection.
//
// [pgx.Tx] already satisfies this interface structurally; no adapter is
// needed at call sites that pass a real transaction through.
package dbtx

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Tx is the subset of pgx.Tx that registry and embedqueue operations use.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}
