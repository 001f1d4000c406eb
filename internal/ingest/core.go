// Package ingest implements the Ingestor, Deleter, and TagMutator
// components (spec §4.E, §4.F, §4.G): the workflows that keep the search
// index and the relational registry in sync as documents are crawled,
// deleted, or re-tagged.
package ingest

import (
	"context"
	"log/slog"

	"github.com/dmgolembiowski/spyglass/internal/crawlqueue"
	"github.com/dmgolembiowski/spyglass/internal/platform/dbtx"
	"github.com/dmgolembiowski/spyglass/internal/registry"
	"github.com/dmgolembiowski/spyglass/spyglass"
)

// registryStore is the slice of [registry.Registry] that ingestion
// workflows need. Defining it here (rather than depending on the concrete
// type) lets tests substitute an in-memory fake instead of a live
// PostgreSQL connection.
type registryStore interface {
	Begin(ctx context.Context) (dbtx.Tx, error)
	FindByURLs(ctx context.Context, urls []string) ([]registry.Document, error)
	FindByDocIDs(ctx context.Context, docIDs []string) ([]registry.Document, error)
	InsertMany(ctx context.Context, tx dbtx.Tx, docs []registry.Document) error
	Save(ctx context.Context, tx dbtx.Tx, id string) error
	DeleteManyByURL(ctx context.Context, urls []string) error
	InsertTagsForDocs(ctx context.Context, tx dbtx.Tx, docs []registry.Document, tagIDs []int64) error
	InsertTagsForDocsByID(ctx context.Context, tx dbtx.Tx, documentIDs []string, tagIDs []int64, replace bool) error
	RemoveTagsForDocsByID(ctx context.Context, tx dbtx.Tx, documentIDs []string, tagIDs []int64) error
	GetTagIDsByDocID(ctx context.Context, docID string) ([]int64, error)
}

// indexWriter is the slice of [searchindex.Writer] that ingestion workflows
// need.
type indexWriter interface {
	Upsert(update *spyglass.DocumentUpdate) (string, error)
	DeleteManyByID(ids []string) error
	Save() error
	Commit() error
}

// tagResolver is the slice of [tagresolver.Resolver] that ingestion
// workflows need.
type tagResolver interface {
	Resolve(ctx context.Context, tags []spyglass.TagPair, cache map[string]int64) ([]int64, error)
}

// embedScheduler is the slice of [embedqueue.Scheduler] that ingestion
// workflows need.
type embedScheduler interface {
	Enqueue(ctx context.Context, tx dbtx.Tx, docID, documentID, content string) error
	DeleteAllByURLs(ctx context.Context, urls []string) error
}

// Core bundles the collaborators every ingestion workflow needs. It is the
// single entry point cmd/ingestd wires up and hands to whatever out-of-scope
// caller drives crawling, lens parsing, or tag edits.
type Core struct {
	registry registryStore
	index    indexWriter
	tags     tagResolver
	embed    embedScheduler
	crawl    crawlqueue.Store
	logger   *slog.Logger

	// embeddingEnabled gates whether ProcessCrawlResults schedules embedding
	// work at all (spec §4.I's Config.EmbeddingEnabled). ProcessRecords never
	// schedules embedding work.
	embeddingEnabled bool
}

// New constructs a Core from its collaborators.
func New(
	reg registryStore,
	index indexWriter,
	tags tagResolver,
	embed embedScheduler,
	crawl crawlqueue.Store,
	logger *slog.Logger,
	embeddingEnabled bool,
) *Core {
	return &Core{
		registry:         reg,
		index:            index,
		tags:             tags,
		embed:            embed,
		crawl:            crawl,
		logger:           logger,
		embeddingEnabled: embeddingEnabled,
	}
}
