package ingest

import (
	"context"

	"github.com/dmgolembiowski/spyglass/internal/platform/constants"
	"github.com/dmgolembiowski/spyglass/pkg/slice"
)

// DeleteDocumentsByURI removes the crawl queue entry, search index entry,
// and registry row for every uri given (spec §4.F). Each step is
// log-and-continue: a failure in one store must not block cleanup of the
// others, matching the original's "best effort" deletion semantics.
func (c *Core) DeleteDocumentsByURI(ctx context.Context, uris []string) {
	c.logger.Info("deleting_documents", "count", len(uris))

	if err := c.crawl.DeleteManyByURL(ctx, uris); err != nil {
		c.logger.Warn("crawl_queue_delete_failed", "error", err)
	}

	for _, chunk := range slice.Chunk(uris, constants.BatchSize) {
		existing, err := c.registry.FindByURLs(ctx, chunk)
		if err != nil {
			c.logger.Warn("registry_find_failed", "error", err)
			continue
		}

		docIDs := make([]string, 0, len(existing))
		for _, d := range existing {
			docIDs = append(docIDs, d.DocID)
		}

		if err := c.index.DeleteManyByID(docIDs); err != nil {
			c.logger.Warn("index_delete_many_failed", "error", err)
		}

		if err := c.embed.DeleteAllByURLs(ctx, chunk); err != nil {
			c.logger.Warn("embedding_delete_failed", "error", err)
		}

		if err := c.registry.DeleteManyByURL(ctx, chunk); err != nil {
			c.logger.Warn("registry_delete_failed", "error", err)
		}

		c.logger.Info("documents_deleted", "chunk_size", len(chunk), "matched", len(existing))
	}
}
