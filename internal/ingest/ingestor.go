package ingest

import (
	"context"
	"fmt"
	"net/url"

	"github.com/dmgolembiowski/spyglass/internal/registry"
	"github.com/dmgolembiowski/spyglass/spyglass"
)

// ProcessCrawlResults reconciles a batch of freshly crawled pages against
// the index and registry (spec §4.E):
//
//  1. Find all urls already present in the registry.
//  2. Remove their existing index entries (a crawl result always replaces,
//     never merges with, what's indexed for that url).
//  3. Upsert every result into the index, resolving its tags plus
//     globalTags.
//  4. Insert brand-new registry rows, touch updated_at on existing ones,
//     and attach the resolved tags to both.
func (c *Core) ProcessCrawlResults(ctx context.Context, results []spyglass.CrawlResult, globalTags []spyglass.TagPair) (*spyglass.AddUpdateResult, error) {
	if len(results) == 0 {
		return &spyglass.AddUpdateResult{}, nil
	}

	urls := make([]string, len(results))
	for i, r := range results {
		urls[i] = r.URL
	}

	existing, err := c.registry.FindByURLs(ctx, urls)
	if err != nil {
		return nil, fmt.Errorf("ingest: find existing documents: %w", err)
	}

	idByURL := make(map[string]string, len(existing))
	byDocID := make(map[string]registry.Document, len(existing))
	existingDocIDs := make([]string, 0, len(existing))
	for _, d := range existing {
		idByURL[d.URL] = d.DocID
		byDocID[d.DocID] = d
		existingDocIDs = append(existingDocIDs, d.DocID)
	}

	if err := c.index.DeleteManyByID(existingDocIDs); err != nil {
		c.logger.Warn("index_delete_failed", "error", err)
	}

	tagCache := make(map[string]int64)
	globalTagIDs, err := c.tags.Resolve(ctx, globalTags, tagCache)
	if err != nil {
		c.logger.Warn("tag_resolution_failed", "error", err)
	}

	tagsByURL := make(map[string][]int64, len(results))
	embeddingByDocID := make(map[string]string)

	var inserts []registry.Document
	var touchIDs []string
	var addedURLs []string

	for _, crawl := range results {
		resultTagIDs, err := c.tags.Resolve(ctx, crawl.Tags, tagCache)
		if err != nil {
			c.logger.Warn("tag_resolution_failed", "error", err, "url", crawl.URL)
		}
		allTagIDs := append(resultTagIDs, globalTagIDs...)
		tagsByURL[crawl.URL] = allTagIDs

		parsed, err := url.Parse(crawl.URL)
		if err != nil {
			c.logger.Error("crawl_result_url_invalid", "url", crawl.URL, "error", err)
			continue
		}

		var existingDocID *string
		if id, ok := idByURL[crawl.URL]; ok {
			existingDocID = &id
		}

		docID, err := c.index.Upsert(&spyglass.DocumentUpdate{
			DocID:   existingDocID,
			Title:   derefOr(crawl.Title, ""),
			Domain:  parsed.Host,
			URL:     parsed.String(),
			Content: derefOr(crawl.Content, ""),
			TagIDs:  allTagIDs,
		})
		if err != nil {
			// The index entry for this url (if any) was already deleted above;
			// a failed re-upsert here must abort the whole batch rather than
			// let the registry transaction below commit a row with no
			// matching index entry (spec §7: index upsert failures abort the
			// batch).
			return nil, fmt.Errorf("ingest: upsert document %q into index: %w", crawl.URL, err)
		}

		if c.embeddingEnabled && crawl.Content != nil {
			embeddingByDocID[docID] = *crawl.Content
		}

		if _, known := byDocID[docID]; !known {
			addedURLs = append(addedURLs, crawl.URL)
			inserts = append(inserts, registry.NewDocument(docID, parsed.String(), parsed.Host, crawl.OpenURL))
		} else {
			touchIDs = append(touchIDs, byDocID[docID].ID)
		}
	}

	tx, err := c.registry.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ingest: begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := c.registry.InsertMany(ctx, tx, inserts); err != nil {
		return nil, fmt.Errorf("ingest: insert documents: %w", err)
	}

	for _, id := range touchIDs {
		if err := c.registry.Save(ctx, tx, id); err != nil {
			return nil, fmt.Errorf("ingest: touch document %q: %w", id, err)
		}
	}

	for _, doc := range existing {
		tagIDs, ok := tagsByURL[doc.URL]
		if !ok {
			continue
		}
		if content, ok := embeddingByDocID[doc.DocID]; ok {
			if err := c.embed.Enqueue(ctx, tx, doc.DocID, doc.ID, content); err != nil {
				c.logger.Warn("embedding_enqueue_failed", "doc_id", doc.DocID, "error", err)
			}
		}
		if err := c.registry.InsertTagsForDocs(ctx, tx, []registry.Document{doc}, tagIDs); err != nil {
			return nil, fmt.Errorf("ingest: attach tags to document %q: %w", doc.DocID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ingest: commit transaction: %w", err)
	}

	if err := c.index.Save(); err != nil {
		c.logger.Warn("index_save_failed", "error", err)
	}

	addedEntries, err := c.registry.FindByURLs(ctx, addedURLs)
	if err != nil {
		return nil, fmt.Errorf("ingest: find added documents: %w", err)
	}

	tagTx, err := c.registry.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ingest: begin tag transaction: %w", err)
	}
	defer tagTx.Rollback(ctx)

	for _, added := range addedEntries {
		tagIDs, ok := tagsByURL[added.URL]
		if !ok {
			continue
		}
		if content, ok := embeddingByDocID[added.DocID]; ok {
			if err := c.embed.Enqueue(ctx, tagTx, added.DocID, added.ID, content); err != nil {
				c.logger.Warn("embedding_enqueue_failed", "doc_id", added.DocID, "error", err)
			}
		}
		if err := c.registry.InsertTagsForDocs(ctx, tagTx, []registry.Document{added}, tagIDs); err != nil {
			return nil, fmt.Errorf("ingest: attach tags to document %q: %w", added.DocID, err)
		}
	}

	if err := tagTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ingest: commit tag transaction: %w", err)
	}

	return &spyglass.AddUpdateResult{
		NumAdded:   len(addedEntries),
		NumUpdated: len(existing),
	}, nil
}

// ProcessRecords ingests a batch of lens-produced records (spec §4.E's lens
// variant): every record is tagged uniformly with lens.AllTags(), unlike
// ProcessCrawlResults where tags vary per result.
func (c *Core) ProcessRecords(ctx context.Context, lens spyglass.LensConfig, results []spyglass.ParseResult) ([]registry.Document, error) {
	urls := make([]string, 0, len(results))
	for _, r := range results {
		urls = append(urls, derefOr(r.CanonicalURL, ""))
	}

	existing, err := c.registry.FindByURLs(ctx, urls)
	if err != nil {
		return nil, fmt.Errorf("ingest: find existing documents: %w", err)
	}

	idByURL := make(map[string]string, len(existing))
	existingDocIDSet := make(map[string]struct{}, len(existing))
	existingDocIDs := make([]string, 0, len(existing))
	for _, d := range existing {
		idByURL[d.URL] = d.DocID
		existingDocIDSet[d.DocID] = struct{}{}
		existingDocIDs = append(existingDocIDs, d.DocID)
	}

	if err := c.index.DeleteManyByID(existingDocIDs); err != nil {
		c.logger.Warn("index_delete_failed", "error", err)
	}

	tagCache := make(map[string]int64)
	tagIDs, err := c.tags.Resolve(ctx, lens.AllTags(), tagCache)
	if err != nil {
		c.logger.Warn("tag_resolution_failed", "error", err)
	}

	var inserts []registry.Document
	var addedURLs []string

	for _, record := range results {
		if record.CanonicalURL == nil {
			c.logger.Warn("parse_result_missing_canonical_url", "title", derefOr(record.Title, ""))
			continue
		}

		parsed, err := url.Parse(*record.CanonicalURL)
		if err != nil {
			c.logger.Error("parse_result_url_invalid", "url", *record.CanonicalURL, "error", err)
			continue
		}

		var existingDocID *string
		if id, ok := idByURL[*record.CanonicalURL]; ok {
			existingDocID = &id
		}

		docID, err := c.index.Upsert(&spyglass.DocumentUpdate{
			DocID:   existingDocID,
			Title:   derefOr(record.Title, ""),
			Domain:  parsed.Host,
			URL:     parsed.String(),
			Content: record.Content,
			TagIDs:  tagIDs,
		})
		if err != nil {
			// As in ProcessCrawlResults: a failed re-upsert must abort the
			// whole batch, not leave a registry row with no index entry
			// (spec §7).
			return nil, fmt.Errorf("ingest: upsert document %q into index: %w", *record.CanonicalURL, err)
		}

		if _, known := existingDocIDSet[docID]; !known {
			addedURLs = append(addedURLs, parsed.String())
			openURL := parsed.String()
			inserts = append(inserts, registry.NewDocument(docID, parsed.String(), parsed.Host, &openURL))
		}
	}

	tx, err := c.registry.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ingest: begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := c.registry.InsertMany(ctx, tx, inserts); err != nil {
		return nil, fmt.Errorf("ingest: insert documents: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ingest: commit transaction: %w", err)
	}

	if err := c.index.Commit(); err != nil {
		c.logger.Warn("index_commit_failed", "error", err)
	}

	addedEntries, err := c.registry.FindByURLs(ctx, addedURLs)
	if err != nil {
		return nil, fmt.Errorf("ingest: find added documents: %w", err)
	}

	if len(addedEntries) > 0 {
		tagTx, err := c.registry.Begin(ctx)
		if err != nil {
			return nil, fmt.Errorf("ingest: begin tag transaction: %w", err)
		}
		defer tagTx.Rollback(ctx)

		if err := c.registry.InsertTagsForDocs(ctx, tagTx, addedEntries, tagIDs); err != nil {
			return nil, fmt.Errorf("ingest: attach tags to added documents: %w", err)
		}

		if err := tagTx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("ingest: commit tag transaction: %w", err)
		}
	}

	return addedEntries, nil
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
