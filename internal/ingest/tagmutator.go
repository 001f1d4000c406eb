package ingest

import (
	"context"
	"fmt"

	"github.com/dmgolembiowski/spyglass/spyglass"
)

// UpdateTags applies a tag modification request to the given documents
// (spec §4.G):
//
//  1. Resolve (and create, if new) the tags to add and the tags to remove.
//  2. Look up the documents' registry rows.
//  3. Attach the add-side tags, then detach the remove-side tags.
//  4. Re-read each document's full tag set and re-upsert it into the index
//     so the index reflects the new association immediately.
//
// NOTE: step 3's removal call passes removeIDs, not addIDs. The original
// implementation this was ported from passes add_ids to the remove step — a
// bug that would silently re-remove whatever was just added instead of the
// tags the caller asked to remove. This implementation uses the corrected
// ids.
func (c *Core) UpdateTags(ctx context.Context, documents []spyglass.RetrievedDocument, mods spyglass.TagModification) error {
	tagCache := make(map[string]int64)

	addIDs, err := c.tags.Resolve(ctx, mods.Add, tagCache)
	if err != nil {
		return fmt.Errorf("ingest: resolve add tags: %w", err)
	}

	removeIDs, err := c.tags.Resolve(ctx, mods.Remove, tagCache)
	if err != nil {
		return fmt.Errorf("ingest: resolve remove tags: %w", err)
	}

	docIDs := make([]string, len(documents))
	for i, d := range documents {
		docIDs[i] = d.DocID
	}

	rows, err := c.registry.FindByDocIDs(ctx, docIDs)
	if err != nil {
		return fmt.Errorf("ingest: find documents: %w", err)
	}

	registryIDs := make([]string, len(rows))
	for i, r := range rows {
		registryIDs[i] = r.ID
	}

	updated := false

	if len(addIDs) > 0 {
		tx, err := c.registry.Begin(ctx)
		if err != nil {
			return fmt.Errorf("ingest: begin add-tags transaction: %w", err)
		}
		if err := c.registry.InsertTagsForDocsByID(ctx, tx, registryIDs, addIDs, false); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("ingest: insert tags: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("ingest: commit add-tags transaction: %w", err)
		}
		updated = true
	}

	if len(removeIDs) > 0 {
		tx, err := c.registry.Begin(ctx)
		if err != nil {
			return fmt.Errorf("ingest: begin remove-tags transaction: %w", err)
		}
		if err := c.registry.RemoveTagsForDocsByID(ctx, tx, registryIDs, removeIDs); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("ingest: remove tags: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("ingest: commit remove-tags transaction: %w", err)
		}
		updated = true
	}

	if !updated {
		return nil
	}

	documentIDs := make([]string, len(documents))
	for i, d := range documents {
		documentIDs[i] = d.DocID
	}

	if err := c.index.DeleteManyByID(documentIDs); err != nil {
		c.logger.Warn("index_delete_failed", "error", err)
	}

	for _, doc := range documents {
		ids, err := c.registry.GetTagIDsByDocID(ctx, doc.DocID)
		if err != nil {
			c.logger.Error("tag_lookup_failed", "doc_id", doc.DocID, "error", err)
			continue
		}

		docID := doc.DocID
		if _, err := c.index.Upsert(&spyglass.DocumentUpdate{
			DocID:   &docID,
			Title:   doc.Title,
			Domain:  doc.Domain,
			URL:     doc.URL,
			Content: doc.Content,
			TagIDs:  ids,
		}); err != nil {
			c.logger.Error("index_upsert_failed", "doc_id", doc.DocID, "error", err)
		}
	}

	return nil
}
