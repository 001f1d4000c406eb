// Package registry is the DocumentRegistry component (spec §4.C): the
// relational per-URL record of every document the search index holds, plus
// its resolved tag associations.
package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmgolembiowski/spyglass/internal/platform/constants"
	"github.com/dmgolembiowski/spyglass/internal/platform/database/schema"
	"github.com/dmgolembiowski/spyglass/internal/platform/dberr"
	"github.com/dmgolembiowski/spyglass/internal/platform/dbtx"
	"github.com/dmgolembiowski/spyglass/pkg/slice"
	"github.com/dmgolembiowski/spyglass/pkg/uuidv7"
)

// Document is a single row of the indexed_document table (invariant D2: its
// DocID always matches the id of the corresponding search index entry).
type Document struct {
	ID        string
	DocID     string
	URL       string
	OpenURL   *string
	Domain    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Registry reads and writes indexed_document rows and their tag
// associations. The insert, save and tag-association calls accept an
// explicit [dbtx.Tx] so the ingestion workflows in internal/ingest can group
// several registry calls into one transaction (spec §5); DeleteManyByURL runs
// directly against the pool.
type Registry struct {
	pool *pgxpool.Pool
}

// New constructs a Registry backed by pool.
func New(pool *pgxpool.Pool) *Registry {
	return &Registry{pool: pool}
}

// Begin starts a new transaction for the caller to pass to the tx-scoped
// methods below.
func (r *Registry) Begin(ctx context.Context) (dbtx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry: begin transaction: %w", err)
	}
	return tx, nil
}

// FindByURLs returns the registry rows whose url is one of urls, batched in
// chunks of constants.BatchSize to keep the IN-list bounded.
func (r *Registry) FindByURLs(ctx context.Context, urls []string) ([]Document, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	var out []Document
	for _, chunk := range slice.Chunk(urls, constants.BatchSize) {
		docs, err := r.findByColumn(ctx, schema.IndexedDocument.URL, chunk)
		if err != nil {
			return nil, err
		}
		out = append(out, docs...)
	}
	return out, nil
}

// FindByDocIDs returns the registry rows whose doc_id is one of docIDs.
func (r *Registry) FindByDocIDs(ctx context.Context, docIDs []string) ([]Document, error) {
	if len(docIDs) == 0 {
		return nil, nil
	}

	var out []Document
	for _, chunk := range slice.Chunk(docIDs, constants.BatchSize) {
		docs, err := r.findByColumn(ctx, schema.IndexedDocument.DocID, chunk)
		if err != nil {
			return nil, err
		}
		out = append(out, docs...)
	}
	return out, nil
}

func (r *Registry) findByColumn(ctx context.Context, column string, values []string) ([]Document, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE %s = ANY($1)`,
		columnList(), schema.IndexedDocument.Table, column,
	)

	rows, err := r.pool.Query(ctx, query, values)
	if err != nil {
		return nil, dberr.Wrap(err, "registry_find")
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "registry_scan")
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func columnList() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s",
		schema.IndexedDocument.ID, schema.IndexedDocument.DocID, schema.IndexedDocument.URL,
		schema.IndexedDocument.OpenURL, schema.IndexedDocument.Domain,
		schema.IndexedDocument.CreatedAt, schema.IndexedDocument.UpdatedAt,
	)
}

func scanDocument(row pgx.Row) (Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.DocID, &d.URL, &d.OpenURL, &d.Domain, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

// NewDocument builds a registry row for an about-to-be-inserted document,
// assigning a fresh uuidv7 primary key.
func NewDocument(docID, url, domain string, openURL *string) Document {
	now := time.Now().UTC()
	return Document{
		ID:        uuidv7.New(),
		DocID:     docID,
		URL:       url,
		Domain:    domain,
		OpenURL:   openURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// InsertMany inserts docs inside tx.
func (r *Registry) InsertMany(ctx context.Context, tx dbtx.Tx, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		schema.IndexedDocument.Table,
		schema.IndexedDocument.ID, schema.IndexedDocument.DocID, schema.IndexedDocument.URL,
		schema.IndexedDocument.OpenURL, schema.IndexedDocument.Domain,
		schema.IndexedDocument.CreatedAt, schema.IndexedDocument.UpdatedAt,
	)

	batch := &pgx.Batch{}
	for _, d := range docs {
		batch.Queue(query, d.ID, d.DocID, d.URL, d.OpenURL, d.Domain, d.CreatedAt, d.UpdatedAt)
	}

	result := tx.SendBatch(ctx, batch)
	if err := result.Close(); err != nil {
		return dberr.Wrap(err, "registry_insert_many")
	}

	return nil
}

// Save touches updated_at on an already-existing row, marking it as
// recently re-seen by a crawl (mirrors the original's "touch the existing
// model" update-with-no-field-changes step).
func (r *Registry) Save(ctx context.Context, tx dbtx.Tx, id string) error {
	query := fmt.Sprintf(
		`UPDATE %s SET %s = $1 WHERE %s = $2`,
		schema.IndexedDocument.Table, schema.IndexedDocument.UpdatedAt, schema.IndexedDocument.ID,
	)
	_, err := tx.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return dberr.Wrap(err, "registry_save")
	}
	return nil
}

// DeleteManyByURL removes registry rows whose url is in urls, batched in
// chunks of constants.BatchSize.
func (r *Registry) DeleteManyByURL(ctx context.Context, urls []string) error {
	if len(urls) == 0 {
		return nil
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = ANY($1)`, schema.IndexedDocument.Table, schema.IndexedDocument.URL)

	for _, chunk := range slice.Chunk(urls, constants.BatchSize) {
		if _, err := r.pool.Exec(ctx, query, chunk); err != nil {
			return dberr.Wrap(err, "registry_delete_many_by_url")
		}
	}
	return nil
}

// InsertTagsForDocs associates tagIDs with every document in docs, inside tx.
// It is additive: existing associations for these documents are left alone.
func (r *Registry) InsertTagsForDocs(ctx context.Context, tx dbtx.Tx, docs []Document, tagIDs []int64) error {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return insertTags(ctx, tx, ids, tagIDs)
}

// InsertTagsForDocsByID associates tagIDs with the registry rows named by
// documentIDs. When replace is true, each document's existing tag
// associations are cleared first (a full resync); when false, the
// association is purely additive, which is how UpdateTags in internal/ingest
// calls it for its add-side.
func (r *Registry) InsertTagsForDocsByID(ctx context.Context, tx dbtx.Tx, documentIDs []string, tagIDs []int64, replace bool) error {
	if replace {
		if err := clearTags(ctx, tx, documentIDs); err != nil {
			return err
		}
	}
	return insertTags(ctx, tx, documentIDs, tagIDs)
}

// RemoveTagsForDocsByID deletes the association rows for (documentIDs x
// tagIDs) from indexed_document_tag, leaving other tags on those documents
// untouched.
func (r *Registry) RemoveTagsForDocsByID(ctx context.Context, tx dbtx.Tx, documentIDs []string, tagIDs []int64) error {
	if len(documentIDs) == 0 || len(tagIDs) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		`DELETE FROM %s WHERE %s = ANY($1) AND %s = ANY($2)`,
		schema.IndexedDocumentTag.Table, schema.IndexedDocumentTag.DocumentID, schema.IndexedDocumentTag.TagID,
	)
	if _, err := tx.Exec(ctx, query, documentIDs, tagIDs); err != nil {
		return dberr.Wrap(err, "registry_remove_tags")
	}
	return nil
}

// GetTagIDsByDocID returns the tag ids associated with the document whose
// doc_id (search index id) is docID.
func (r *Registry) GetTagIDsByDocID(ctx context.Context, docID string) ([]int64, error) {
	query := fmt.Sprintf(
		`SELECT t.%s FROM %s t
		 JOIN %s dt ON dt.%s = t.%s
		 JOIN %s d ON d.%s = dt.%s
		 WHERE d.%s = $1`,
		schema.Tag.ID, schema.Tag.Table,
		schema.IndexedDocumentTag.Table, schema.IndexedDocumentTag.TagID, schema.Tag.ID,
		schema.IndexedDocument.Table, schema.IndexedDocument.ID, schema.IndexedDocumentTag.DocumentID,
		schema.IndexedDocument.DocID,
	)

	rows, err := r.pool.Query(ctx, query, docID)
	if err != nil {
		return nil, dberr.Wrap(err, "registry_get_tag_ids")
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, dberr.Wrap(err, "registry_scan_tag_id")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func clearTags(ctx context.Context, tx dbtx.Tx, documentIDs []string) error {
	if len(documentIDs) == 0 {
		return nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = ANY($1)`, schema.IndexedDocumentTag.Table, schema.IndexedDocumentTag.DocumentID)
	if _, err := tx.Exec(ctx, query, documentIDs); err != nil {
		return dberr.Wrap(err, "registry_clear_tags")
	}
	return nil
}

func insertTags(ctx context.Context, tx dbtx.Tx, documentIDs []string, tagIDs []int64) error {
	if len(documentIDs) == 0 || len(tagIDs) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (%s, %s) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		schema.IndexedDocumentTag.Table, schema.IndexedDocumentTag.DocumentID, schema.IndexedDocumentTag.TagID,
	)

	batch := &pgx.Batch{}
	for _, docID := range documentIDs {
		for _, tagID := range tagIDs {
			batch.Queue(query, docID, tagID)
		}
	}

	result := tx.SendBatch(ctx, batch)
	if err := result.Close(); err != nil {
		return dberr.Wrap(err, "registry_insert_tags")
	}

	return nil
}
