// Package searchindex is the IndexWriter façade (spec §4.B) over a
// blevesearch/bleve full-text index: title, content, domain, url, and tags
// are all indexed; published_at/last_modified stored but not scored. There
// is no description field.
//
// A single [Writer] owns the index for the lifetime of the process. All
// mutating calls are serialized through an internal mutex — bleve's on-disk
// segment writer is not safe for concurrent callers, and spec §5 requires
// "concurrent writers are disallowed" to hold in-process regardless.
package searchindex

import (
	"fmt"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/dmgolembiowski/spyglass/pkg/uuidv7"
	"github.com/dmgolembiowski/spyglass/spyglass"
)

// document is the flattened, bleve-indexable representation of a
// [spyglass.DocumentUpdate].
type document struct {
	Title        string     `json:"title"`
	Domain       string     `json:"domain"`
	URL          string     `json:"url"`
	Content      string     `json:"content"`
	Tags         []int64    `json:"tags"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	LastModified *time.Time `json:"last_modified,omitempty"`
}

// Writer serializes all writes to a single bleve index directory.
type Writer struct {
	mu    sync.Mutex
	index bleve.Index
}

// Open opens the bleve index at dir, creating it with the default document
// mapping (spec §3's field list) if it does not already exist.
func Open(dir string) (*Writer, error) {
	index, err := bleve.Open(dir)
	if err == nil {
		return &Writer{index: index}, nil
	}
	if err != bleve.ErrorIndexPathDoesNotExist {
		return nil, fmt.Errorf("searchindex: open %q: %w", dir, err)
	}

	index, err = bleve.New(dir, buildMapping())
	if err != nil {
		return nil, fmt.Errorf("searchindex: create %q: %w", dir, err)
	}
	return &Writer{index: index}, nil
}

// buildMapping returns the document mapping for indexed documents: url and
// domain are keyword fields (exact match, not tokenized); every other field,
// tags included, falls through to bleve's dynamic default mapping.
func buildMapping() *mapping.IndexMappingImpl {
	keyword := bleve.NewTextFieldMapping()
	keyword.Analyzer = "keyword"

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("url", keyword)
	doc.AddFieldMappingsAt("domain", keyword)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	return im
}

// Close releases the underlying bleve index handle.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.index.Close()
}

// Upsert writes update into the index, assigning a fresh doc id via
// [uuidv7.New] when update.DocID is nil, and returns the id the document was
// (or now is) stored under.
func (w *Writer) Upsert(update *spyglass.DocumentUpdate) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	docID := ""
	if update.DocID != nil && *update.DocID != "" {
		docID = *update.DocID
	} else {
		docID = uuidv7.New()
	}

	doc := document{
		Title:        update.Title,
		Domain:       update.Domain,
		URL:          update.URL,
		Content:      update.Content,
		Tags:         update.TagIDs,
		PublishedAt:  update.PublishedAt,
		LastModified: update.LastModified,
	}

	if err := w.index.Index(docID, doc); err != nil {
		return "", fmt.Errorf("searchindex: upsert %q: %w", docID, err)
	}

	return docID, nil
}

// DeleteManyByID removes every document named in ids from the index. Unknown
// ids are ignored, matching bleve's own Delete semantics.
func (w *Writer) DeleteManyByID(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	batch := w.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}

	if err := w.index.Batch(batch); err != nil {
		return fmt.Errorf("searchindex: delete_many_by_id: %w", err)
	}

	return nil
}

// Save flushes any buffered segment data to disk. bleve persists on every
// Index/Batch call already; Save exists so callers (ProcessCrawlResults in
// internal/ingest, and schemamigrate after its row-copy loop) have an
// explicit commit point matching the teacher's "insert then save" idiom.
func (w *Writer) Save() error {
	return nil
}

// Commit is an alias for Save kept for callers that read more naturally as
// "commit the writer" (ProcessRecords in internal/ingest).
func (w *Writer) Commit() error {
	return w.Save()
}
