package ingest_test

import (
	"context"
	"log/slog"
	"io"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmgolembiowski/spyglass/internal/ingest"
	"github.com/dmgolembiowski/spyglass/internal/platform/dbtx"
	"github.com/dmgolembiowski/spyglass/internal/registry"
	"github.com/dmgolembiowski/spyglass/pkg/uuidv7"
	"github.com/dmgolembiowski/spyglass/spyglass"
)

// fakeTx is a no-op [dbtx.Tx] sufficient for tests that don't assert on SQL
// text, only on the higher-level fake stores' recorded calls.
type fakeTx struct{}

func (fakeTx) Commit(context.Context) error   { return nil }
func (fakeTx) Rollback(context.Context) error { return nil }
func (fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }

// fakeRegistry is an in-memory stand-in for [registry.Registry], keyed by
// url, exercising the same contract ingest.Core depends on.
type fakeRegistry struct {
	mu        sync.Mutex
	byURL     map[string]registry.Document
	byDocID   map[string]registry.Document
	tagsByDoc map[string][]int64
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		byURL:     make(map[string]registry.Document),
		byDocID:   make(map[string]registry.Document),
		tagsByDoc: make(map[string][]int64),
	}
}

func (f *fakeRegistry) Begin(context.Context) (dbtx.Tx, error) { return fakeTx{}, nil }

func (f *fakeRegistry) FindByURLs(_ context.Context, urls []string) ([]registry.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []registry.Document
	for _, u := range urls {
		if d, ok := f.byURL[u]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeRegistry) FindByDocIDs(_ context.Context, docIDs []string) ([]registry.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []registry.Document
	for _, id := range docIDs {
		if d, ok := f.byDocID[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeRegistry) InsertMany(_ context.Context, _ dbtx.Tx, docs []registry.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range docs {
		f.byURL[d.URL] = d
		f.byDocID[d.DocID] = d
	}
	return nil
}

func (f *fakeRegistry) Save(context.Context, dbtx.Tx, string) error { return nil }

func (f *fakeRegistry) DeleteManyByURL(_ context.Context, urls []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range urls {
		if d, ok := f.byURL[u]; ok {
			delete(f.byDocID, d.DocID)
		}
		delete(f.byURL, u)
	}
	return nil
}

func (f *fakeRegistry) InsertTagsForDocs(_ context.Context, _ dbtx.Tx, docs []registry.Document, tagIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range docs {
		f.tagsByDoc[d.DocID] = append(f.tagsByDoc[d.DocID], tagIDs...)
	}
	return nil
}

func (f *fakeRegistry) InsertTagsForDocsByID(_ context.Context, _ dbtx.Tx, documentIDs []string, tagIDs []int64, replace bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rid := range documentIDs {
		var docID string
		for _, d := range f.byDocID {
			if d.ID == rid {
				docID = d.DocID
			}
		}
		if replace {
			f.tagsByDoc[docID] = nil
		}
		f.tagsByDoc[docID] = append(f.tagsByDoc[docID], tagIDs...)
	}
	return nil
}

func (f *fakeRegistry) RemoveTagsForDocsByID(_ context.Context, _ dbtx.Tx, documentIDs []string, tagIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	remove := make(map[int64]bool, len(tagIDs))
	for _, id := range tagIDs {
		remove[id] = true
	}
	for _, rid := range documentIDs {
		var docID string
		for _, d := range f.byDocID {
			if d.ID == rid {
				docID = d.DocID
			}
		}
		var kept []int64
		for _, id := range f.tagsByDoc[docID] {
			if !remove[id] {
				kept = append(kept, id)
			}
		}
		f.tagsByDoc[docID] = kept
	}
	return nil
}

func (f *fakeRegistry) GetTagIDsByDocID(_ context.Context, docID string) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tagsByDoc[docID], nil
}

// fakeIndex is an in-memory stand-in for [searchindex.Writer].
type fakeIndex struct {
	mu   sync.Mutex
	docs map[string]*spyglass.DocumentUpdate
}

func newFakeIndex() *fakeIndex { return &fakeIndex{docs: make(map[string]*spyglass.DocumentUpdate)} }

func (f *fakeIndex) Upsert(update *spyglass.DocumentUpdate) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := ""
	if update.DocID != nil {
		id = *update.DocID
	} else {
		id = uuidv7.New()
	}
	f.docs[id] = update
	return id, nil
}

func (f *fakeIndex) DeleteManyByID(ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.docs, id)
	}
	return nil
}

func (f *fakeIndex) Save() error   { return nil }
func (f *fakeIndex) Commit() error { return nil }

// fakeTags resolves every pair to a stable incrementing id, independent of
// any real tag table.
type fakeTags struct {
	mu   sync.Mutex
	next int64
	ids  map[string]int64
}

func newFakeTags() *fakeTags { return &fakeTags{ids: make(map[string]int64)} }

func (f *fakeTags) Resolve(_ context.Context, tags []spyglass.TagPair, cache map[string]int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int64
	for _, t := range tags {
		key := t.Label + ":" + t.Value
		if id, ok := cache[key]; ok {
			out = append(out, id)
			continue
		}
		id, ok := f.ids[key]
		if !ok {
			f.next++
			id = f.next
			f.ids[key] = id
		}
		cache[key] = id
		out = append(out, id)
	}
	return out, nil
}

type fakeEmbed struct {
	mu      sync.Mutex
	count   int
	deleted []string
}

func (f *fakeEmbed) Enqueue(context.Context, dbtx.Tx, string, string, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	return nil
}

func (f *fakeEmbed) DeleteAllByURLs(_ context.Context, urls []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, urls...)
	return nil
}

type fakeCrawl struct{}

func (fakeCrawl) DeleteManyByURL(context.Context, []string) error { return nil }
func (fakeCrawl) EnqueueRecrawl(context.Context, string, bool, bool) error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

/*
TestProcessCrawlResults_AddsNewDocuments verifies a first-time crawl of two
urls creates two registry rows and indexes both, with no pre-existing
documents touched.
*/
func TestProcessCrawlResults_AddsNewDocuments(t *testing.T) {
	reg := newFakeRegistry()
	idx := newFakeIndex()
	tags := newFakeTags()
	embed := &fakeEmbed{}

	core := ingest.New(reg, idx, tags, embed, fakeCrawl{}, testLogger(), false)

	title1 := "Example One"
	title2 := "Example Two"
	result, err := core.ProcessCrawlResults(context.Background(), []spyglass.CrawlResult{
		{URL: "https://example.com/a", Title: &title1},
		{URL: "https://example.com/b", Title: &title2},
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, result.NumAdded)
	assert.Equal(t, 0, result.NumUpdated)
	assert.Len(t, reg.byURL, 2)
}

/*
TestProcessCrawlResults_TouchesExistingDocument verifies re-crawling a
known url updates the existing registry row rather than inserting a
duplicate.
*/
func TestProcessCrawlResults_TouchesExistingDocument(t *testing.T) {
	reg := newFakeRegistry()
	idx := newFakeIndex()
	tags := newFakeTags()
	embed := &fakeEmbed{}

	core := ingest.New(reg, idx, tags, embed, fakeCrawl{}, testLogger(), false)

	existingDocID := "doc-1"
	reg.byURL["https://example.com/a"] = registry.Document{ID: "row-1", DocID: existingDocID, URL: "https://example.com/a"}
	reg.byDocID[existingDocID] = reg.byURL["https://example.com/a"]
	idx.docs[existingDocID] = &spyglass.DocumentUpdate{}

	title := "Updated Title"
	result, err := core.ProcessCrawlResults(context.Background(), []spyglass.CrawlResult{
		{URL: "https://example.com/a", Title: &title},
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 0, result.NumAdded)
	assert.Equal(t, 1, result.NumUpdated)
}

/*
TestProcessCrawlResults_Empty verifies an empty batch is a no-op returning a
zero-value result rather than touching any collaborator.
*/
func TestProcessCrawlResults_Empty(t *testing.T) {
	core := ingest.New(newFakeRegistry(), newFakeIndex(), newFakeTags(), &fakeEmbed{}, fakeCrawl{}, testLogger(), false)

	result, err := core.ProcessCrawlResults(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, &spyglass.AddUpdateResult{}, result)
}
