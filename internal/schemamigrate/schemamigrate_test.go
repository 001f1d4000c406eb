package schemamigrate_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/blevesearch/bleve/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmgolembiowski/spyglass/internal/schemamigrate"
)

// legacyMapping stores id as an unanalyzed keyword field, matching the old
// schema's own "id" field (distinct from whatever key bleve assigns a
// document internally).
func legacyMapping() *bleve.IndexMapping {
	keyword := bleve.NewTextFieldMapping()
	keyword.Analyzer = "keyword"

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("id", keyword)

	mapping := bleve.NewIndexMapping()
	mapping.DefaultMapping = doc
	return mapping
}

// fakeRowSource is an in-memory stand-in for [schemamigrate.PostgresRowSource].
type fakeRowSource struct {
	rows []schemamigrate.LegacyRow
}

func (f fakeRowSource) ListDocuments(context.Context) ([]schemamigrate.LegacyRow, error) {
	return f.rows, nil
}

// fakeCrawl records every recrawl request it receives.
type fakeCrawl struct {
	mu      sync.Mutex
	enqueued []string
}

func (*fakeCrawl) DeleteManyByURL(context.Context, []string) error { return nil }

func (f *fakeCrawl) EnqueueRecrawl(_ context.Context, url string, _, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, url)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedLegacyIndex builds a bare bleve index at dir containing docID as a
// stored "id" field, alongside the other stored field values a pre-migration
// index would have held. The document is indexed under a bleve-internal key
// deliberately different from docID, so a lookup that coincidentally matched
// on the internal key instead of the stored id field would find nothing.
func seedLegacyIndex(t *testing.T, dir, docID, title, domain, url, description string) {
	t.Helper()
	index, err := bleve.New(dir, legacyMapping())
	require.NoError(t, err)
	defer index.Close()

	internalKey := "bleve-key-" + docID
	err = index.Index(internalKey, map[string]any{
		"id":          docID,
		"title":       title,
		"domain":      domain,
		"url":         url,
		"description": description,
	})
	require.NoError(t, err)
}

/*
TestMigrate_CopiesDocumentsAndSwapsIndex verifies a legacy index with
registry-known documents is copied into a fresh index, every document's url
is re-enqueued for a forced recrawl, and the new index ends up swapped into
the original directory with the old contents preserved as a backup.
*/
func TestMigrate_CopiesDocumentsAndSwapsIndex(t *testing.T) {
	oldDir := filepath.Join(t.TempDir(), "index")
	seedLegacyIndex(t, oldDir, "doc-1", "Example One", "example.com", "https://example.com/a", "first document")

	rows := fakeRowSource{rows: []schemamigrate.LegacyRow{
		{DocID: "doc-1", URL: "https://example.com/a"},
	}}
	crawl := &fakeCrawl{}

	m := schemamigrate.New(rows, crawl, testLogger())
	err := m.Migrate(context.Background(), oldDir)
	require.NoError(t, err)

	assert.DirExists(t, oldDir+"_backup")
	assert.ElementsMatch(t, []string{"https://example.com/a"}, crawl.enqueued)

	newIndex, err := bleve.Open(oldDir)
	require.NoError(t, err)
	defer newIndex.Close()

	count, err := newIndex.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

/*
TestMigrate_NoRowsRemovesOldDir verifies an empty registry (nothing to
carry forward) simply discards the legacy index directory rather than
building an empty replacement.
*/
func TestMigrate_NoRowsRemovesOldDir(t *testing.T) {
	oldDir := filepath.Join(t.TempDir(), "index")
	seedLegacyIndex(t, oldDir, "doc-1", "Example One", "example.com", "https://example.com/a", "first document")

	m := schemamigrate.New(fakeRowSource{}, &fakeCrawl{}, testLogger())
	err := m.Migrate(context.Background(), oldDir)
	require.NoError(t, err)

	_, statErr := os.Stat(oldDir)
	assert.True(t, os.IsNotExist(statErr))
}
