package ingest_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmgolembiowski/spyglass/internal/ingest"
	"github.com/dmgolembiowski/spyglass/internal/registry"
)

// recordingCrawl records every url it was asked to delete, so
// TestDeleteDocumentsByURI can assert the crawl queue was actually reached.
type recordingCrawl struct {
	mu      sync.Mutex
	deleted []string
}

func (c *recordingCrawl) DeleteManyByURL(_ context.Context, urls []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, urls...)
	return nil
}

func (*recordingCrawl) EnqueueRecrawl(context.Context, string, bool, bool) error { return nil }

/*
TestDeleteDocumentsByURI verifies every store implicated in a document's
lifecycle is cleaned up: the crawl queue, the search index, any queued
embedding work, and finally the registry row itself.
*/
func TestDeleteDocumentsByURI(t *testing.T) {
	reg := newFakeRegistry()
	idx := newFakeIndex()
	embed := &fakeEmbed{}
	crawl := &recordingCrawl{}

	core := ingest.New(reg, idx, newFakeTags(), embed, crawl, testLogger(), false)

	doc := registry.Document{ID: "row-1", DocID: "doc-1", URL: "https://example.com/a"}
	reg.byURL[doc.URL] = doc
	reg.byDocID[doc.DocID] = doc
	idx.docs[doc.DocID] = nil

	core.DeleteDocumentsByURI(context.Background(), []string{doc.URL})

	assert.ElementsMatch(t, []string{doc.URL}, crawl.deleted)
	assert.ElementsMatch(t, []string{doc.URL}, embed.deleted)
	assert.NotContains(t, idx.docs, doc.DocID)
	assert.NotContains(t, reg.byURL, doc.URL)
}
