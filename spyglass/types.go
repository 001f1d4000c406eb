// Package spyglass defines the data types exchanged between the ingestion
// core and its external collaborators (the crawler, the lens/parser layer,
// and whatever process drives tag edits).
//
// Nothing in this package talks to a database or a search index; it exists
// so internal/ingest, internal/tagresolver, and internal/searchindex can
// share a vocabulary without importing each other's internals.
package spyglass

import "time"

// TagPair is a (label, value) pair, e.g. ("lens", "rust-docs") or
// ("source", "bookmark-import").
type TagPair struct {
	Label string
	Value string
}

// CrawlResult is a single page fetched and parsed by the crawler.
type CrawlResult struct {
	URL       string
	OpenURL   *string
	Title     *string
	Content   *string
	Tags      []TagPair
}

// ParseResult is a single record produced by a lens over some non-crawled
// source (a bookmark export, a local file tree, ...).
type ParseResult struct {
	CanonicalURL *string
	Title        *string
	Content      string
}

// LensConfig supplies the tags a lens attaches to every document it
// produces via ProcessRecords.
type LensConfig interface {
	AllTags() []TagPair
}

// TagModification describes tags to add to and/or remove from a set of
// already-indexed documents.
type TagModification struct {
	Add    []TagPair
	Remove []TagPair
}

// RetrievedDocument is a document read back from the search index, used as
// input to TagMutator.UpdateTags (the caller already has the document body
// on hand and is only changing its tag set).
type RetrievedDocument struct {
	DocID   string
	Title   string
	Domain  string
	URL     string
	Content string
}

// DocumentUpdate is the payload IndexWriter.Upsert writes into the search
// index. DocID is nil for a brand-new document; the index assigns one.
type DocumentUpdate struct {
	DocID         *string
	Title         string
	Domain        string
	URL           string
	Content       string
	TagIDs        []int64
	PublishedAt   *time.Time
	LastModified  *time.Time
}

// AddUpdateResult reports how many documents a ProcessCrawlResults call
// added versus how many already existed.
type AddUpdateResult struct {
	NumAdded   int
	NumUpdated int
}
