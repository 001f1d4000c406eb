package searchindex_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmgolembiowski/spyglass/internal/searchindex"
	"github.com/dmgolembiowski/spyglass/spyglass"
)

/*
TestWriter_UpsertAssignsDocID verifies that Upsert allocates a fresh id for
a brand-new document when DocID is nil.
*/
func TestWriter_UpsertAssignsDocID(t *testing.T) {
	w, err := searchindex.Open(filepath.Join(t.TempDir(), "idx"))
	require.NoError(t, err)
	defer w.Close()

	id, err := w.Upsert(&spyglass.DocumentUpdate{
		Title:   "Example",
		Domain:  "example.com",
		URL:     "https://example.com/a",
		Content: "hello world",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

/*
TestWriter_UpsertReusesExistingDocID verifies that passing DocID overwrites
the existing entry rather than allocating a new id.
*/
func TestWriter_UpsertReusesExistingDocID(t *testing.T) {
	w, err := searchindex.Open(filepath.Join(t.TempDir(), "idx"))
	require.NoError(t, err)
	defer w.Close()

	first, err := w.Upsert(&spyglass.DocumentUpdate{
		Title: "v1", Domain: "example.com", URL: "https://example.com/a",
	})
	require.NoError(t, err)

	second, err := w.Upsert(&spyglass.DocumentUpdate{
		DocID: &first, Title: "v2", Domain: "example.com", URL: "https://example.com/a",
	})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

/*
TestWriter_DeleteManyByID verifies deleting a known id together with an
unknown one succeeds without error: unknown ids are silently ignored
(matches bleve's own Delete semantics).
*/
func TestWriter_DeleteManyByID(t *testing.T) {
	w, err := searchindex.Open(filepath.Join(t.TempDir(), "idx"))
	require.NoError(t, err)
	defer w.Close()

	id, err := w.Upsert(&spyglass.DocumentUpdate{Title: "x", Domain: "d", URL: "https://d/1"})
	require.NoError(t, err)

	err = w.DeleteManyByID([]string{id, "does-not-exist"})
	assert.NoError(t, err)
}

/*
TestWriter_DeleteManyByID_Empty verifies a no-op on an empty id list, rather
than issuing an empty bleve batch.
*/
func TestWriter_DeleteManyByID_Empty(t *testing.T) {
	w, err := searchindex.Open(filepath.Join(t.TempDir(), "idx"))
	require.NoError(t, err)
	defer w.Close()

	assert.NoError(t, w.DeleteManyByID(nil))
}
