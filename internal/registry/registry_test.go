package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmgolembiowski/spyglass/internal/registry"
)

/*
TestNewDocument verifies a freshly built Document carries a non-empty
uuidv7 id and stamps both timestamps identically.
*/
func TestNewDocument(t *testing.T) {
	openURL := "https://example.com/open"
	doc := registry.NewDocument("doc-123", "https://example.com/a", "example.com", &openURL)

	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "doc-123", doc.DocID)
	assert.Equal(t, "https://example.com/a", doc.URL)
	assert.Equal(t, "example.com", doc.Domain)
	assert.Equal(t, &openURL, doc.OpenURL)
	assert.Equal(t, doc.CreatedAt, doc.UpdatedAt)
}
