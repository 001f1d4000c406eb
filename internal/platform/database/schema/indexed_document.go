package schema

// IndexedDocumentTable represents the 'indexed_document' table: the
// relational per-URL document record described in spec §3. Its doc_id column
// must always equal the id of the matching entry in the search index
// (invariant D2).
type IndexedDocumentTable struct {
	Table     string
	ID        string
	DocID     string
	URL       string
	OpenURL   string
	Domain    string
	CreatedAt string
	UpdatedAt string
}

// IndexedDocument is the schema definition for the indexed_document table.
var IndexedDocument = IndexedDocumentTable{
	Table:     "indexed_document",
	ID:        "id",
	DocID:     "doc_id",
	URL:       "url",
	OpenURL:   "open_url",
	Domain:    "domain",
	CreatedAt: "created_at",
	UpdatedAt: "updated_at",
}

func (t IndexedDocumentTable) Columns() []string {
	return []string{t.ID, t.DocID, t.URL, t.OpenURL, t.Domain, t.CreatedAt, t.UpdatedAt}
}

// IndexedDocumentTagTable represents the 'indexed_document_tag' join table
// associating registry rows with resolved tag ids.
type IndexedDocumentTagTable struct {
	Table      string
	DocumentID string
	TagID      string
}

// IndexedDocumentTag is the schema definition for the join table.
var IndexedDocumentTag = IndexedDocumentTagTable{
	Table:      "indexed_document_tag",
	DocumentID: "document_id",
	TagID:      "tag_id",
}
