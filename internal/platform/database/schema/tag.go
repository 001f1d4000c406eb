package schema

// TagTable represents the 'tag' table.
//
// A tag row is immutable once created: (label, value) is unique, and the
// assigned id never changes. Only the associations in [IndexedDocumentTag]
// are ever added or removed.
type TagTable struct {
	Table     string
	ID        string
	Label     string
	Value     string
	CreatedAt string
}

// Tag is the schema definition for the tag table.
var Tag = TagTable{
	Table:     "tag",
	ID:        "id",
	Label:     "label",
	Value:     "value",
	CreatedAt: "created_at",
}

func (t TagTable) Columns() []string {
	return []string{t.ID, t.Label, t.Value, t.CreatedAt}
}
