package schema

// EmbeddingQueueTable represents the 'embedding_queue' table: work items the
// (out-of-scope) embedding-model runtime consumes to compute and persist
// vector embeddings for document content.
type EmbeddingQueueTable struct {
	Table      string
	ID         string
	DocID      string
	DocumentID string
	Content    string
	EnqueuedAt string
}

// EmbeddingQueue is the schema definition for the embedding_queue table.
var EmbeddingQueue = EmbeddingQueueTable{
	Table:      "embedding_queue",
	ID:         "id",
	DocID:      "doc_id",
	DocumentID: "document_id",
	Content:    "content",
	EnqueuedAt: "enqueued_at",
}
