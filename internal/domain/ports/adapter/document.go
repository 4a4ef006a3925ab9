package adapter

import "context"

// DocumentIngester is the port for knowledge-base document processing.
// Ingest is synchronous from the executor's point of view: it returns only
// once the document is queryable (or has failed).
type DocumentIngester interface {
	Ingest(ctx context.Context, documentRef, conversationID string) error
}
