package driving

import "context"

// DocumentIndexService maintains the document chunk collection and selects
// grounding context for RAG answers.
type DocumentIndexService interface {
	// IndexDocumentText splits raw document text into overlapping windows and
	// indexes them, replacing any previous vectors for the document.
	IndexDocumentText(ctx context.Context, text, documentID, language string) error

	// IndexDocumentChunks (re)indexes pre-split chunks of one document in one
	// language. Existing vectors for the document are removed first.
	IndexDocumentChunks(ctx context.Context, chunks []string, documentID, language string) error

	// DeleteDocumentChunks removes every vector for a document. The owning
	// collaborator calls this when the document record is removed; the core
	// does not cascade on its own.
	DeleteDocumentChunks(ctx context.Context, documentID string) error

	// SearchDocuments returns relevant chunk texts for the query, ascending
	// by distance. An empty result is a valid outcome meaning "no relevant
	// context", not an error.
	SearchDocuments(ctx context.Context, query, language string) ([]string, error)
}
