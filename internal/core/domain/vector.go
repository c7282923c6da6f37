package domain

// Metadata keys shared between the core and the vector-index adapters.
// The QA collection carries qa_id/language/original_text; the document
// collection carries document_id/language/chunk_text. The two collections
// are separate VectorIndex instances and never share a namespace.
const (
	MetaQAID         = "qa_id"
	MetaLanguage     = "language"
	MetaOriginalText = "original_text"
	MetaDocumentID   = "document_id"
	MetaChunkText    = "chunk_text"
)

// VectorRecord is one entry to store in a vector collection.
type VectorRecord struct {
	ID        string            `json:"id"`
	Embedding []float32         `json:"embedding"`
	Metadata  map[string]string `json:"metadata"`
}

// VectorHit is one nearest-neighbour result from a collection query.
type VectorHit struct {
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata"`
	// Distance is the cosine distance to the query vector; lower is closer.
	Distance float64 `json:"distance"`
}
