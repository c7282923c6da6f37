package driven

import (
	"context"
)

// EmbeddingService generates text embeddings.
// Embedding is deterministic for a given model version; calls are idempotent
// and side-effect free beyond inference cost. Empty input text is a caller
// error (domain.ErrInvalidInput), never silently embedded as a zero vector.
type EmbeddingService interface {
	// Embed generates embeddings for multiple texts, in input order
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query text
	EmbedQuery(ctx context.Context, query string) ([]float32, error)

	// Dimensions returns the embedding dimension size
	Dimensions() int

	// Model returns the model name being used
	Model() string

	// HealthCheck verifies the embedding backend is available.
	// A failure here is fatal at configuration time, not per-call.
	HealthCheck(ctx context.Context) error

	// Close releases resources held by the embedding service
	Close() error
}
