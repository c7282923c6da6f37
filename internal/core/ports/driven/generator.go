package driven

import (
	"context"

	"github.com/anita-labs/anita-core/internal/core/domain"
)

// Generator produces language-model answer text for the RAG and general
// knowledge branches. Both entry points accept the same request shape: a
// system instruction, an optional grounding context, optional conversation
// history and an optional auxiliary lesson context.
type Generator interface {
	// Generate returns the complete response for the request in one call
	Generate(ctx context.Context, req domain.GenerationRequest) (string, error)

	// GenerateStream streams the response incrementally. onDelta is invoked
	// once per content fragment in arrival order; returning a non-nil error
	// from onDelta stops the upstream stream. GenerateStream returns once the
	// stream is exhausted, cancelled, or fails.
	GenerateStream(ctx context.Context, req domain.GenerationRequest, onDelta func(fragment string) error) error

	// Model returns the model name being used
	Model() string

	// Ping verifies the generator backend is available
	Ping(ctx context.Context) error

	// Close releases resources held by the generator
	Close() error
}
