package ai

import (
	"fmt"

	"github.com/anita-labs/anita-core/internal/core/domain"
	"github.com/anita-labs/anita-core/internal/core/ports/driven"
)

// CreateEmbeddingService creates an embedding service from settings.
// Unconfigured settings yield nil, nil: the dependent features stay disabled.
func CreateEmbeddingService(settings *domain.AISettings) (driven.EmbeddingService, error) {
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOpenAI:
		return NewOpenAIEmbedding(settings.APIKey, settings.Model, settings.BaseURL)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
}

// CreateGenerator creates a generator from settings.
// Unconfigured settings yield nil, nil: the dependent features stay disabled.
func CreateGenerator(settings *domain.AISettings) (driven.Generator, error) {
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOpenAI:
		return NewOpenAIGenerator(settings.APIKey, settings.Model, settings.BaseURL)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
}
