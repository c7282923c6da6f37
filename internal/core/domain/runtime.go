package domain

import "sync"

// RuntimeConfig tracks which backends are available at runtime.
// The vector backend is fixed at startup; AI capability flags change when
// services are (re)configured. Thread-safe for concurrent access.
type RuntimeConfig struct {
	mu sync.RWMutex

	// Static (set at startup, read-only)
	VectorBackend string // "chroma" or "memory"

	// Dynamic capability flags (updated when AI services change)
	embeddingAvailable bool
	generatorAvailable bool
}

// NewRuntimeConfig creates a new RuntimeConfig with initial values
func NewRuntimeConfig(vectorBackend string) *RuntimeConfig {
	return &RuntimeConfig{
		VectorBackend: vectorBackend,
	}
}

// EmbeddingAvailable returns whether the embedding backend is available
func (c *RuntimeConfig) EmbeddingAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.embeddingAvailable
}

// GeneratorAvailable returns whether the language-model generator is available
func (c *RuntimeConfig) GeneratorAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generatorAvailable
}

// SetEmbeddingAvailable updates the embedding availability flag
func (c *RuntimeConfig) SetEmbeddingAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.embeddingAvailable = available
}

// SetGeneratorAvailable updates the generator availability flag
func (c *RuntimeConfig) SetGeneratorAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generatorAvailable = available
}

// CanMatch reports whether the QA and document retrieval branches can run.
// Without an embedding backend the router degrades straight to the general
// knowledge branch.
func (c *RuntimeConfig) CanMatch() bool {
	return c.EmbeddingAvailable()
}

// CanGenerate reports whether the RAG and general knowledge branches can
// produce model output.
func (c *RuntimeConfig) CanGenerate() bool {
	return c.GeneratorAvailable()
}
