package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/anita-labs/anita-core/internal/chunker"
	"github.com/anita-labs/anita-core/internal/core/domain"
	"github.com/anita-labs/anita-core/internal/core/ports/driven"
	"github.com/anita-labs/anita-core/internal/core/ports/driving"
	"github.com/anita-labs/anita-core/internal/runtime"
)

// Ensure documentService implements DocumentIndexService
var _ driving.DocumentIndexService = (*documentService)(nil)

// DocumentConfig holds the tunables of document retrieval.
type DocumentConfig struct {
	// TopK is how many chunks a search retrieves before filtering.
	TopK int

	// DistanceThreshold is the maximum cosine distance for a chunk to count
	// as relevant. Applied per candidate, not best-of.
	DistanceThreshold float64

	// LockTTL bounds how long a per-document mutation may hold its lock.
	LockTTL time.Duration
}

// DefaultDocumentConfig returns the production defaults
func DefaultDocumentConfig() DocumentConfig {
	return DocumentConfig{
		TopK:              3,
		DistanceThreshold: 0.6,
		LockTTL:           30 * time.Second,
	}
}

// documentService implements the DocumentIndexService interface
type documentService struct {
	index    driven.VectorIndex
	services *runtime.Services // Dynamic AI services
	splitter *chunker.Chunker
	lock     driven.DistributedLock
	cfg      DocumentConfig
	logger   *slog.Logger
}

// NewDocumentService creates a new DocumentIndexService.
// The embedding service is accessed dynamically via runtime.Services.
func NewDocumentService(
	index driven.VectorIndex,
	services *runtime.Services,
	splitter *chunker.Chunker,
	lock driven.DistributedLock,
	cfg DocumentConfig,
	logger *slog.Logger,
) driving.DocumentIndexService {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultDocumentConfig().TopK
	}
	if cfg.DistanceThreshold <= 0 {
		cfg.DistanceThreshold = DefaultDocumentConfig().DistanceThreshold
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultDocumentConfig().LockTTL
	}
	if splitter == nil {
		splitter = chunker.New(chunker.DefaultChunkSize, chunker.DefaultOverlap)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &documentService{
		index:    index,
		services: services,
		splitter: splitter,
		lock:     lock,
		cfg:      cfg,
		logger:   logger,
	}
}

// IndexDocumentText splits the text into overlapping windows and indexes them
func (s *documentService) IndexDocumentText(ctx context.Context, text, documentID, language string) error {
	return s.IndexDocumentChunks(ctx, s.splitter.Split(text), documentID, language)
}

// IndexDocumentChunks replaces the document's vectors with the given chunks.
// Delete-then-add under a per-document lock keeps re-indexing atomic with
// respect to other writers.
func (s *documentService) IndexDocumentChunks(ctx context.Context, chunks []string, documentID, language string) error {
	if documentID == "" {
		return fmt.Errorf("%w: empty document id", domain.ErrInvalidInput)
	}
	if language == "" {
		language = domain.DefaultLanguage
	}

	embedding, err := s.requireEmbedding()
	if err != nil {
		return err
	}

	texts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk != "" {
			texts = append(texts, chunk)
		}
	}

	return s.withDocumentLock(ctx, documentID, func() error {
		if err := s.index.Delete(ctx, map[string]string{domain.MetaDocumentID: documentID}); err != nil {
			return fmt.Errorf("delete stale chunks for %s: %w", documentID, err)
		}
		if len(texts) == 0 {
			return nil
		}

		vectors, err := embedding.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks for %s: %w", documentID, err)
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("%w: embedding batch returned %d vectors for %d chunks", domain.ErrIndexInconsistent, len(vectors), len(texts))
		}

		records := make([]domain.VectorRecord, len(texts))
		for i, text := range texts {
			records[i] = domain.VectorRecord{
				ID:        uuid.NewString(),
				Embedding: vectors[i],
				Metadata: map[string]string{
					domain.MetaDocumentID: documentID,
					domain.MetaLanguage:   language,
					domain.MetaChunkText:  text,
				},
			}
		}
		if err := s.index.Add(ctx, records); err != nil {
			return fmt.Errorf("index chunks for %s: %w", documentID, err)
		}

		s.logger.Info("document indexed", "document_id", documentID, "chunks", len(records), "language", language)
		return nil
	})
}

// DeleteDocumentChunks removes every vector for a document
func (s *documentService) DeleteDocumentChunks(ctx context.Context, documentID string) error {
	if documentID == "" {
		return fmt.Errorf("%w: empty document id", domain.ErrInvalidInput)
	}
	return s.withDocumentLock(ctx, documentID, func() error {
		if err := s.index.Delete(ctx, map[string]string{domain.MetaDocumentID: documentID}); err != nil {
			return fmt.Errorf("delete chunks for %s: %w", documentID, err)
		}
		return nil
	})
}

// SearchDocuments embeds the raw query and returns the chunk texts whose
// distance clears the relevance threshold, ascending by distance.
func (s *documentService) SearchDocuments(ctx context.Context, query, language string) ([]string, error) {
	if query == "" {
		return nil, nil
	}
	if language == "" {
		language = domain.DefaultLanguage
	}

	embedding, err := s.requireEmbedding()
	if err != nil {
		return nil, err
	}

	queryVec, err := embedding.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.index.Query(ctx, queryVec, s.cfg.TopK, map[string]string{domain.MetaLanguage: language})
	if err != nil {
		return nil, fmt.Errorf("query document index: %w", err)
	}

	chunks := make([]string, 0, len(hits))
	for _, hit := range hits {
		if hit.Distance >= s.cfg.DistanceThreshold {
			continue
		}
		text := hit.Metadata[domain.MetaChunkText]
		if text == "" {
			s.logger.Warn("skipping document vector without chunk text", "vector_id", hit.ID)
			continue
		}
		chunks = append(chunks, text)
	}
	return chunks, nil
}

func (s *documentService) requireEmbedding() (driven.EmbeddingService, error) {
	embedding := s.services.EmbeddingService()
	if embedding == nil {
		return nil, fmt.Errorf("%w: embedding service not configured", domain.ErrServiceUnavailable)
	}
	return embedding, nil
}

func (s *documentService) withDocumentLock(ctx context.Context, documentID string, fn func() error) error {
	name := "doc:" + documentID
	acquired, err := s.lock.Acquire(ctx, name, s.cfg.LockTTL)
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !acquired {
		return fmt.Errorf("%w: document %s is being modified", domain.ErrIndexBusy, documentID)
	}
	defer func() {
		if releaseErr := s.lock.Release(context.WithoutCancel(ctx), name); releaseErr != nil {
			s.logger.Warn("failed to release lock", "lock", name, "error", releaseErr)
		}
	}()
	return fn()
}
