package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/anita-labs/anita-core/internal/core/domain"
	"github.com/anita-labs/anita-core/internal/core/ports/driven"
	"github.com/anita-labs/anita-core/internal/core/ports/driving"
	"github.com/anita-labs/anita-core/internal/normalizer"
	"github.com/anita-labs/anita-core/internal/runtime"
)

// Ensure qaIndexService implements QAIndexService
var _ driving.QAIndexService = (*qaIndexService)(nil)

// QAIndexConfig holds the tunables of the two-phase matcher.
type QAIndexConfig struct {
	// Candidates is how many nearest vectors phase one retrieves for
	// re-ranking.
	Candidates int

	// ReRankThreshold is the minimum phase-two cosine similarity for a match.
	ReRankThreshold float64

	// LockTTL bounds how long a per-entry mutation may hold its lock.
	LockTTL time.Duration
}

// DefaultQAIndexConfig returns the production defaults
func DefaultQAIndexConfig() QAIndexConfig {
	return QAIndexConfig{
		Candidates:      5,
		ReRankThreshold: 0.70,
		LockTTL:         30 * time.Second,
	}
}

// qaIndexService implements the QAIndexService interface
type qaIndexService struct {
	index    driven.VectorIndex
	services *runtime.Services // Dynamic AI services
	norm     *normalizer.Normalizer
	lock     driven.DistributedLock
	cfg      QAIndexConfig
	logger   *slog.Logger
}

// NewQAIndexService creates a new QAIndexService.
// The embedding service is accessed dynamically via runtime.Services.
func NewQAIndexService(
	index driven.VectorIndex,
	services *runtime.Services,
	norm *normalizer.Normalizer,
	lock driven.DistributedLock,
	cfg QAIndexConfig,
	logger *slog.Logger,
) driving.QAIndexService {
	if cfg.Candidates <= 0 {
		cfg.Candidates = DefaultQAIndexConfig().Candidates
	}
	if cfg.ReRankThreshold <= 0 {
		cfg.ReRankThreshold = DefaultQAIndexConfig().ReRankThreshold
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultQAIndexConfig().LockTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &qaIndexService{
		index:    index,
		services: services,
		norm:     norm,
		lock:     lock,
		cfg:      cfg,
		logger:   logger,
	}
}

// AddQAPair indexes the entry's canonical question and every variation
func (s *qaIndexService) AddQAPair(ctx context.Context, entry domain.QAEntry) error {
	if entry.ID == "" {
		return fmt.Errorf("%w: qa entry has no id", domain.ErrInvalidInput)
	}
	if !entry.HasQuestions() {
		s.logger.Debug("qa entry has nothing to index", "qa_id", entry.ID)
		return nil
	}
	return s.indexEntry(ctx, entry)
}

// UpdateQAPair re-indexes an entry as delete-then-add under a per-entry lock
// so readers never observe a mix of old and new vectors from two writers.
func (s *qaIndexService) UpdateQAPair(ctx context.Context, entry domain.QAEntry) error {
	if entry.ID == "" {
		return fmt.Errorf("%w: qa entry has no id", domain.ErrInvalidInput)
	}
	return s.withEntryLock(ctx, entry.ID, func() error {
		if err := s.index.Delete(ctx, map[string]string{domain.MetaQAID: entry.ID}); err != nil {
			return fmt.Errorf("delete stale vectors for %s: %w", entry.ID, err)
		}
		if !entry.HasQuestions() {
			return nil
		}
		return s.indexEntry(ctx, entry)
	})
}

// DeleteQAPair removes every vector owned by the entry
func (s *qaIndexService) DeleteQAPair(ctx context.Context, qaID string) error {
	if qaID == "" {
		return fmt.Errorf("%w: empty qa id", domain.ErrInvalidInput)
	}
	return s.withEntryLock(ctx, qaID, func() error {
		if err := s.index.Delete(ctx, map[string]string{domain.MetaQAID: qaID}); err != nil {
			return fmt.Errorf("delete vectors for %s: %w", qaID, err)
		}
		return nil
	})
}

// AddQuestionVariation indexes one new variation for an existing entry
func (s *qaIndexService) AddQuestionVariation(ctx context.Context, variation domain.Variation) error {
	if variation.QAID == "" || variation.Text == "" {
		return fmt.Errorf("%w: variation needs qa id and text", domain.ErrInvalidInput)
	}

	embedding, err := s.requireEmbedding()
	if err != nil {
		return err
	}

	language := variation.Language
	if language == "" {
		language = domain.DefaultLanguage
	}

	text := s.indexableText(variation.Text, language)
	vectors, err := embedding.Embed(ctx, []string{text})
	if err != nil {
		return fmt.Errorf("embed variation %d: %w", variation.ID, err)
	}

	record := domain.VectorRecord{
		ID:        variationVectorID(variation.ID),
		Embedding: vectors[0],
		Metadata: map[string]string{
			domain.MetaQAID:         variation.QAID,
			domain.MetaLanguage:     language,
			domain.MetaOriginalText: variation.Text,
		},
	}
	if err := s.index.Add(ctx, []domain.VectorRecord{record}); err != nil {
		return fmt.Errorf("index variation %d: %w", variation.ID, err)
	}
	return nil
}

// SyncIndexFromDB rebuilds the whole collection from the given entries.
// The collection is cleared first so removed entries do not linger.
func (s *qaIndexService) SyncIndexFromDB(ctx context.Context, entries []domain.QAEntry) error {
	if _, err := s.requireEmbedding(); err != nil {
		return err
	}

	if err := s.index.Delete(ctx, nil); err != nil {
		return fmt.Errorf("clear qa index: %w", err)
	}

	indexed := 0
	for _, entry := range entries {
		if entry.ID == "" || !entry.HasQuestions() {
			continue
		}
		if err := s.indexEntry(ctx, entry); err != nil {
			return fmt.Errorf("sync entry %s: %w", entry.ID, err)
		}
		indexed++
	}

	s.logger.Info("qa index rebuilt", "entries", indexed, "skipped", len(entries)-indexed)
	return nil
}

// FindBestMatch runs the two-phase match: retrieve candidates by normalized
// query, then re-rank against each candidate's original phrasing using the
// raw query. Returns nil without error when nothing clears the threshold.
func (s *qaIndexService) FindBestMatch(ctx context.Context, query, language string) (*domain.MatchResult, error) {
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

	// Phase one: candidate retrieval on the normalized query.
	queryVec, err := embedding.EmbedQuery(ctx, s.indexableText(query, language))
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.index.Query(ctx, queryVec, s.cfg.Candidates, map[string]string{domain.MetaLanguage: language})
	if err != nil {
		return nil, fmt.Errorf("query qa index: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	// Drop hits with incomplete metadata; they cannot be re-ranked or
	// resolved to an answer.
	candidates := hits[:0]
	for _, hit := range hits {
		if hit.Metadata[domain.MetaQAID] == "" || hit.Metadata[domain.MetaOriginalText] == "" {
			s.logger.Warn("skipping qa vector with incomplete metadata", "vector_id", hit.ID)
			continue
		}
		candidates = append(candidates, hit)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	// Phase two: one batch embeds the raw query plus every candidate's
	// original phrasing, then cosine re-ranking picks the winner.
	texts := make([]string, 0, len(candidates)+1)
	texts = append(texts, query)
	for _, hit := range candidates {
		texts = append(texts, hit.Metadata[domain.MetaOriginalText])
	}
	vectors, err := embedding.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed candidates: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: embedding batch returned %d vectors for %d texts", domain.ErrIndexInconsistent, len(vectors), len(texts))
	}

	rawQueryVec := vectors[0]
	best := -1
	bestScore := math.Inf(-1)
	for i, hit := range candidates {
		score := cosineSimilarity(rawQueryVec, vectors[i+1])
		s.logger.Debug("re-rank candidate", "vector_id", hit.ID, "score", score)
		// Strict greater-than keeps the first candidate on ties; phase one
		// already ordered them by retrieval distance.
		if score > bestScore {
			bestScore = score
			best = i
		}
	}

	if best < 0 || bestScore < s.cfg.ReRankThreshold {
		return nil, nil
	}

	winner := candidates[best]
	matchLanguage := winner.Metadata[domain.MetaLanguage]
	if matchLanguage == "" {
		matchLanguage = language
	}
	return &domain.MatchResult{
		QAID:     winner.Metadata[domain.MetaQAID],
		Language: matchLanguage,
		Distance: 1 - bestScore,
	}, nil
}

// indexEntry embeds the entry's question texts in one batch and adds the
// vectors
func (s *qaIndexService) indexEntry(ctx context.Context, entry domain.QAEntry) error {
	embedding, err := s.requireEmbedding()
	if err != nil {
		return err
	}

	language := entry.EffectiveLanguage()

	type pending struct {
		id       string
		language string
		original string
	}
	var items []pending
	if entry.Question != "" {
		items = append(items, pending{
			id:       canonicalVectorID(entry.ID),
			language: language,
			original: entry.Question,
		})
	}
	for _, v := range entry.Variations {
		if v.Text == "" {
			continue
		}
		varLang := v.Language
		if varLang == "" {
			varLang = language
		}
		items = append(items, pending{
			id:       variationVectorID(v.ID),
			language: varLang,
			original: v.Text,
		})
	}
	if len(items) == 0 {
		return nil
	}

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = s.indexableText(item.original, item.language)
	}
	vectors, err := embedding.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed entry %s: %w", entry.ID, err)
	}
	if len(vectors) != len(items) {
		return fmt.Errorf("%w: embedding batch returned %d vectors for %d texts", domain.ErrIndexInconsistent, len(vectors), len(items))
	}

	records := make([]domain.VectorRecord, len(items))
	for i, item := range items {
		records[i] = domain.VectorRecord{
			ID:        item.id,
			Embedding: vectors[i],
			Metadata: map[string]string{
				domain.MetaQAID:         entry.ID,
				domain.MetaLanguage:     item.language,
				domain.MetaOriginalText: item.original,
			},
		}
	}
	if err := s.index.Add(ctx, records); err != nil {
		return fmt.Errorf("index entry %s: %w", entry.ID, err)
	}
	return nil
}

// indexableText normalizes for retrieval, falling back to the raw text when
// normalization strips everything (a query made only of stop words).
func (s *qaIndexService) indexableText(text, language string) string {
	normalized := s.norm.Normalize(text, language)
	if normalized == "" {
		return text
	}
	return normalized
}

// requireEmbedding fetches the current embedding backend or fails with
// ErrServiceUnavailable
func (s *qaIndexService) requireEmbedding() (driven.EmbeddingService, error) {
	embedding := s.services.EmbeddingService()
	if embedding == nil {
		return nil, fmt.Errorf("%w: embedding service not configured", domain.ErrServiceUnavailable)
	}
	return embedding, nil
}

// withEntryLock serializes mutations of one entry across processes. A held
// lock means another writer is mid-mutation; callers get ErrIndexBusy and
// retry rather than interleaving.
func (s *qaIndexService) withEntryLock(ctx context.Context, qaID string, fn func() error) error {
	name := "qa:" + qaID
	acquired, err := s.lock.Acquire(ctx, name, s.cfg.LockTTL)
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !acquired {
		return fmt.Errorf("%w: entry %s is being modified", domain.ErrIndexBusy, qaID)
	}
	defer func() {
		if releaseErr := s.lock.Release(context.WithoutCancel(ctx), name); releaseErr != nil {
			s.logger.Warn("failed to release lock", "lock", name, "error", releaseErr)
		}
	}()
	return fn()
}

func canonicalVectorID(qaID string) string {
	return qaID + "_main"
}

func variationVectorID(id int64) string {
	return "var_" + strconv.FormatInt(id, 10)
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Zero-magnitude input yields 0, not NaN.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
