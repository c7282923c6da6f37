package driving

import (
	"context"

	"github.com/anita-labs/anita-core/internal/core/domain"
)

// QAIndexService maintains the QA vector collection and answers the
// two-phase matching question: "is this query a known question?"
type QAIndexService interface {
	// AddQAPair indexes the entry's canonical question and all variations
	AddQAPair(ctx context.Context, entry domain.QAEntry) error

	// UpdateQAPair re-indexes an entry as delete-then-add, never a partial
	// patch, so stale sibling vectors cannot outlive a change
	UpdateQAPair(ctx context.Context, entry domain.QAEntry) error

	// DeleteQAPair removes every vector owned by the entry. Call this before
	// deleting the backing row so stale vectors never outlive their owner.
	DeleteQAPair(ctx context.Context, qaID string) error

	// AddQuestionVariation indexes a single new variation
	AddQuestionVariation(ctx context.Context, variation domain.Variation) error

	// SyncIndexFromDB rebuilds the whole QA collection from the given entries
	SyncIndexFromDB(ctx context.Context, entries []domain.QAEntry) error

	// FindBestMatch runs two-phase matching for the query within a language.
	// Returns nil (no error) when no candidate clears the confidence
	// threshold.
	FindBestMatch(ctx context.Context, query, language string) (*domain.MatchResult, error)
}
