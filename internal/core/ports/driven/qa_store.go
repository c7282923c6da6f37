package driven

import (
	"context"

	"github.com/anita-labs/anita-core/internal/core/domain"
)

// QAStore is the persistence-side view of curated question/answer pairs.
// The core never owns these rows; it reads them to resolve confirmed matches
// and to rebuild the QA vector collection.
type QAStore interface {
	// GetAnswer resolves a QA identifier to its stored answer text.
	// Returns domain.ErrNotFound when no backing record exists - the router
	// treats that as "no match", not as a failure.
	GetAnswer(ctx context.Context, qaID string) (string, error)

	// ListEntries returns every entry with its variations, for full index
	// rebuilds.
	ListEntries(ctx context.Context) ([]domain.QAEntry, error)
}
