package driving

import (
	"context"

	"github.com/anita-labs/anita-core/internal/core/domain"
)

// ChatService is the composed router + assembler entry point: one call per
// user query, one ordered stream of content fragments terminated by exactly
// one metadata record.
type ChatService interface {
	// GenerateResponseStream routes the query through QA matching, document
	// retrieval and general knowledge generation, in that order, and streams
	// whichever branch answers. The returned channel is closed after the
	// terminal metadata event. Cancelling ctx stops the producer promptly;
	// a cancelled stream is closed without a metadata event.
	GenerateResponseStream(ctx context.Context, query, language string, history []domain.ChatTurn, lessonContext string) (<-chan domain.StreamEvent, error)
}
