package driven

import (
	"context"

	"github.com/anita-labs/anita-core/internal/core/domain"
)

// VectorIndex is one independently addressable vector collection. The QA
// question collection and the document chunk collection are two separate
// VectorIndex instances; a query against one can never resolve against the
// other.
//
// Implementations must use a consistent distance metric per collection
// (cosine distance). They are safe for concurrent readers; concurrent
// writers are not coordinated here - update paths take a per-entity
// DistributedLock around their delete-then-add sequence instead.
type VectorIndex interface {
	// Add inserts records into the collection. The index does not overwrite
	// in place: update paths must Delete matching entries before re-adding.
	Add(ctx context.Context, records []domain.VectorRecord) error

	// Delete removes every record whose metadata matches all key/value pairs
	// in filter. An empty filter clears the whole collection. A filter that
	// matches nothing is a no-op, not an error.
	Delete(ctx context.Context, filter map[string]string) error

	// Query returns up to k nearest records among those matching filter,
	// ranked ascending by cosine distance.
	Query(ctx context.Context, embedding []float32, k int, filter map[string]string) ([]domain.VectorHit, error)
}
