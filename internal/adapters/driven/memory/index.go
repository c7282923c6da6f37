package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/anita-labs/anita-core/internal/core/domain"
	"github.com/anita-labs/anita-core/internal/core/ports/driven"
)

// Ensure Index implements VectorIndex
var _ driven.VectorIndex = (*Index)(nil)

// Index is a brute-force in-process vector index: exact cosine distance over
// every stored vector. It backs single-instance deployments and development
// setups that run without an external vector database; contents do not
// survive a restart.
type Index struct {
	mu      sync.RWMutex
	records map[string]domain.VectorRecord
}

// NewIndex creates an empty Index
func NewIndex() *Index {
	return &Index{
		records: make(map[string]domain.VectorRecord),
	}
}

// Add upserts records by ID. Metadata is copied so later caller mutations do
// not leak into the index.
func (idx *Index) Add(ctx context.Context, records []domain.VectorRecord) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, r := range records {
		stored := domain.VectorRecord{
			ID:        r.ID,
			Embedding: append([]float32(nil), r.Embedding...),
			Metadata:  make(map[string]string, len(r.Metadata)),
		}
		for k, v := range r.Metadata {
			stored.Metadata[k] = v
		}
		idx.records[r.ID] = stored
	}
	return nil
}

// Delete removes every record whose metadata matches the filter on all keys.
// A nil or empty filter clears the index; a filter matching nothing is a
// no-op.
func (idx *Index) Delete(ctx context.Context, filter map[string]string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for id, r := range idx.records {
		if metadataMatches(r.Metadata, filter) {
			delete(idx.records, id)
		}
	}
	return nil
}

// Query returns up to k hits matching the filter, ascending by cosine
// distance. Ties break on ID so results are deterministic.
func (idx *Index) Query(ctx context.Context, embedding []float32, k int, filter map[string]string) ([]domain.VectorHit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	hits := make([]domain.VectorHit, 0, len(idx.records))
	for _, r := range idx.records {
		if !metadataMatches(r.Metadata, filter) {
			continue
		}
		metadata := make(map[string]string, len(r.Metadata))
		for key, v := range r.Metadata {
			metadata[key] = v
		}
		hits = append(hits, domain.VectorHit{
			ID:       r.ID,
			Metadata: metadata,
			Distance: cosineDistance(embedding, r.Embedding),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns how many vectors are stored.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.records)
}

func metadataMatches(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

// cosineDistance is 1 minus cosine similarity. Mismatched or zero-magnitude
// vectors get the maximum distance instead of NaN.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
