package mocks

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/anita-labs/anita-core/internal/core/domain"
)

// MockVectorIndex is a brute-force in-memory VectorIndex for testing:
// equality metadata filters and exact cosine distance.
type MockVectorIndex struct {
	mu      sync.RWMutex
	records map[string]domain.VectorRecord
	failAdd error
}

// NewMockVectorIndex creates a new MockVectorIndex
func NewMockVectorIndex() *MockVectorIndex {
	return &MockVectorIndex{
		records: make(map[string]domain.VectorRecord),
	}
}

func (m *MockVectorIndex) Add(ctx context.Context, records []domain.VectorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAdd != nil {
		err := m.failAdd
		m.failAdd = nil
		return err
	}
	for _, r := range records {
		m.records[r.ID] = r
	}
	return nil
}

func (m *MockVectorIndex) Delete(ctx context.Context, filter map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.records {
		if matchesFilter(r.Metadata, filter) {
			delete(m.records, id)
		}
	}
	return nil
}

func (m *MockVectorIndex) Query(ctx context.Context, embedding []float32, k int, filter map[string]string) ([]domain.VectorHit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make([]domain.VectorHit, 0, len(m.records))
	for _, r := range m.records {
		if !matchesFilter(r.Metadata, filter) {
			continue
		}
		hits = append(hits, domain.VectorHit{
			ID:       r.ID,
			Metadata: r.Metadata,
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

// Helper methods for testing

// Count returns how many vectors are stored.
func (m *MockVectorIndex) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// IDs returns the stored vector IDs in no particular order.
func (m *MockVectorIndex) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	return ids
}

// Record returns a stored record and whether it exists.
func (m *MockVectorIndex) Record(id string) (domain.VectorRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	return r, ok
}

// SetFailAdd makes the next Add call return err.
func (m *MockVectorIndex) SetFailAdd(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAdd = err
}

func matchesFilter(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

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
