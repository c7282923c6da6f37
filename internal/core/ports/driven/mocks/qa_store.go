package mocks

import (
	"context"
	"sync"

	"github.com/anita-labs/anita-core/internal/core/domain"
)

// MockQAStore is an in-memory QAStore for testing.
type MockQAStore struct {
	mu      sync.RWMutex
	answers map[string]string
	entries []domain.QAEntry
}

// NewMockQAStore creates a new MockQAStore
func NewMockQAStore() *MockQAStore {
	return &MockQAStore{
		answers: make(map[string]string),
	}
}

func (m *MockQAStore) GetAnswer(ctx context.Context, qaID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	answer, ok := m.answers[qaID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return answer, nil
}

func (m *MockQAStore) ListEntries(ctx context.Context) ([]domain.QAEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]domain.QAEntry, len(m.entries))
	copy(entries, m.entries)
	return entries, nil
}

// Helper methods for testing

func (m *MockQAStore) SetAnswer(qaID, answer string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers[qaID] = answer
}

func (m *MockQAStore) SetEntries(entries []domain.QAEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = entries
}
