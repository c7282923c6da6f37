package mocks

import (
	"context"
	"sync"

	"github.com/anita-labs/anita-core/internal/core/domain"
)

// MockGenerator is a scripted Generator for testing the router and assembler.
type MockGenerator struct {
	mu            sync.Mutex
	response      string
	fragments     []string
	err           error
	pingErr       error
	blockOnStream bool
	requests      []domain.GenerationRequest
}

// NewMockGenerator creates a new MockGenerator
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{
		response:  "mock response",
		fragments: []string{"mock ", "response"},
	}
}

func (m *MockGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *MockGenerator) GenerateStream(ctx context.Context, req domain.GenerationRequest, onDelta func(string) error) error {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	fragments := m.fragments
	err := m.err
	block := m.blockOnStream
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}

	for _, f := range fragments {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if deltaErr := onDelta(f); deltaErr != nil {
			return deltaErr
		}
	}
	return err
}

func (m *MockGenerator) Model() string {
	return "mock-generator"
}

func (m *MockGenerator) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pingErr
}

func (m *MockGenerator) Close() error {
	return nil
}

// Helper methods for testing

func (m *MockGenerator) SetResponse(response string, fragments ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = response
	m.fragments = fragments
}

// SetError makes streaming fail after any scripted fragments were delivered.
func (m *MockGenerator) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockGenerator) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingErr = err
}

// SetBlockOnStream makes GenerateStream wait for context cancellation.
func (m *MockGenerator) SetBlockOnStream(block bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blockOnStream = block
}

// LastRequest returns the most recent request, or nil if none were made.
func (m *MockGenerator) LastRequest() *domain.GenerationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	req := m.requests[len(m.requests)-1]
	return &req
}

// Requests returns how many generation calls were made.
func (m *MockGenerator) Requests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
