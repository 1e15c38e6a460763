package mocks

import (
	"context"
	"hash/fnv"
)

// MockEmbeddingService is a mock implementation of EmbeddingService for testing
type MockEmbeddingService struct {
	dimensions int
	model      string

	EmbedCalls      int
	EmbedQueryCalls int

	failNext    bool
	failNextErr error
	failCount   int // number of upcoming calls that fail (for retry tests)

	closed bool
}

// NewMockEmbeddingService creates a new MockEmbeddingService
func NewMockEmbeddingService() *MockEmbeddingService {
	return &MockEmbeddingService{
		dimensions: 384,
		model:      "mock-embedding-model",
	}
}

func (m *MockEmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.EmbedCalls++
	if err := m.nextError(); err != nil {
		return nil, err
	}

	result := make([][]float32, len(texts))
	for i, text := range texts {
		result[i] = m.generateEmbedding(text)
	}
	return result, nil
}

func (m *MockEmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	m.EmbedQueryCalls++
	if err := m.nextError(); err != nil {
		return nil, err
	}
	return m.generateEmbedding(query), nil
}

func (m *MockEmbeddingService) Dimensions() int {
	return m.dimensions
}

func (m *MockEmbeddingService) Model() string {
	return m.model
}

func (m *MockEmbeddingService) HealthCheck(ctx context.Context) error {
	return m.nextError()
}

func (m *MockEmbeddingService) Close() error {
	m.closed = true
	return nil
}

// Closed reports whether Close has been called
func (m *MockEmbeddingService) Closed() bool {
	return m.closed
}

// generateEmbedding generates a deterministic embedding based on text hash.
// Identical texts always produce identical vectors.
func (m *MockEmbeddingService) generateEmbedding(text string) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	embedding := make([]float32, m.dimensions)
	for i := range embedding {
		seed = seed*1103515245 + 12345
		embedding[i] = float32(seed%1000) / 1000.0
	}
	return embedding
}

func (m *MockEmbeddingService) nextError() error {
	if m.failCount > 0 {
		m.failCount--
		return m.failNextErr
	}
	if m.failNext {
		m.failNext = false
		return m.failNextErr
	}
	return nil
}

// Helper methods for testing

// SetFailNext makes the next call fail with the given error
func (m *MockEmbeddingService) SetFailNext(err error) {
	m.failNext = true
	m.failNextErr = err
}

// SetFailCount makes the next n calls fail with the given error
func (m *MockEmbeddingService) SetFailCount(n int, err error) {
	m.failCount = n
	m.failNextErr = err
}
