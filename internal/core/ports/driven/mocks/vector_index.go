package mocks

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/archivist-labs/ragcore/internal/core/ports/driven"
)

// MockVectorIndex is an in-memory VectorIndex for testing.
// Distance is cosine distance (1 - cosine similarity), so an identical
// embedding yields distance 0.
type MockVectorIndex struct {
	mu      sync.RWMutex
	records map[string]driven.VectorRecord

	EnsureCalls int

	failNext    bool
	failNextErr error
}

// NewMockVectorIndex creates an empty MockVectorIndex
func NewMockVectorIndex() *MockVectorIndex {
	return &MockVectorIndex{
		records: make(map[string]driven.VectorRecord),
	}
}

func (m *MockVectorIndex) EnsureCollection(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnsureCalls++
	return m.nextError()
}

func (m *MockVectorIndex) Upsert(ctx context.Context, records []driven.VectorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.nextError(); err != nil {
		return err
	}
	for _, r := range records {
		m.records[r.ID] = r
	}
	return nil
}

func (m *MockVectorIndex) Query(ctx context.Context, embedding []float32, k int, filter map[string]string) ([]driven.VectorMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.nextError(); err != nil {
		return nil, err
	}

	var matches []driven.VectorMatch
	for _, r := range m.records {
		if !metadataMatches(r.Metadata, filter) {
			continue
		}
		matches = append(matches, driven.VectorMatch{
			ID:       r.ID,
			Content:  r.Content,
			Metadata: r.Metadata,
			Distance: cosineDistance(embedding, r.Embedding),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (m *MockVectorIndex) Delete(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.nextError(); err != nil {
		return err
	}
	for _, id := range ids {
		delete(m.records, id)
	}
	return nil
}

func (m *MockVectorIndex) DeleteByFilter(ctx context.Context, filter map[string]string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.nextError(); err != nil {
		return 0, err
	}

	deleted := 0
	for id, r := range m.records {
		if metadataMatches(r.Metadata, filter) {
			delete(m.records, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MockVectorIndex) ListMetadata(ctx context.Context) ([]map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.nextError(); err != nil {
		return nil, err
	}

	metas := make([]map[string]string, 0, len(m.records))
	for _, r := range m.records {
		metas = append(metas, r.Metadata)
	}
	return metas, nil
}

func (m *MockVectorIndex) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.nextError(); err != nil {
		return 0, err
	}
	return len(m.records), nil
}

func (m *MockVectorIndex) HealthCheck(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nextError()
}

// SetFailNext makes the next call fail with the given error
func (m *MockVectorIndex) SetFailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = true
	m.failNextErr = err
}

// Len returns the number of stored records (test helper)
func (m *MockVectorIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *MockVectorIndex) nextError() error {
	if m.failNext {
		m.failNext = false
		return m.failNextErr
	}
	return nil
}

func metadataMatches(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1.0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1.0
	}
	return 1.0 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
