package mocks

import (
	"context"
	"sync"
	"time"
)

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// MockCache is an in-memory TTL cache for testing
type MockCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry

	GetCalls   int
	SetCalls   int
	LastSetTTL time.Duration
}

// NewMockCache creates an empty MockCache
func NewMockCache() *MockCache {
	return &MockCache{
		entries: make(map[string]cacheEntry),
	}
}

func (m *MockCache) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls++

	entry, ok := m.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return "", false, nil
	}
	return entry.value, true, nil
}

func (m *MockCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetCalls++
	m.LastSetTTL = ttl

	m.entries[key] = cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MockCache) Ping(ctx context.Context) error {
	return nil
}
