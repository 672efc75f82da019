package cache

import (
	"sync"
	"time"
)

// MockCache is an in-memory Cache for tests. TTLs are honoured.
type MockCache struct {
	mu   sync.Mutex
	data map[string]mockEntry
	hits uint64
	miss uint64
}

type mockEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// NewMockCache creates a new mock cache for testing.
func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string]mockEntry)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, found := m.data[key]
	if !found || (!e.expiresAt.IsZero() && time.Now().After(e.expiresAt)) {
		m.miss++
		return nil, false
	}
	m.hits++
	return e.value, true
}

func (m *MockCache) Set(key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := mockEntry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	m.data[key] = e
}

func (m *MockCache) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

func (m *MockCache) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]mockEntry)
}

func (m *MockCache) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{Hits: m.hits, Misses: m.miss, Items: int64(len(m.data))}
}
