package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryCounter struct {
	value     int64
	expiresAt time.Time
}

// MemoryCounterStore is an in-process CounterStore for tests and single-node
// deployments. It honors TTL expiry like the shared implementations.
type MemoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]*memoryCounter
	now      func() time.Time // injectable for tests
}

// NewMemoryCounterStore creates an empty in-memory counter store.
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{
		counters: make(map[string]*memoryCounter),
		now:      time.Now,
	}
}

// IncrBy atomically adds delta to key and refreshes its TTL.
func (m *MemoryCounterStore) IncrBy(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.incrLocked(key, delta, ttl), nil
}

// IncrAll applies all increments under one lock.
func (m *MemoryCounterStore) IncrAll(ctx context.Context, incrs []Increment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, incr := range incrs {
		m.incrLocked(incr.Key, incr.Delta, incr.TTL)
	}
	return nil
}

func (m *MemoryCounterStore) incrLocked(key string, delta int64, ttl time.Duration) int64 {
	now := m.now()
	c, ok := m.counters[key]
	if !ok || !c.expiresAt.After(now) {
		c = &memoryCounter{}
		m.counters[key] = c
	}
	c.value += delta
	c.expiresAt = now.Add(ttl)
	return c.value
}

// Get returns current values for keys; expired keys are absent.
func (m *MemoryCounterStore) Get(ctx context.Context, keys []string) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	out := make(map[string]int64, len(keys))
	for _, key := range keys {
		if c, ok := m.counters[key]; ok && c.expiresAt.After(now) {
			out[key] = c.value
		}
	}
	return out, nil
}

// DeletePrefix removes every counter whose key starts with prefix.
func (m *MemoryCounterStore) DeletePrefix(ctx context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.counters {
		if strings.HasPrefix(key, prefix) {
			delete(m.counters, key)
		}
	}
	return nil
}

// Close is a no-op for MemoryCounterStore.
func (m *MemoryCounterStore) Close() error {
	return nil
}
