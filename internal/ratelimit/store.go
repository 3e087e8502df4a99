// Package ratelimit provides distributed, tenant-scoped rate limiting and
// cost metering backed by a shared counter store.
package ratelimit

import (
	"context"
	"time"
)

// Increment is one counter mutation in an atomic batch.
type Increment struct {
	Key   string
	Delta int64
	TTL   time.Duration
}

// CounterStore is the shared counter backend. All mutations are atomic on
// the store's side (single round trip, never read-modify-write from the
// caller); correctness across process instances relies entirely on that.
// Counters expire by TTL; a fetched counter that has expired reads as 0.
type CounterStore interface {
	// IncrBy atomically adds delta to key, refreshing its TTL, and returns
	// the new value.
	IncrBy(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
	// IncrAll applies all increments atomically (all-or-nothing).
	IncrAll(ctx context.Context, incrs []Increment) error
	// Get returns the current values for keys; missing or expired keys are
	// absent from the result.
	Get(ctx context.Context, keys []string) (map[string]int64, error)
	// DeletePrefix removes every counter whose key starts with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	Close() error
}
