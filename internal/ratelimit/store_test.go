package ratelimit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCounterStore_IncrAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCounterStore()

	v, err := store.IncrBy(ctx, "rl:t1:rpm:100", 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = store.IncrBy(ctx, "rl:t1:rpm:100", 3, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)

	got, err := store.Get(ctx, []string{"rl:t1:rpm:100", "rl:t1:missing"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), got["rl:t1:rpm:100"])
	_, ok := got["rl:t1:missing"]
	assert.False(t, ok)
}

func TestMemoryCounterStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCounterStore()
	current := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	_, err := store.IncrBy(ctx, "k", 5, 30*time.Second)
	require.NoError(t, err)

	current = current.Add(31 * time.Second)
	got, err := store.Get(ctx, []string{"k"})
	require.NoError(t, err)
	assert.Empty(t, got)

	// An increment after expiry restarts the counter.
	v, err := store.IncrBy(ctx, "k", 2, 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestMemoryCounterStore_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCounterStore()

	_, err := store.IncrBy(ctx, "rl:t1:rpm:1", 1, time.Minute)
	require.NoError(t, err)
	_, err = store.IncrBy(ctx, "rl:t1:tph:1", 1, time.Minute)
	require.NoError(t, err)
	_, err = store.IncrBy(ctx, "rl:t2:rpm:1", 1, time.Minute)
	require.NoError(t, err)

	require.NoError(t, store.DeletePrefix(ctx, "rl:t1:"))

	got, err := store.Get(ctx, []string{"rl:t1:rpm:1", "rl:t1:tph:1", "rl:t2:rpm:1"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, int64(1), got["rl:t2:rpm:1"])
}

func newTestSQLiteCounterStore(t *testing.T) *SQLiteCounterStore {
	t.Helper()
	store, err := NewSQLiteCounterStore(filepath.Join(t.TempDir(), "counters.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteCounterStore_IncrAndGet(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteCounterStore(t)

	v, err := store.IncrBy(ctx, "rl:t1:rpm:100", 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = store.IncrBy(ctx, "rl:t1:rpm:100", 3, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)

	got, err := store.Get(ctx, []string{"rl:t1:rpm:100"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), got["rl:t1:rpm:100"])
}

func TestSQLiteCounterStore_IncrAllAtomic(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteCounterStore(t)

	err := store.IncrAll(ctx, []Increment{
		{Key: "rl:t1:rpm:1", Delta: 1, TTL: time.Minute},
		{Key: "rl:t1:tph:1", Delta: 450, TTL: time.Hour},
		{Key: "rl:t1:cost:2026-03-10", Delta: 12, TTL: 25 * time.Hour},
	})
	require.NoError(t, err)

	got, err := store.Get(ctx, []string{"rl:t1:rpm:1", "rl:t1:tph:1", "rl:t1:cost:2026-03-10"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), got["rl:t1:rpm:1"])
	assert.Equal(t, int64(450), got["rl:t1:tph:1"])
	assert.Equal(t, int64(12), got["rl:t1:cost:2026-03-10"])
}

func TestSQLiteCounterStore_ExpiredRowRestarts(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteCounterStore(t)

	_, err := store.IncrBy(ctx, "k", 5, -time.Second) // already expired
	require.NoError(t, err)

	got, err := store.Get(ctx, []string{"k"})
	require.NoError(t, err)
	assert.Empty(t, got, "expired counters are invisible to reads")

	v, err := store.IncrBy(ctx, "k", 2, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v, "increment on an expired row restarts from delta")
}

func TestSQLiteCounterStore_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteCounterStore(t)

	_, err := store.IncrBy(ctx, "rl:t1:rpm:1", 1, time.Minute)
	require.NoError(t, err)
	_, err = store.IncrBy(ctx, "rl:t2:rpm:1", 1, time.Minute)
	require.NoError(t, err)

	require.NoError(t, store.DeletePrefix(ctx, "rl:t1:"))

	got, err := store.Get(ctx, []string{"rl:t1:rpm:1", "rl:t2:rpm:1"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestMemoryBudgetStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryBudgetStore()

	b, err := store.Get(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, b, "unconfigured tenant has no budget")
}
