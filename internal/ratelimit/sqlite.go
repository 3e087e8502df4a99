package ratelimit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// sweepEvery bounds how often the opportunistic expired-row sweep runs,
// counted in IncrBy/IncrAll calls.
const sweepEvery = 256

// SQLiteCounterStore implements CounterStore on a shared SQLite database.
// Increments are single upsert statements, so atomicity comes from the
// database, not from caller-side read-modify-write. Expired rows are
// filtered on read and swept opportunistically on write.
type SQLiteCounterStore struct {
	db    *sql.DB
	calls atomic.Uint64
}

// NewSQLiteCounterStore opens or creates the counter database at dbPath.
func NewSQLiteCounterStore(dbPath string) (*SQLiteCounterStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create counter directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open counter database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	schema := `
	CREATE TABLE IF NOT EXISTS counters (
		key TEXT PRIMARY KEY,
		value INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_counters_expires_at ON counters(expires_at);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize counter schema: %w", err)
	}
	return &SQLiteCounterStore{db: db}, nil
}

// IncrBy atomically adds delta to key and refreshes its TTL, returning the
// new value. An expired row restarts from delta.
func (s *SQLiteCounterStore) IncrBy(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	now := time.Now().UnixNano()
	expiresAt := now + ttl.Nanoseconds()
	var value int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO counters (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			value = CASE WHEN counters.expires_at <= ? THEN excluded.value ELSE counters.value + excluded.value END,
			expires_at = excluded.expires_at
		 RETURNING value`,
		key, delta, expiresAt, now,
	).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("increment counter: %w", err)
	}
	s.maybeSweep(ctx, now)
	return value, nil
}

// IncrAll applies all increments in one transaction.
func (s *SQLiteCounterStore) IncrAll(ctx context.Context, incrs []Increment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin counter batch: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixNano()
	for _, incr := range incrs {
		expiresAt := now + incr.TTL.Nanoseconds()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO counters (key, value, expires_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET
				value = CASE WHEN counters.expires_at <= ? THEN excluded.value ELSE counters.value + excluded.value END,
				expires_at = excluded.expires_at`,
			incr.Key, incr.Delta, expiresAt, now,
		); err != nil {
			return fmt.Errorf("increment counter %s: %w", incr.Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit counter batch: %w", err)
	}
	s.maybeSweep(ctx, now)
	return nil
}

// Get returns current values for keys; expired keys are absent.
func (s *SQLiteCounterStore) Get(ctx context.Context, keys []string) (map[string]int64, error) {
	out := make(map[string]int64, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	now := time.Now().UnixNano()
	query := `SELECT key, value FROM counters WHERE expires_at > ? AND key IN (?` +
		strings.Repeat(",?", len(keys)-1) + `)`
	args := make([]any, 0, len(keys)+1)
	args = append(args, now)
	for _, key := range keys {
		args = append(args, key)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get counters: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			key   string
			value int64
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, rows.Err()
}

// DeletePrefix removes every counter whose key starts with prefix.
func (s *SQLiteCounterStore) DeletePrefix(ctx context.Context, prefix string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM counters WHERE key >= ? AND key < ?`,
		prefix, prefix+"\xff",
	)
	return err
}

// maybeSweep deletes expired rows every sweepEvery write calls. Best effort;
// reads already filter expired rows, so the sweep only reclaims space.
func (s *SQLiteCounterStore) maybeSweep(ctx context.Context, now int64) {
	if s.calls.Add(1)%sweepEvery != 0 {
		return
	}
	_, _ = s.db.ExecContext(ctx, `DELETE FROM counters WHERE expires_at <= ?`, now)
}

// Close closes the database connection.
func (s *SQLiteCounterStore) Close() error {
	return s.db.Close()
}
