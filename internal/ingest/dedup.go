package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/nzila/unionkb/pkg/utils"
)

// HashStore persists content hashes across process restarts. The sqlite
// storage layer implements it; a nil store means in-memory dedup only.
type HashStore interface {
	HasContentHash(ctx context.Context, hash string) (bool, error)
	PutContentHash(ctx context.Context, hash, documentID string) error
}

// Deduper tracks canonical content hashes. A hash maps to at most one
// canonical document; later ingests of equal content are flagged as
// duplicates, not rejected.
type Deduper struct {
	store HashStore
	mu    sync.Mutex
	seen  map[string]bool
}

// NewDeduper creates a deduper backed by an optional HashStore.
func NewDeduper(store HashStore) *Deduper {
	return &Deduper{
		store: store,
		seen:  make(map[string]bool),
	}
}

// ContentHash returns the SHA-256 hex digest of the canonicalized content
// (lowercased, whitespace collapsed).
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(utils.CanonicalizeContent(content)))
	return hex.EncodeToString(sum[:])
}

// CheckAndRecord reports whether hash was already seen, recording it if new.
// Store errors degrade to the in-memory cache rather than failing ingestion.
func (d *Deduper) CheckAndRecord(ctx context.Context, hash, documentID string) (bool, error) {
	d.mu.Lock()
	cached := d.seen[hash]
	d.seen[hash] = true
	d.mu.Unlock()
	if cached {
		return true, nil
	}
	if d.store == nil {
		return false, nil
	}
	exists, err := d.store.HasContentHash(ctx, hash)
	if err != nil {
		return false, err
	}
	if exists {
		return true, nil
	}
	return false, d.store.PutContentHash(ctx, hash, documentID)
}
