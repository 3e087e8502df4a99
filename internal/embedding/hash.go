package embedding

import (
	"context"
	"hash/fnv"

	"github.com/nzila/unionkb/pkg/utils"
)

// HashEmbedder is the default embedding provider: a deterministic, fixed-dimension
// stand-in for a semantic model. Identical text always yields an identical
// normalized vector. The hash scheme carries no semantic meaning; swap in the
// ONNX provider (or any other Embedder) when real similarity is needed.
type HashEmbedder struct {
	dimensions int
	cache      *EmbeddingCache
}

// NewHashEmbedder returns a deterministic embedder of the given dimensions.
// cacheSize <= 0 disables caching.
func NewHashEmbedder(dimensions, cacheSize int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	e := &HashEmbedder{dimensions: dimensions}
	if cacheSize > 0 {
		e.cache = NewEmbeddingCache(cacheSize)
	}
	return e
}

// Embed returns a unit-length vector derived from per-token FNV hashes.
// Tokens are accumulated into hash-selected buckets so that texts sharing
// terms land near each other, which keeps ranking tests meaningful.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.cache != nil {
		if emb, ok := e.cache.Get(text); ok {
			return emb, nil
		}
	}
	emb := make([]float32, e.dimensions)
	for _, tok := range utils.Tokenize(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		bucket := int(sum % uint64(e.dimensions))
		// Sign bit from the hash spreads tokens across both directions.
		if sum&(1<<63) != 0 {
			emb[bucket] -= 1
		} else {
			emb[bucket] += 1
		}
		// A second, shifted bucket reduces collisions on short texts.
		bucket2 := int((sum >> 17) % uint64(e.dimensions))
		emb[bucket2] += 0.5
	}
	utils.NormalizeL2(emb)
	if e.cache != nil {
		e.cache.Set(text, emb)
	}
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *HashEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for HashEmbedder.
func (e *HashEmbedder) Close() error {
	return nil
}
