// Package vector provides vector storage and similarity search over chunk embeddings.
package vector

import "context"

// VectorIndex defines vector storage and similarity search.
// Implementations must be safe for concurrent use; readers may observe an
// index mid-mutation (eventual consistency is acceptable for retrieval).
type VectorIndex interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Remove(ctx context.Context, ids []string) error
	Save(path string) error
	Load(path string) error
	Size() int
	Close() error
}

// VectorResult is a single vector search hit (ID is the chunk ID).
type VectorResult struct {
	ID    string
	Score float64 // Cosine similarity for normalized vectors (0-1)
}
