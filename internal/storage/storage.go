// Package storage defines the persistence interface for documents, chunks,
// and content hashes.
package storage

import (
	"context"

	"github.com/nzila/unionkb/internal/models"
)

// Storage defines document, chunk, and dedup-hash persistence operations.
type Storage interface {
	// Document operations
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)

	// Chunk operations
	GetChunk(ctx context.Context, id string) (*models.TextChunk, error)
	GetChunksByDocumentID(ctx context.Context, docID string) ([]*models.TextChunk, error)
	DeleteChunksByDocumentID(ctx context.Context, docID string) error
	BatchCreateChunks(ctx context.Context, chunks []*models.TextChunk) error

	// Dedup hashes
	HasContentHash(ctx context.Context, hash string) (bool, error)
	PutContentHash(ctx context.Context, hash, documentID string) error

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
