package index

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nzila/unionkb/internal/config"
	"github.com/nzila/unionkb/internal/embedding"
	"github.com/nzila/unionkb/internal/keyword"
	"github.com/nzila/unionkb/internal/models"
	"github.com/nzila/unionkb/internal/storage"
	"github.com/nzila/unionkb/internal/vector"
)

// Indexer chunks documents and indexes them into storage, the vector index,
// and the keyword index.
type Indexer struct {
	storage      storage.Storage
	embedder     embedding.Embedder
	vectorIndex  vector.VectorIndex
	keywordIndex keyword.KeywordIndex
	chunker      *Chunker
	logger       *zap.Logger // optional; when set, logs debug events
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output (document indexed, chunks deleted, etc.).
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer with the given dependencies.
func NewIndexer(
	store storage.Storage,
	embedder embedding.Embedder,
	vectorIndex vector.VectorIndex,
	keywordIndex keyword.KeywordIndex,
	cfg *config.SearchConfig,
	opts ...IndexerOption,
) *Indexer {
	idx := &Indexer{
		storage:      store,
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		chunker:      NewChunker(cfg.ChunkSize, cfg.ChunkOverlap, cfg.MinChunkSize),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// AddDocuments stores and indexes the given documents, returning the number
// of chunks added. Documents flagged as duplicates are skipped: their
// content hash already resolves to a canonical document in the index.
func (idx *Indexer) AddDocuments(ctx context.Context, docs []*models.Document) (int, error) {
	added := 0
	for _, doc := range docs {
		if doc.IsDuplicate {
			if idx.logger != nil {
				idx.logger.Debug("indexer skipping duplicate document",
					zap.String("id", doc.ID),
					zap.String("content_hash", doc.ContentHash))
			}
			continue
		}
		n, err := idx.addDocument(ctx, doc)
		if err != nil {
			return added, err
		}
		added += n
	}
	return added, nil
}

func (idx *Indexer) addDocument(ctx context.Context, doc *models.Document) (int, error) {
	if err := idx.storage.CreateDocument(ctx, doc); err != nil {
		return 0, fmt.Errorf("failed to store document: %w", err)
	}
	chunks := idx.chunker.Chunk(doc)
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}
	embeddings, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}
	if err := idx.storage.BatchCreateChunks(ctx, chunks); err != nil {
		return 0, fmt.Errorf("failed to store chunks: %w", err)
	}

	chunkIDs := make([]string, len(chunks))
	for i, ch := range chunks {
		chunkIDs[i] = ch.ID
	}
	if err := idx.vectorIndex.Add(ctx, chunkIDs, embeddings); err != nil {
		return 0, fmt.Errorf("failed to index vectors: %w", err)
	}
	for _, ch := range chunks {
		if err := idx.keywordIndex.Index(ctx, ch.ID, ch.Content); err != nil {
			return 0, fmt.Errorf("failed to index keywords: %w", err)
		}
	}
	if idx.logger != nil {
		idx.logger.Debug("indexer document indexed",
			zap.String("id", doc.ID),
			zap.Int("chunks", len(chunks)))
	}
	return len(chunks), nil
}

// DeleteDocuments removes the given documents and all of their chunks from
// storage and both indices, returning the number of chunks deleted.
func (idx *Indexer) DeleteDocuments(ctx context.Context, ids []string) (int, error) {
	deleted := 0
	for _, id := range ids {
		chunks, err := idx.storage.GetChunksByDocumentID(ctx, id)
		if err != nil {
			return deleted, fmt.Errorf("failed to get chunks: %w", err)
		}
		chunkIDs := make([]string, len(chunks))
		for i, ch := range chunks {
			chunkIDs[i] = ch.ID
		}
		if err := idx.vectorIndex.Remove(ctx, chunkIDs); err != nil {
			return deleted, fmt.Errorf("failed to delete from vector index: %w", err)
		}
		for _, chunkID := range chunkIDs {
			if err := idx.keywordIndex.Delete(ctx, chunkID); err != nil {
				return deleted, fmt.Errorf("failed to delete from keyword index: %w", err)
			}
		}
		if err := idx.storage.DeleteChunksByDocumentID(ctx, id); err != nil {
			return deleted, fmt.Errorf("failed to delete chunks: %w", err)
		}
		if err := idx.storage.DeleteDocument(ctx, id); err != nil {
			return deleted, fmt.Errorf("failed to delete document: %w", err)
		}
		deleted += len(chunks)
		if idx.logger != nil {
			idx.logger.Debug("indexer document deleted",
				zap.String("id", id),
				zap.Int("chunks", len(chunks)))
		}
	}
	return deleted, nil
}
