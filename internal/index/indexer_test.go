package index

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nzila/unionkb/internal/config"
	"github.com/nzila/unionkb/internal/embedding"
	"github.com/nzila/unionkb/internal/keyword"
	"github.com/nzila/unionkb/internal/models"
	"github.com/nzila/unionkb/internal/storage"
	"github.com/nzila/unionkb/internal/vector"
)

func newTestIndexer(t *testing.T) (*Indexer, storage.Storage, vector.VectorIndex, keyword.KeywordIndex) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	vecIdx, err := vector.NewMemoryIndex(32)
	if err != nil {
		t.Fatal(err)
	}
	kwIdx := keyword.NewBM25Index()
	embedder := embedding.NewHashEmbedder(32, 100)
	cfg := &config.SearchConfig{ChunkSize: 200, ChunkOverlap: 20, MinChunkSize: 30}
	return NewIndexer(store, embedder, vecIdx, kwIdx, cfg), store, vecIdx, kwIdx
}

func TestIndexer_AddDocuments(t *testing.T) {
	idx, store, vecIdx, kwIdx := newTestIndexer(t)
	ctx := context.Background()

	doc := &models.Document{
		ID:          "d1",
		Content:     strings.Repeat("Overtime must be approved by the shop steward in advance. ", 20),
		ContentHash: "h1",
		Metadata:    models.DocumentMetadata{Jurisdiction: "federal", Type: "policy"},
	}
	added, err := idx.AddDocuments(ctx, []*models.Document{doc})
	if err != nil {
		t.Fatal(err)
	}
	if added == 0 {
		t.Fatal("no chunks added")
	}
	if vecIdx.Size() != added {
		t.Errorf("vector index has %d entries, want %d", vecIdx.Size(), added)
	}
	if kwIdx.DocCount() != added {
		t.Errorf("keyword index has %d entries, want %d", kwIdx.DocCount(), added)
	}
	chunks, err := store.GetChunksByDocumentID(ctx, "d1")
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != added {
		t.Errorf("storage has %d chunks, want %d", len(chunks), added)
	}
}

func TestIndexer_SkipsDuplicates(t *testing.T) {
	idx, _, vecIdx, _ := newTestIndexer(t)
	ctx := context.Background()

	dup := &models.Document{
		ID:          "d2",
		Content:     strings.Repeat("Duplicate content is not re-indexed. ", 20),
		ContentHash: "h2",
		IsDuplicate: true,
	}
	added, err := idx.AddDocuments(ctx, []*models.Document{dup})
	if err != nil {
		t.Fatal(err)
	}
	if added != 0 {
		t.Errorf("duplicate added %d chunks", added)
	}
	if vecIdx.Size() != 0 {
		t.Errorf("vector index not empty: %d", vecIdx.Size())
	}
}

func TestIndexer_DeleteDocuments(t *testing.T) {
	idx, store, vecIdx, kwIdx := newTestIndexer(t)
	ctx := context.Background()

	doc := &models.Document{
		ID:          "d3",
		Content:     strings.Repeat("The pension fund statement is issued quarterly to members. ", 20),
		ContentHash: "h3",
	}
	added, err := idx.AddDocuments(ctx, []*models.Document{doc})
	if err != nil {
		t.Fatal(err)
	}

	deleted, err := idx.DeleteDocuments(ctx, []string{"d3"})
	if err != nil {
		t.Fatal(err)
	}
	if deleted != added {
		t.Errorf("deleted %d chunks, want %d", deleted, added)
	}
	if vecIdx.Size() != 0 {
		t.Errorf("vector index still has %d entries", vecIdx.Size())
	}
	if kwIdx.DocCount() != 0 {
		t.Errorf("keyword index still has %d entries", kwIdx.DocCount())
	}
	if _, err := store.GetDocument(ctx, "d3"); err == nil {
		t.Error("document still in storage after delete")
	}
	results, _ := kwIdx.Search(ctx, "pension", 10)
	if len(results) != 0 {
		t.Errorf("deleted content still searchable: %v", results)
	}
}
