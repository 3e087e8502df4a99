package search

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

type testCorpus struct {
	engine   *Engine
	store    storage.Storage
	embedder embedding.Embedder
	vecIdx   vector.VectorIndex
	kwIdx    keyword.KeywordIndex
}

func newTestCorpus(t *testing.T) *testCorpus {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "search.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	vecIdx, _ := vector.NewMemoryIndex(32)
	kwIdx := keyword.NewBM25Index()
	embedder := embedding.NewHashEmbedder(32, 100)
	cfg := &config.SearchConfig{
		DefaultTopK:    10,
		MaxTopK:        100,
		Alpha:          0.5,
		CandidateRatio: 2,
	}
	return &testCorpus{
		engine:   NewEngine(store, embedder, vecIdx, kwIdx, cfg),
		store:    store,
		embedder: embedder,
		vecIdx:   vecIdx,
		kwIdx:    kwIdx,
	}
}

func (tc *testCorpus) addChunk(t *testing.T, id, content, jurisdiction, typ string) {
	t.Helper()
	ctx := context.Background()
	chunk := &models.TextChunk{
		ID:           id,
		DocumentID:   "doc_" + id,
		Content:      content,
		EndIndex:     len(content),
		Jurisdiction: jurisdiction,
		Type:         typ,
	}
	if err := tc.store.BatchCreateChunks(ctx, []*models.TextChunk{chunk}); err != nil {
		t.Fatal(err)
	}
	emb, err := tc.embedder.Embed(ctx, content)
	if err != nil {
		t.Fatal(err)
	}
	if err := tc.vecIdx.Add(ctx, []string{id}, [][]float32{emb}); err != nil {
		t.Fatal(err)
	}
	if err := tc.kwIdx.Index(ctx, id, content); err != nil {
		t.Fatal(err)
	}
}

func TestEngine_EmptyIndex(t *testing.T) {
	tc := newTestCorpus(t)
	resp, err := tc.engine.Search(context.Background(), &models.SearchQuery{Query: "anything"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Results == nil || len(resp.Results) != 0 {
		t.Errorf("expected empty slice, got %v", resp.Results)
	}
	if !resp.KnowledgeGap {
		t.Error("empty index should set the knowledge-gap flag")
	}
}

func TestEngine_HybridSearch(t *testing.T) {
	tc := newTestCorpus(t)
	tc.addChunk(t, "c1", "The grievance procedure requires written notice within ten days.", "federal", "policy")
	tc.addChunk(t, "c2", "Vacation accrual increases after five years of service.", "federal", "policy")
	tc.addChunk(t, "c3", "Overtime grievance hearings are scheduled monthly.", "california", "contract")

	resp, err := tc.engine.Search(context.Background(), &models.SearchQuery{Query: "grievance procedure notice", TopK: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) == 0 {
		t.Fatal("no results")
	}
	if resp.Results[0].Chunk.ID != "c1" {
		t.Errorf("top result %s, want c1", resp.Results[0].Chunk.ID)
	}
	for i := 1; i < len(resp.Results); i++ {
		if resp.Results[i].Score > resp.Results[i-1].Score {
			t.Error("results not ordered best-first")
		}
	}
	if resp.KnowledgeGap {
		t.Error("knowledge gap set despite results")
	}
}

func TestEngine_MetadataPostFilter(t *testing.T) {
	tc := newTestCorpus(t)
	tc.addChunk(t, "c1", "Overtime rules for state employees under the agreement.", "california", "contract")
	tc.addChunk(t, "c2", "Overtime rules for federal workers under the statute.", "federal", "policy")

	resp, err := tc.engine.Search(context.Background(), &models.SearchQuery{
		Query:        "overtime rules",
		Jurisdiction: "california",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
	if resp.Results[0].Chunk.ID != "c1" {
		t.Errorf("got %s", resp.Results[0].Chunk.ID)
	}

	resp, err = tc.engine.Search(context.Background(), &models.SearchQuery{
		Query: "overtime rules",
		Type:  "policy",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Chunk.ID != "c2" {
		t.Errorf("type filter: got %v", resp.Results)
	}
}

func TestEngine_AlphaDegeneration(t *testing.T) {
	tc := newTestCorpus(t)
	tc.addChunk(t, "c1", "Dues checkoff authorization forms are kept by the treasurer.", "", "")
	tc.addChunk(t, "c2", "Strike fund eligibility begins after thirty days of membership.", "", "")
	tc.addChunk(t, "c3", "The local maintains a hardship committee for dues relief.", "", "")
	ctx := context.Background()

	one, zero := 1.0, 0.0
	vectorOnly, err := tc.engine.Search(ctx, &models.SearchQuery{Query: "dues relief", Alpha: &one})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range vectorOnly.Results {
		if r.KeywordScore != 0 {
			t.Errorf("alpha=1 should not consult the keyword channel, got %f", r.KeywordScore)
		}
	}

	keywordOnly, err := tc.engine.Search(ctx, &models.SearchQuery{Query: "dues relief", Alpha: &zero})
	if err != nil {
		t.Fatal(err)
	}
	if len(keywordOnly.Results) == 0 {
		t.Fatal("keyword-only search returned nothing")
	}
	for _, r := range keywordOnly.Results {
		if r.SemanticScore != 0 {
			t.Errorf("alpha=0 should not consult the vector channel, got %f", r.SemanticScore)
		}
	}
	if keywordOnly.Results[0].Chunk.ID != "c3" {
		t.Errorf("keyword top result %s, want c3", keywordOnly.Results[0].Chunk.ID)
	}
}

func TestEngine_Rerank(t *testing.T) {
	tc := newTestCorpus(t)
	tc.addChunk(t, "c1", "seniority seniority seniority", "", "")
	tc.addChunk(t, "c2", "seniority and many other unrelated provisions about parking", "", "")

	resp, err := tc.engine.Search(context.Background(), &models.SearchQuery{
		Query:         "seniority",
		RerankEnabled: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) < 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	if resp.Results[0].Chunk.ID != "c1" {
		t.Errorf("dense chunk should win under rerank, got %s", resp.Results[0].Chunk.ID)
	}
	if resp.Results[0].RerankScore == nil {
		t.Error("rerank score not recorded")
	}
}

func TestEngine_TopKBound(t *testing.T) {
	tc := newTestCorpus(t)
	for _, id := range []string{"c1", "c2", "c3", "c4"} {
		tc.addChunk(t, id, "meeting minutes for the bargaining committee session "+id, "", "")
	}
	resp, err := tc.engine.Search(context.Background(), &models.SearchQuery{Query: "bargaining committee", TopK: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) > 2 {
		t.Errorf("topK not honored: %d results", len(resp.Results))
	}
	if !strings.HasPrefix(resp.Results[0].Chunk.ID, "c") {
		t.Errorf("unexpected chunk id %s", resp.Results[0].Chunk.ID)
	}
}
