package embedding

import (
	"context"
	"math"
	"testing"
)

func TestHashEmbedder_Deterministic(t *testing.T) {
	e := NewHashEmbedder(64, 0)
	ctx := context.Background()

	a, err := e.Embed(ctx, "grievance filing deadline")
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Embed(ctx, "grievance filing deadline")
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 64 {
		t.Fatalf("got %d dimensions, want 64", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embeddings differ at %d: %f vs %f", i, a[i], b[i])
		}
	}
}

func TestHashEmbedder_UnitLength(t *testing.T) {
	e := NewHashEmbedder(128, 0)
	emb, err := e.Embed(context.Background(), "overtime must be approved in advance by a supervisor")
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, v := range emb {
		sum += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(sum)-1.0) > 1e-5 {
		t.Errorf("norm = %f, want 1.0", math.Sqrt(sum))
	}
}

func TestHashEmbedder_SharedTermsAreCloser(t *testing.T) {
	e := NewHashEmbedder(256, 0)
	ctx := context.Background()

	query, _ := e.Embed(ctx, "grievance deadline")
	related, _ := e.Embed(ctx, "the grievance deadline is thirty days")
	unrelated, _ := e.Embed(ctx, "parking permits renew annually")

	if cosine(query, related) <= cosine(query, unrelated) {
		t.Errorf("related text should score higher: related=%f unrelated=%f",
			cosine(query, related), cosine(query, unrelated))
	}
}

func TestHashEmbedder_EmptyText(t *testing.T) {
	e := NewHashEmbedder(32, 0)
	emb, err := e.Embed(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range emb {
		if v != 0 {
			t.Fatal("empty text should yield a zero vector")
		}
	}
}

func TestHashEmbedder_Batch(t *testing.T) {
	e := NewHashEmbedder(32, 0)
	embs, err := e.EmbedBatch(context.Background(), []string{"one", "two", "three"})
	if err != nil {
		t.Fatal(err)
	}
	if len(embs) != 3 {
		t.Fatalf("got %d embeddings, want 3", len(embs))
	}
	single, _ := e.Embed(context.Background(), "two")
	for i := range single {
		if embs[1][i] != single[i] {
			t.Fatal("batch embedding differs from single embedding")
		}
	}
}

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}
