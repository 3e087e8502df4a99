package index

import (
	"strings"
	"testing"

	"github.com/nzila/unionkb/internal/models"
)

func TestChunker_Boundaries(t *testing.T) {
	c := NewChunker(500, 50, 50)
	content := strings.Repeat("The grievance committee meets on the first Tuesday of every month. ", 40)
	doc := &models.Document{ID: "d1", Content: content}

	chunks := c.Chunk(doc)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	prevStart := -1
	for i, ch := range chunks {
		if ch.EndIndex < ch.StartIndex {
			t.Errorf("chunk %d: end %d before start %d", i, ch.EndIndex, ch.StartIndex)
		}
		if ch.StartIndex <= prevStart {
			t.Errorf("chunk %d: start %d does not advance past %d", i, ch.StartIndex, prevStart)
		}
		prevStart = ch.StartIndex
		if ch.DocumentID != "d1" {
			t.Errorf("chunk %d: document id %q", i, ch.DocumentID)
		}
	}
}

func TestChunker_SentenceBreak(t *testing.T) {
	c := NewChunker(100, 10, 20)
	// A period lands past the window midpoint, so the chunk should break
	// there instead of mid-sentence at the hard boundary.
	content := strings.Repeat("a", 70) + ". " + strings.Repeat("b", 200)
	doc := &models.Document{ID: "d1", Content: content}

	chunks := c.Chunk(doc)
	if len(chunks) == 0 {
		t.Fatal("no chunks")
	}
	if chunks[0].EndIndex != 71 {
		t.Errorf("first chunk end=%d, want 71 (after the period)", chunks[0].EndIndex)
	}
	if strings.Contains(chunks[0].Content, "b") {
		t.Error("first chunk crossed the sentence boundary")
	}
}

func TestChunker_MinLength(t *testing.T) {
	c := NewChunker(500, 50, 50)
	doc := &models.Document{ID: "d1", Content: "too short to keep"}
	if chunks := c.Chunk(doc); len(chunks) != 0 {
		t.Errorf("expected sub-minimum content to be dropped, got %d chunks", len(chunks))
	}
}

func TestChunker_DegenerateInput(t *testing.T) {
	// No sentence boundaries at all; the window must still advance.
	c := NewChunker(100, 90, 10)
	doc := &models.Document{ID: "d1", Content: strings.Repeat("x", 1000)}
	chunks := c.Chunk(doc)
	if len(chunks) == 0 {
		t.Fatal("no chunks")
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].StartIndex-chunks[i-1].StartIndex < 10 {
			t.Fatalf("window advanced by %d, want >= size-overlap", chunks[i].StartIndex-chunks[i-1].StartIndex)
		}
	}
}

func TestChunker_Empty(t *testing.T) {
	c := NewChunker(500, 50, 50)
	if chunks := c.Chunk(&models.Document{ID: "d1"}); chunks != nil {
		t.Errorf("expected nil for empty content, got %v", chunks)
	}
}

func TestChunker_InheritsMetadata(t *testing.T) {
	c := NewChunker(500, 50, 50)
	doc := &models.Document{
		ID:      "d1",
		Content: strings.Repeat("Wages are reviewed annually per article nine. ", 20),
		Metadata: models.DocumentMetadata{
			Jurisdiction: "new-york",
			Type:         "contract",
		},
	}
	chunks := c.Chunk(doc)
	if len(chunks) == 0 {
		t.Fatal("no chunks")
	}
	for _, ch := range chunks {
		if ch.Jurisdiction != "new-york" || ch.Type != "contract" {
			t.Errorf("metadata not inherited: %+v", ch)
		}
	}
}
