// Package index provides document chunking and indexing into storage,
// keyword, and vector indices.
package index

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nzila/unionkb/internal/models"
)

// Chunker splits text into overlapping character windows broken at sentence
// boundaries where possible.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	minChunkSize int
}

// NewChunker creates a chunker with the given window size, overlap, and
// minimum chunk length (all in characters).
func NewChunker(chunkSize, chunkOverlap, minChunkSize int) *Chunker {
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		minChunkSize: minChunkSize,
	}
}

// Chunk splits doc.Content into TextChunks. Each window ends at the nearest
// sentence-ending period or newline found past the window midpoint, so
// sentences are not cut when a boundary is close. Chunks shorter than the
// minimum length are dropped as noise. The window start always advances by
// at least size-overlap, so degenerate input cannot loop.
func (c *Chunker) Chunk(doc *models.Document) []*models.TextChunk {
	runes := []rune(doc.Content)
	if len(runes) == 0 {
		return nil
	}
	minAdvance := c.chunkSize - c.chunkOverlap
	if minAdvance <= 0 {
		minAdvance = 1
	}

	var chunks []*models.TextChunk
	start := 0
	for start < len(runes) {
		end := start + c.chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = c.sentenceBreak(runes, start, end)
		}

		content := strings.TrimSpace(string(runes[start:end]))
		if len(content) >= c.minChunkSize {
			chunks = append(chunks, &models.TextChunk{
				ID:           fmt.Sprintf("%s_%s", doc.ID, uuid.New().String()[:8]),
				DocumentID:   doc.ID,
				Content:      content,
				StartIndex:   start,
				EndIndex:     end,
				Jurisdiction: doc.Metadata.Jurisdiction,
				Type:         doc.Metadata.Type,
			})
		}
		if end >= len(runes) {
			break
		}
		next := end - c.chunkOverlap
		if next < start+minAdvance {
			next = start + minAdvance
		}
		start = next
	}
	return chunks
}

// sentenceBreak searches backward from end for a sentence-ending period or
// newline. A boundary is used only when it falls past the window midpoint;
// otherwise the hard boundary stands, bounding worst-case chunk size.
func (c *Chunker) sentenceBreak(runes []rune, start, end int) int {
	mid := start + c.chunkSize/2
	for i := end - 1; i > mid; i-- {
		if runes[i] == '\n' || runes[i] == '.' {
			return i + 1
		}
	}
	return end
}
