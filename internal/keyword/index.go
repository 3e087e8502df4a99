// Package keyword provides keyword (BM25) indexing and search over chunks.
package keyword

import "context"

// KeywordIndex defines keyword search operations.
type KeywordIndex interface {
	Index(ctx context.Context, chunkID, content string) error
	Search(ctx context.Context, query string, limit int) ([]*KeywordResult, error)
	Delete(ctx context.Context, chunkID string) error
	Close() error
	// DocCount returns the total number of chunks in the index.
	DocCount() int
	// GetTermDocFrequency returns the number of chunks containing the term.
	GetTermDocFrequency(term string) int
	// GetCorpusStats returns total chunk count, average chunk length, and
	// document frequencies for the given terms.
	GetCorpusStats(terms []string) (totalDocs int, avgDocLen float64, docFreqs map[string]int)
}

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	ID    string
	Score float64
}
