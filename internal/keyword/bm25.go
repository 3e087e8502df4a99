package keyword

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/nzila/unionkb/pkg/utils"
)

// BM25 parameters, standard values.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// BM25Index is an in-memory inverted index scoring with BM25. Corpus
// statistics (document frequencies, average chunk length) are maintained
// incrementally as chunks are indexed and deleted; there is no rebuild.
// Updates are atomic per chunk so concurrent writers never corrupt the
// running averages.
type BM25Index struct {
	mu        sync.RWMutex
	termFreqs map[string]map[string]int // chunkID -> term -> count
	docLens   map[string]int            // chunkID -> token count
	docFreqs  map[string]int            // term -> number of chunks containing it
	totalLen  int                       // sum of all chunk lengths
}

// NewBM25Index creates an empty BM25 index.
func NewBM25Index() *BM25Index {
	return &BM25Index{
		termFreqs: make(map[string]map[string]int),
		docLens:   make(map[string]int),
		docFreqs:  make(map[string]int),
	}
}

// Index adds or replaces a chunk's content in the index.
func (b *BM25Index) Index(ctx context.Context, chunkID, content string) error {
	tokens := utils.Tokenize(content)
	freqs := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		freqs[tok]++
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(chunkID)
	b.termFreqs[chunkID] = freqs
	b.docLens[chunkID] = len(tokens)
	b.totalLen += len(tokens)
	for term := range freqs {
		b.docFreqs[term]++
	}
	return nil
}

// Search scores every chunk containing at least one query term and returns
// the top results by BM25 score.
func (b *BM25Index) Search(ctx context.Context, query string, limit int) ([]*KeywordResult, error) {
	terms := utils.Tokenize(query)
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := len(b.docLens)
	if n == 0 || len(terms) == 0 || limit <= 0 {
		return []*KeywordResult{}, nil
	}
	avgLen := float64(b.totalLen) / float64(n)
	if avgLen == 0 {
		avgLen = 1
	}
	scores := make(map[string]float64)
	for _, term := range terms {
		df := b.docFreqs[term]
		if df == 0 {
			continue
		}
		idf := math.Log(1 + (float64(n)-float64(df)+0.5)/(float64(df)+0.5))
		for chunkID, freqs := range b.termFreqs {
			tf := freqs[term]
			if tf == 0 {
				continue
			}
			docLen := float64(b.docLens[chunkID])
			num := float64(tf) * (bm25K1 + 1)
			den := float64(tf) + bm25K1*(1-bm25B+bm25B*docLen/avgLen)
			scores[chunkID] += idf * num / den
		}
	}
	results := make([]*KeywordResult, 0, len(scores))
	for id, score := range scores {
		results = append(results, &KeywordResult{ID: id, Score: score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

// Delete removes a chunk and its contribution to the corpus statistics.
// Unknown IDs are ignored.
func (b *BM25Index) Delete(ctx context.Context, chunkID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(chunkID)
	return nil
}

func (b *BM25Index) removeLocked(chunkID string) {
	freqs, ok := b.termFreqs[chunkID]
	if !ok {
		return
	}
	for term := range freqs {
		b.docFreqs[term]--
		if b.docFreqs[term] <= 0 {
			delete(b.docFreqs, term)
		}
	}
	b.totalLen -= b.docLens[chunkID]
	delete(b.termFreqs, chunkID)
	delete(b.docLens, chunkID)
}

// DocCount returns the total number of chunks in the index.
func (b *BM25Index) DocCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.docLens)
}

// GetTermDocFrequency returns the number of chunks containing the term.
func (b *BM25Index) GetTermDocFrequency(term string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.docFreqs[term]
}

// GetCorpusStats returns total chunk count, average chunk length, and
// document frequencies for the given terms.
func (b *BM25Index) GetCorpusStats(terms []string) (int, float64, map[string]int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := len(b.docLens)
	var avgLen float64
	if n > 0 {
		avgLen = float64(b.totalLen) / float64(n)
	}
	docFreqs := make(map[string]int, len(terms))
	for _, term := range terms {
		docFreqs[term] = b.docFreqs[term]
	}
	return n, avgLen, docFreqs
}

// Close is a no-op for BM25Index.
func (b *BM25Index) Close() error {
	return nil
}
