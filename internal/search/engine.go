package search

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nzila/unionkb/internal/config"
	"github.com/nzila/unionkb/internal/embedding"
	"github.com/nzila/unionkb/internal/keyword"
	"github.com/nzila/unionkb/internal/models"
	"github.com/nzila/unionkb/internal/storage"
	"github.com/nzila/unionkb/internal/vector"
)

// Engine runs hybrid (keyword + semantic) retrieval over chunks.
type Engine struct {
	storage      storage.Storage
	embedder     embedding.Embedder
	vectorIndex  vector.VectorIndex
	keywordIndex keyword.KeywordIndex
	config       *config.SearchConfig
	logger       *zap.Logger // optional
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(
	store storage.Storage,
	embedder embedding.Embedder,
	vectorIndex vector.VectorIndex,
	keywordIndex keyword.KeywordIndex,
	cfg *config.SearchConfig,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		storage:      store,
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		config:       cfg,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search runs both channels at a candidate multiple of topK, blends the
// normalized scores, applies metadata post-filters, and optionally re-ranks
// by term density. An empty index yields an empty result with the
// knowledge-gap flag set, never an error.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	topK := query.TopK
	if topK <= 0 {
		topK = e.config.DefaultTopK
	}
	if e.config.MaxTopK > 0 && topK > e.config.MaxTopK {
		topK = e.config.MaxTopK
	}
	alpha := e.config.Alpha
	if query.Alpha != nil {
		alpha = *query.Alpha
	}
	candidates := topK * e.config.CandidateRatio
	if candidates < topK {
		candidates = topK
	}

	var (
		keywordResults  []*keyword.KeywordResult
		semanticResults []*vector.VectorResult
		errChan         = make(chan error, 2)
		wg              sync.WaitGroup
	)

	if alpha < 1 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := e.keywordIndex.Search(ctx, query.Query, candidates)
			if err != nil {
				errChan <- fmt.Errorf("keyword search failed: %w", err)
				return
			}
			keywordResults = results
		}()
	}

	if alpha > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			queryEmbedding, err := e.embedder.Embed(ctx, query.Query)
			if err != nil {
				errChan <- fmt.Errorf("embedding failed: %w", err)
				return
			}
			results, err := e.vectorIndex.Search(ctx, queryEmbedding, candidates)
			if err != nil {
				errChan <- fmt.Errorf("vector search failed: %w", err)
				return
			}
			semanticResults = results
		}()
	}

	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	fused := Fuse(NormalizeSemanticScores(semanticResults), NormalizeKeywordScores(keywordResults), alpha)

	response := &models.SearchResponse{
		Results:   make([]*models.SearchResult, 0, topK),
		Query:     query.Query,
		QueryTime: time.Since(startTime).Milliseconds(),
	}

	for _, fr := range fused {
		chunk, err := e.storage.GetChunk(ctx, fr.ChunkID)
		if err != nil {
			// Index can briefly lead storage during concurrent deletes.
			continue
		}
		if !matchesFilters(chunk, query) {
			continue
		}
		result := &models.SearchResult{
			Chunk:         chunk,
			Score:         fr.Score,
			SemanticScore: fr.SemanticScore,
			KeywordScore:  fr.KeywordScore,
		}
		if query.RerankEnabled {
			boosted := fr.Score * RerankBoost(query.Query, chunk.Content)
			result.RerankScore = &boosted
			result.Score = boosted
		}
		response.Results = append(response.Results, result)
	}
	if query.RerankEnabled {
		sort.SliceStable(response.Results, func(i, j int) bool {
			return response.Results[i].Score > response.Results[j].Score
		})
	}
	if len(response.Results) > topK {
		response.Results = response.Results[:topK]
	}
	response.Total = len(response.Results)
	response.KnowledgeGap = len(response.Results) == 0
	response.QueryTime = time.Since(startTime).Milliseconds()

	if e.logger != nil {
		e.logger.Debug("search complete",
			zap.String("query", query.Query),
			zap.Int("results", response.Total),
			zap.Float64("alpha", alpha),
			zap.Bool("knowledge_gap", response.KnowledgeGap))
	}
	return response, nil
}

// VectorIndexSize returns the number of vectors currently indexed.
func (e *Engine) VectorIndexSize() int {
	return e.vectorIndex.Size()
}

// KeywordDocCount returns the number of chunks in the keyword index.
func (e *Engine) KeywordDocCount() int {
	return e.keywordIndex.DocCount()
}

// matchesFilters applies the jurisdiction/type post-filter. Filtering never
// changes relative ranking among passing results.
func matchesFilters(chunk *models.TextChunk, query *models.SearchQuery) bool {
	if query.Jurisdiction != "" && chunk.Jurisdiction != query.Jurisdiction {
		return false
	}
	if query.Type != "" && chunk.Type != query.Type {
		return false
	}
	return true
}
