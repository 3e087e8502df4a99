// Package search provides hybrid retrieval: keyword + semantic channels,
// score fusion, metadata filtering, and optional term-density re-ranking.
package search

import (
	"sort"

	"github.com/nzila/unionkb/internal/keyword"
	"github.com/nzila/unionkb/internal/vector"
)

// normFloor guards the per-channel max normalization against divide-by-zero.
const normFloor = 1e-9

// FusedResult holds a chunk ID and its blended channel scores.
type FusedResult struct {
	ChunkID       string
	Score         float64
	SemanticScore float64
	KeywordScore  float64
}

// NormalizeKeywordScores normalizes keyword scores to [0,1] by the channel's
// own max score.
func NormalizeKeywordScores(results []*keyword.KeywordResult) map[string]float64 {
	normalized := make(map[string]float64, len(results))
	if len(results) == 0 {
		return normalized
	}
	maxScore := results[0].Score
	for _, r := range results {
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	if maxScore < normFloor {
		maxScore = normFloor
	}
	for _, r := range results {
		normalized[r.ID] = r.Score / maxScore
	}
	return normalized
}

// NormalizeSemanticScores normalizes vector scores to [0,1] by the channel's
// own max score.
func NormalizeSemanticScores(results []*vector.VectorResult) map[string]float64 {
	normalized := make(map[string]float64, len(results))
	if len(results) == 0 {
		return normalized
	}
	maxScore := results[0].Score
	for _, r := range results {
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	if maxScore < normFloor {
		maxScore = normFloor
	}
	for _, r := range results {
		normalized[r.ID] = r.Score / maxScore
	}
	return normalized
}

// Fuse blends the two channels as alpha*semantic + (1-alpha)*keyword and
// returns results sorted best-first. A chunk missing from one channel
// contributes 0 for that channel rather than being excluded.
func Fuse(semanticScores, keywordScores map[string]float64, alpha float64) []*FusedResult {
	scoreMap := make(map[string]*FusedResult, len(semanticScores)+len(keywordScores))
	for id, score := range semanticScores {
		scoreMap[id] = &FusedResult{ChunkID: id, SemanticScore: score}
	}
	for id, score := range keywordScores {
		if result, exists := scoreMap[id]; exists {
			result.KeywordScore = score
		} else {
			scoreMap[id] = &FusedResult{ChunkID: id, KeywordScore: score}
		}
	}
	results := make([]*FusedResult, 0, len(scoreMap))
	for _, result := range scoreMap {
		result.Score = alpha*result.SemanticScore + (1-alpha)*result.KeywordScore
		results = append(results, result)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})
	return results
}
