package search

import "github.com/nzila/unionkb/pkg/utils"

// TermDensity returns the fraction of the chunk's tokens that also appear in
// the query, a cheap lexical-overlap signal layered on top of the blend.
func TermDensity(query, content string) float64 {
	queryTokens := utils.Tokenize(query)
	if len(queryTokens) == 0 {
		return 0
	}
	querySet := make(map[string]struct{}, len(queryTokens))
	for _, tok := range queryTokens {
		querySet[tok] = struct{}{}
	}
	contentTokens := utils.Tokenize(content)
	if len(contentTokens) == 0 {
		return 0
	}
	matched := 0
	for _, tok := range contentTokens {
		if _, ok := querySet[tok]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(contentTokens))
}

// RerankBoost returns the multiplicative boost (1 + term_density) applied to
// a blended score when re-ranking is enabled.
func RerankBoost(query, content string) float64 {
	return 1 + TermDensity(query, content)
}
