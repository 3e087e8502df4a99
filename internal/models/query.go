package models

// SearchQuery is a hybrid retrieval request.
type SearchQuery struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
	// Alpha blends the semantic and keyword channels:
	// score = alpha*semantic + (1-alpha)*keyword. Nil means use the configured default.
	Alpha         *float64 `json:"alpha,omitempty"`
	Jurisdiction  string   `json:"jurisdiction,omitempty"`
	Type          string   `json:"type,omitempty"`
	RerankEnabled bool     `json:"rerank_enabled,omitempty"`
}

// SearchResult is a single retrieval hit. Ephemeral, never persisted.
type SearchResult struct {
	Chunk         *TextChunk `json:"chunk"`
	Score         float64    `json:"score"`
	SemanticScore float64    `json:"semantic_score"`
	KeywordScore  float64    `json:"keyword_score"`
	RerankScore   *float64   `json:"rerank_score,omitempty"`
}

// SearchResponse wraps the ordered results of one query.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
	Query     string          `json:"query"`
	// KnowledgeGap is set when the index produced nothing for the query;
	// callers use it to register gaps for later curation.
	KnowledgeGap bool `json:"knowledge_gap,omitempty"`
}
