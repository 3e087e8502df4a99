package models

// Context source names used by attention weighting and prompt assembly.
const (
	SourceRAG          = "rag"
	SourceSession      = "session"
	SourceDomainClause = "domain-clause"
	SourceJurisdiction = "jurisdiction"
	SourceTimeline     = "timeline"
	SourceQuery        = "query"
)

// AttentionWeights holds the six named weights of a template. They must sum to
// 1.0 within tolerance at registration and after any reweighting.
type AttentionWeights struct {
	Query        float64 `json:"query" yaml:"query"`
	RAG          float64 `json:"rag" yaml:"rag"`
	Session      float64 `json:"session" yaml:"session"`
	DomainClause float64 `json:"domain_clause" yaml:"domain_clause"`
	Jurisdiction float64 `json:"jurisdiction" yaml:"jurisdiction"`
	Timeline     float64 `json:"timeline" yaml:"timeline"`
}

// Sum returns the total of all six weights.
func (w AttentionWeights) Sum() float64 {
	return w.Query + w.RAG + w.Session + w.DomainClause + w.Jurisdiction + w.Timeline
}

// PromptTemplate is a registered prompt configuration. Templates form a
// hierarchy by composition: a base template plus named overrides merged by
// prompt.Compose, not by structural inheritance.
type PromptTemplate struct {
	ID                     string           `json:"id" yaml:"id"`
	Version                int              `json:"version" yaml:"version"`
	SystemPrompt           string           `json:"system_prompt" yaml:"system_prompt"`
	Weights                AttentionWeights `json:"attention_weights" yaml:"attention_weights"`
	SupportedJurisdictions []string         `json:"supported_jurisdictions" yaml:"supported_jurisdictions"`
	RequiredVariables      []string         `json:"required_variables" yaml:"required_variables"`
	ComplianceTags         []string         `json:"compliance_tags" yaml:"compliance_tags"`
}

// ResolvedTemplate is the outcome of resolving a template against a request.
type ResolvedTemplate struct {
	Template     *PromptTemplate  `json:"template"`
	Jurisdiction string           `json:"jurisdiction"`
	Weights      AttentionWeights `json:"weights"`
	SystemPrompt string           `json:"system_prompt"`
	// ComplianceIssues collects non-fatal resolution problems (missing
	// variables, unsupported jurisdiction). Advisory, not a gate.
	ComplianceIssues []string `json:"compliance_issues,omitempty"`
}

// ScoredContext is one context item scored for prompt assembly.
// Ephemeral, assembled per-request.
type ScoredContext struct {
	Content         string  `json:"content"`
	Source          string  `json:"source"`
	RelevanceScore  float64 `json:"relevance_score"`
	AttentionWeight float64 `json:"attention_weight"`
	// FinalWeight = RelevanceScore * AttentionWeight, the sort key.
	FinalWeight float64 `json:"final_weight"`
}
