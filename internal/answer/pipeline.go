// Package answer orchestrates the full question-answering pipeline: hybrid
// retrieval, template resolution, attention-weighted prompt assembly, the
// rate limit gate, the provider call, and usage recording.
package answer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nzila/unionkb/internal/config"
	"github.com/nzila/unionkb/internal/llm"
	"github.com/nzila/unionkb/internal/models"
	"github.com/nzila/unionkb/internal/prompt"
	"github.com/nzila/unionkb/internal/ratelimit"
	"github.com/nzila/unionkb/internal/search"
)

// Request is one question from one tenant, with whatever live context the
// calling application has on hand.
type Request struct {
	Tenant     string `json:"tenant"`
	Query      string `json:"query"`
	TemplateID string `json:"template_id,omitempty"`

	Jurisdiction string `json:"jurisdiction,omitempty"`
	Role         string `json:"role,omitempty"`
	Organization string `json:"organization,omitempty"`
	CaseID       string `json:"case_id,omitempty"`

	TopK  int      `json:"top_k,omitempty"`
	Alpha *float64 `json:"alpha,omitempty"`

	Session           []prompt.SessionMessage `json:"session,omitempty"`
	DomainClauses     []string                `json:"domain_clauses,omitempty"`
	JurisdictionRules []string                `json:"jurisdiction_rules,omitempty"`
	Timeline          []prompt.TimelineSignal `json:"timeline,omitempty"`
}

// Response is the generated answer with its supporting retrieval hits and
// any compliance issues collected along the way.
type Response struct {
	Answer  string                 `json:"answer,omitempty"`
	Sources []*models.SearchResult `json:"sources"`
	// KnowledgeGap mirrors the retrieval signal: the question was answered
	// without any indexed support.
	KnowledgeGap     bool                  `json:"knowledge_gap,omitempty"`
	ComplianceIssues []string              `json:"compliance_issues,omitempty"`
	Limit            *models.LimitDecision `json:"limit,omitempty"`
	TokensUsed       int64                 `json:"tokens_used,omitempty"`
	CostUSD          float64               `json:"cost_usd,omitempty"`
	Model            string                `json:"model,omitempty"`
}

// Pipeline wires the retrieval and generation stages together.
type Pipeline struct {
	engine    *search.Engine
	resolver  *prompt.Resolver
	attention *prompt.AttentionEngine
	limiter   *ratelimit.Limiter
	provider  llm.Provider
	cfg       *config.AnswerConfig
	logger    *zap.Logger // optional
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets a logger for compliance and degraded-mode events.
func WithLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates the answer pipeline. limiter may be nil to disable
// metering (tests, offline tooling).
func NewPipeline(
	engine *search.Engine,
	resolver *prompt.Resolver,
	limiter *ratelimit.Limiter,
	provider llm.Provider,
	cfg *config.AnswerConfig,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		engine:    engine,
		resolver:  resolver,
		attention: prompt.NewAttentionEngine(),
		limiter:   limiter,
		provider:  provider,
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Answer runs the full pipeline for one request. Rate limit rejections are
// not errors: the response carries the decision and an empty answer so the
// caller can surface retry-after to the client.
func (p *Pipeline) Answer(ctx context.Context, req *Request) (*Response, error) {
	searchResp, err := p.engine.Search(ctx, &models.SearchQuery{
		Query:         req.Query,
		TopK:          req.TopK,
		Alpha:         req.Alpha,
		Jurisdiction:  req.Jurisdiction,
		RerankEnabled: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	templateID := req.TemplateID
	if templateID == "" {
		templateID = p.cfg.TemplateID
	}
	resolved, err := p.resolver.Resolve(templateID, prompt.RequestContext{
		Query:        req.Query,
		Jurisdiction: req.Jurisdiction,
		Role:         req.Role,
		Organization: req.Organization,
		CaseID:       req.CaseID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve template %s: %w", templateID, err)
	}
	if len(resolved.ComplianceIssues) > 0 && p.logger != nil {
		p.logger.Warn("template resolution compliance issues",
			zap.String("tenant", req.Tenant),
			zap.String("template", templateID),
			zap.Strings("issues", resolved.ComplianceIssues))
	}

	bundle := prompt.ContextBundle{
		Retrieved:         retrievedItems(searchResp.Results),
		Session:           req.Session,
		DomainClauses:     req.DomainClauses,
		JurisdictionRules: req.JurisdictionRules,
		Timeline:          req.Timeline,
	}
	scored := p.attention.ScoreContext(req.Query, resolved, bundle)
	promptText := prompt.AssemblePrompt(scored, req.Query, 0)

	resp := &Response{
		Sources:          searchResp.Results,
		KnowledgeGap:     searchResp.KnowledgeGap,
		ComplianceIssues: resolved.ComplianceIssues,
	}

	estTokens := llm.EstimateTokens(resolved.SystemPrompt) + llm.EstimateTokens(promptText) + int64(p.cfg.MaxTokens)
	estCost := float64(estTokens) / 1000 * p.cfg.CostPerThousandTokens

	if p.limiter != nil {
		decision, err := p.limiter.CheckLimit(ctx, req.Tenant, estTokens, estCost)
		if err != nil {
			return nil, fmt.Errorf("failed to check limits: %w", err)
		}
		resp.Limit = decision
		if !decision.Allowed {
			return resp, nil
		}
	}

	completion, err := p.provider.Complete(ctx, &llm.CompletionRequest{
		SystemPrompt: resolved.SystemPrompt,
		Prompt:       promptText,
		MaxTokens:    p.cfg.MaxTokens,
		Temperature:  p.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", p.provider.Name(), err)
	}

	if p.limiter != nil {
		if err := p.limiter.RecordUsage(ctx, req.Tenant, completion.TotalTokens(), completion.CostUSD); err != nil && p.logger != nil {
			p.logger.Warn("failed to record usage",
				zap.String("tenant", req.Tenant),
				zap.Error(err))
		}
	}

	resp.Answer = completion.Text
	resp.TokensUsed = completion.TotalTokens()
	resp.CostUSD = completion.CostUSD
	resp.Model = completion.Model
	return resp, nil
}

func retrievedItems(results []*models.SearchResult) []prompt.RetrievedItem {
	items := make([]prompt.RetrievedItem, 0, len(results))
	for _, r := range results {
		items = append(items, prompt.RetrievedItem{
			Content: r.Chunk.Content,
			Score:   r.Score,
		})
	}
	return items
}
