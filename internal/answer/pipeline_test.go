package answer

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nzila/unionkb/internal/config"
	"github.com/nzila/unionkb/internal/embedding"
	"github.com/nzila/unionkb/internal/index"
	"github.com/nzila/unionkb/internal/keyword"
	"github.com/nzila/unionkb/internal/llm"
	"github.com/nzila/unionkb/internal/models"
	"github.com/nzila/unionkb/internal/prompt"
	"github.com/nzila/unionkb/internal/ratelimit"
	"github.com/nzila/unionkb/internal/search"
	"github.com/nzila/unionkb/internal/storage"
	"github.com/nzila/unionkb/internal/vector"
)

func validWeights() models.AttentionWeights {
	return models.AttentionWeights{
		Query: 0.25, RAG: 0.30, Session: 0.15,
		DomainClause: 0.15, Jurisdiction: 0.10, Timeline: 0.05,
	}
}

func newTestPipeline(t *testing.T, provider llm.Provider, rateCfg *config.RateLimitConfig) *Pipeline {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "answer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	vecIdx, err := vector.NewMemoryIndex(32)
	require.NoError(t, err)
	kwIdx := keyword.NewBM25Index()
	embedder := embedding.NewHashEmbedder(32, 100)
	searchCfg := &config.SearchConfig{
		ChunkSize: 200, ChunkOverlap: 20, MinChunkSize: 30,
		DefaultTopK: 5, MaxTopK: 20, Alpha: 0.5, CandidateRatio: 2,
	}

	idx := index.NewIndexer(store, embedder, vecIdx, kwIdx, searchCfg)
	docs := []*models.Document{
		{
			ID:          "d1",
			Content:     strings.Repeat("Grievances must be filed within thirty days of the incident. ", 10),
			ContentHash: "h1",
			Metadata:    models.DocumentMetadata{Jurisdiction: "federal", Type: "contract"},
		},
		{
			ID:          "d2",
			Content:     strings.Repeat("Overtime pay applies after forty hours in a workweek. ", 10),
			ContentHash: "h2",
			Metadata:    models.DocumentMetadata{Jurisdiction: "federal", Type: "policy"},
		},
	}
	_, err = idx.AddDocuments(context.Background(), docs)
	require.NoError(t, err)

	registry := prompt.NewRegistry()
	require.NoError(t, registry.Register(&models.PromptTemplate{
		ID:                     "default",
		Version:                1,
		SystemPrompt:           "You assist {{role}} at {{organization}}.",
		Weights:                validWeights(),
		SupportedJurisdictions: []string{"federal"},
		RequiredVariables:      []string{"role", "organization"},
	}))

	var limiter *ratelimit.Limiter
	if rateCfg != nil {
		limiter = ratelimit.NewLimiter(ratelimit.NewMemoryCounterStore(), nil, rateCfg)
	}

	engine := search.NewEngine(store, embedder, vecIdx, kwIdx, searchCfg)
	return NewPipeline(engine, prompt.NewResolver(registry), limiter, provider, &config.AnswerConfig{
		TemplateID:  "default",
		MaxTokens:   256,
		Temperature: 0.2,
	})
}

func TestPipeline_Answer(t *testing.T) {
	provider := &llm.StaticProvider{Response: "File the grievance within thirty days."}
	p := newTestPipeline(t, provider, nil)

	resp, err := p.Answer(context.Background(), &Request{
		Tenant:       "local-1",
		Query:        "when must a grievance be filed",
		Role:         "steward",
		Organization: "Local 1",
	})
	require.NoError(t, err)
	assert.Equal(t, "File the grievance within thirty days.", resp.Answer)
	assert.NotEmpty(t, resp.Sources, "retrieval hits should back the answer")
	assert.False(t, resp.KnowledgeGap)
	assert.Empty(t, resp.ComplianceIssues)
	assert.Greater(t, resp.TokensUsed, int64(0))
}

func TestPipeline_KnowledgeGap(t *testing.T) {
	provider := &llm.StaticProvider{Response: "No indexed material covers that."}
	p := newTestPipeline(t, provider, nil)

	// Pure keyword retrieval so an off-corpus query provably matches nothing.
	alpha := 0.0
	resp, err := p.Answer(context.Background(), &Request{
		Tenant:       "local-1",
		Query:        "zygomorphic quasar paradox",
		Alpha:        &alpha,
		Role:         "steward",
		Organization: "Local 1",
	})
	require.NoError(t, err)
	assert.True(t, resp.KnowledgeGap)
	assert.Empty(t, resp.Sources)
	assert.NotEmpty(t, resp.Answer, "an answer is still produced, flagged as unsupported")
}

func TestPipeline_RateLimited(t *testing.T) {
	provider := &llm.StaticProvider{Response: "should not be called"}
	p := newTestPipeline(t, provider, &config.RateLimitConfig{RequestsPerMinute: 1})

	req := &Request{
		Tenant: "local-2", Query: "grievance deadline",
		Role: "steward", Organization: "Local 2",
	}
	resp, err := p.Answer(context.Background(), req)
	require.NoError(t, err)
	require.True(t, resp.Limit.Allowed)
	require.NotEmpty(t, resp.Answer)

	resp, err = p.Answer(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, resp.Limit)
	assert.False(t, resp.Limit.Allowed, "second request in the minute exceeds the limit of 1")
	assert.Empty(t, resp.Answer, "provider must not be called when rejected")
	assert.NotEmpty(t, resp.Limit.Reason)
}

type capturingProvider struct {
	llm.StaticProvider
	got *llm.CompletionRequest
}

func (p *capturingProvider) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.Completion, error) {
	p.got = req
	return p.StaticProvider.Complete(ctx, req)
}

func TestPipeline_SystemPromptSentOnce(t *testing.T) {
	provider := &capturingProvider{StaticProvider: llm.StaticProvider{Response: "ok"}}
	p := newTestPipeline(t, provider, nil)

	_, err := p.Answer(context.Background(), &Request{
		Tenant: "local-1", Query: "grievance deadline",
		Role: "steward", Organization: "Local 1",
	})
	require.NoError(t, err)
	require.NotNil(t, provider.got)

	assert.Equal(t, "You assist steward at Local 1.", provider.got.SystemPrompt)
	assert.NotContains(t, provider.got.Prompt, provider.got.SystemPrompt,
		"instructions must not be duplicated into the prompt body")
	assert.Contains(t, provider.got.Prompt, "grievance deadline")
}

func TestPipeline_MissingVariablesAreAdvisory(t *testing.T) {
	provider := &llm.StaticProvider{Response: "ok"}
	p := newTestPipeline(t, provider, nil)

	resp, err := p.Answer(context.Background(), &Request{
		Tenant: "local-1",
		Query:  "overtime rules",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ComplianceIssues, "missing role/organization recorded, not fatal")
	assert.Equal(t, "ok", resp.Answer)
}

func TestPipeline_ProviderError(t *testing.T) {
	provider := &llm.StaticProvider{Err: errors.New("upstream timeout")}
	p := newTestPipeline(t, provider, nil)

	_, err := p.Answer(context.Background(), &Request{
		Tenant: "local-1", Query: "grievance deadline",
		Role: "steward", Organization: "Local 1",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream timeout")
}

func TestPipeline_RecordsUsage(t *testing.T) {
	provider := &llm.StaticProvider{Response: "answer", CostPerThousandTokens: 1.0}
	rateCfg := &config.RateLimitConfig{RequestsPerMinute: 100, TokensPerHour: 100000, CostCentsPerDay: 10000}
	p := newTestPipeline(t, provider, rateCfg)

	_, err := p.Answer(context.Background(), &Request{
		Tenant: "local-3", Query: "grievance deadline",
		Role: "steward", Organization: "Local 3",
	})
	require.NoError(t, err)

	stats, err := p.limiter.GetUsageStats(context.Background(), "local-3")
	require.NoError(t, err)
	byMetric := make(map[string]models.UsageWindow)
	for _, w := range stats.Windows {
		byMetric[w.Metric] = w
	}
	assert.Equal(t, int64(1), byMetric[ratelimit.MetricRequestsPerMinute].Current)
	assert.Greater(t, byMetric[ratelimit.MetricTokensPerHour].Current, int64(0))
}
