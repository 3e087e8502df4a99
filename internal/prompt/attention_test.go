package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nzila/unionkb/internal/models"
)

func testResolved() *models.ResolvedTemplate {
	return &models.ResolvedTemplate{
		Weights:      validWeights(),
		SystemPrompt: "You assist union members.",
	}
}

func TestAttentionEngine_ScoreContext(t *testing.T) {
	engine := NewAttentionEngine()
	now := time.Now()
	engine.now = func() time.Time { return now }

	bundle := ContextBundle{
		Retrieved: []RetrievedItem{
			{Content: "Article 9 covers overtime approval.", Score: 0.9},
			{Content: "Appendix C lists pay grades.", Score: 0.4},
		},
		Session: []SessionMessage{
			{Content: "User asked about overtime last week.", Timestamp: now.Add(-10 * time.Minute)},
		},
		DomainClauses:     []string{"Overtime must be offered by seniority."},
		JurisdictionRules: []string{"State law requires daily overtime past 8 hours."},
	}

	scored := engine.ScoreContext("overtime", testResolved(), bundle)
	require.Len(t, scored, 5)

	for i := 1; i < len(scored); i++ {
		assert.GreaterOrEqual(t, scored[i-1].FinalWeight, scored[i].FinalWeight, "not sorted descending")
	}
	for _, item := range scored {
		assert.InDelta(t, item.RelevanceScore*item.AttentionWeight, item.FinalWeight, 1e-9)
	}
}

func TestAttentionEngine_SessionRecencyDecay(t *testing.T) {
	engine := NewAttentionEngine()
	now := time.Now()
	engine.now = func() time.Time { return now }

	bundle := ContextBundle{
		Session: []SessionMessage{
			{Content: "fresh", Timestamp: now},
			{Content: "stale", Timestamp: now.Add(-4 * time.Hour)},
		},
	}
	scored := engine.ScoreContext("anything", testResolved(), bundle)
	require.Len(t, scored, 2)
	assert.Equal(t, "fresh", scored[0].Content)
	assert.Greater(t, scored[0].RelevanceScore, scored[1].RelevanceScore)
	// Four hours is four half-lives: relevance ~1/16.
	assert.InDelta(t, 0.0625, scored[1].RelevanceScore, 0.001)
}

func TestAttentionEngine_TimelineBoost(t *testing.T) {
	engine := NewAttentionEngine()

	calm := engine.ScoreContext("deadline", testResolved(), ContextBundle{
		Timeline: []TimelineSignal{{Content: "Filing due in 30 days.", Status: TimelineOnTrack}},
	})
	urgent := engine.ScoreContext("deadline", testResolved(), ContextBundle{
		Timeline: []TimelineSignal{{Content: "Filing due tomorrow.", Status: TimelineBreached}},
	})
	require.Len(t, calm, 1)
	require.Len(t, urgent, 1)
	assert.Greater(t, urgent[0].AttentionWeight, calm[0].AttentionWeight)
	assert.InDelta(t, validWeights().Timeline*timelineBreachedBoost, urgent[0].AttentionWeight, 1e-9)
}

func TestBoostTimelineWeight_Capped(t *testing.T) {
	signals := []TimelineSignal{{Status: TimelineBreached}}
	boosted := boostTimelineWeight(0.4, signals)
	assert.Equal(t, timelineWeightCap, boosted, "boost must be capped")

	assert.Equal(t, 0.1, boostTimelineWeight(0.1, nil), "no signals means no boost")
}

func TestAssemblePrompt(t *testing.T) {
	resolved := testResolved()
	scored := []models.ScoredContext{
		{Content: "Deadline is Friday.", Source: models.SourceTimeline, FinalWeight: 0.4},
		{Content: "Article 9 covers overtime.", Source: models.SourceDomainClause, FinalWeight: 0.3},
		{Content: "Retrieved passage one.", Source: models.SourceRAG, FinalWeight: 0.2},
		{Content: "Retrieved passage two.", Source: models.SourceRAG, FinalWeight: 0.15},
		{Content: "Retrieved passage three.", Source: models.SourceRAG, FinalWeight: 0.1},
		{Content: "Retrieved passage four (beyond top-N).", Source: models.SourceRAG, FinalWeight: 0.05},
	}

	out := AssemblePrompt(scored, "when is the overtime deadline?", 3)

	// The system prompt travels on its own channel; assembling it into the
	// body would hand the provider the instructions twice.
	assert.NotContains(t, out, resolved.SystemPrompt)
	assert.Contains(t, out, "Deadlines and timeline")
	assert.Contains(t, out, "priority")
	assert.Contains(t, out, "%")
	assert.Contains(t, out, "Retrieved passage three.")
	assert.NotContains(t, out, "beyond top-N")
	assert.Contains(t, out, "when is the overtime deadline?")

	// Sections appear with the timeline group before retrieved evidence.
	timelineIdx := strings.Index(out, "Deadlines and timeline")
	ragIdx := strings.Index(out, "Retrieved documents")
	assert.Less(t, timelineIdx, ragIdx)
}

func TestRecencyDecay(t *testing.T) {
	assert.Equal(t, 1.0, recencyDecay(0))
	assert.InDelta(t, 0.5, recencyDecay(time.Hour), 1e-9)
	assert.Greater(t, recencyDecay(time.Minute), recencyDecay(time.Hour))
}
