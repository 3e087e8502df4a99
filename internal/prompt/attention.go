package prompt

import (
	"math"
	"sort"
	"time"

	"github.com/nzila/unionkb/internal/models"
	"github.com/nzila/unionkb/pkg/utils"
)

// Session history relevance halves every sessionHalfLife.
const sessionHalfLife = time.Hour

// Timeline urgency multipliers, applied to the template's timeline weight.
// The boosted weight is capped so one signal cannot drown out every other
// source entirely.
const (
	timelineAtRiskBoost   = 1.5
	timelineBreachedBoost = 2.0
	timelineWeightCap     = 0.5
)

// Timeline signal states reported by upstream deadline tracking.
const (
	TimelineOnTrack  = "on-track"
	TimelineAtRisk   = "at-risk"
	TimelineBreached = "breached"
)

// RetrievedItem is one retrieval hit offered as context.
type RetrievedItem struct {
	Content string
	Score   float64
}

// SessionMessage is one entry of session history.
type SessionMessage struct {
	Content   string
	Timestamp time.Time
}

// TimelineSignal is a deadline signal from upstream tracking.
type TimelineSignal struct {
	Content string
	Status  string // TimelineOnTrack, TimelineAtRisk, or TimelineBreached
}

// ContextBundle gathers the candidate context for one request, one field per
// attention source.
type ContextBundle struct {
	Retrieved         []RetrievedItem
	Session           []SessionMessage
	DomainClauses     []string
	JurisdictionRules []string
	Timeline          []TimelineSignal
}

// AttentionEngine scores context items against a resolved template's weights.
type AttentionEngine struct {
	now func() time.Time // injectable for tests
}

// NewAttentionEngine creates an attention engine.
func NewAttentionEngine() *AttentionEngine {
	return &AttentionEngine{now: time.Now}
}

// ScoreContext scores every item in the bundle: relevance times the resolved
// attention weight for its source. Session items decay by recency; the
// timeline weight is boosted (capped) when a signal reports at-risk or
// breached, so urgent context dominates regardless of static configuration.
// Results are sorted by final weight descending.
func (a *AttentionEngine) ScoreContext(query string, resolved *models.ResolvedTemplate, bundle ContextBundle) []models.ScoredContext {
	weights := resolved.Weights
	timelineWeight := boostTimelineWeight(weights.Timeline, bundle.Timeline)
	now := a.now()

	var scored []models.ScoredContext
	for _, item := range bundle.Retrieved {
		scored = append(scored, scoreItem(item.Content, models.SourceRAG, item.Score, weights.RAG))
	}
	for _, msg := range bundle.Session {
		scored = append(scored, scoreItem(msg.Content, models.SourceSession, recencyDecay(now.Sub(msg.Timestamp)), weights.Session))
	}
	for _, clause := range bundle.DomainClauses {
		scored = append(scored, scoreItem(clause, models.SourceDomainClause, queryRelevance(query, clause), weights.DomainClause))
	}
	for _, rule := range bundle.JurisdictionRules {
		scored = append(scored, scoreItem(rule, models.SourceJurisdiction, queryRelevance(query, rule), weights.Jurisdiction))
	}
	for _, signal := range bundle.Timeline {
		scored = append(scored, scoreItem(signal.Content, models.SourceTimeline, 1, timelineWeight))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].FinalWeight > scored[j].FinalWeight
	})
	return scored
}

func scoreItem(content, source string, relevance, weight float64) models.ScoredContext {
	return models.ScoredContext{
		Content:         content,
		Source:          source,
		RelevanceScore:  relevance,
		AttentionWeight: weight,
		FinalWeight:     relevance * weight,
	}
}

// queryRelevance scores static context (clauses, rules) by the fraction of
// query terms it contains, floored at 0.5 so untargeted clauses still carry
// half relevance.
func queryRelevance(query, content string) float64 {
	queryTokens := utils.Tokenize(query)
	if len(queryTokens) == 0 {
		return 0.5
	}
	contentSet := make(map[string]struct{})
	for _, tok := range utils.Tokenize(content) {
		contentSet[tok] = struct{}{}
	}
	matched := 0
	for _, tok := range queryTokens {
		if _, ok := contentSet[tok]; ok {
			matched++
		}
	}
	return 0.5 + 0.5*float64(matched)/float64(len(queryTokens))
}

// recencyDecay maps message age to (0,1]: 1.0 for a fresh message, halved
// every sessionHalfLife.
func recencyDecay(age time.Duration) float64 {
	if age <= 0 {
		return 1
	}
	return math.Exp2(-age.Hours() / sessionHalfLife.Hours())
}

// boostTimelineWeight applies the strongest urgency multiplier present in
// the signals, capped at timelineWeightCap.
func boostTimelineWeight(weight float64, signals []TimelineSignal) float64 {
	boost := 1.0
	for _, s := range signals {
		switch s.Status {
		case TimelineBreached:
			boost = timelineBreachedBoost
		case TimelineAtRisk:
			if boost < timelineAtRiskBoost {
				boost = timelineAtRiskBoost
			}
		}
	}
	boosted := weight * boost
	if boosted > timelineWeightCap {
		boosted = timelineWeightCap
	}
	return boosted
}
