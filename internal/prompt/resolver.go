package prompt

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nzila/unionkb/internal/errs"
	"github.com/nzila/unionkb/internal/models"
)

// fallbackJurisdiction is the universal default used when a requested
// jurisdiction is not explicitly supported by a template.
const fallbackJurisdiction = "federal"

// RequestContext carries the runtime context a template is resolved against.
type RequestContext struct {
	Query        string
	Jurisdiction string
	Role         string
	Organization string
	CaseID       string
}

// Resolver resolves templates against request contexts: jurisdiction
// matching, intent-based reweighting, and variable interpolation.
type Resolver struct {
	registry *Registry
	logger   *zap.Logger // optional
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets a logger for compliance-issue output.
func WithResolverLogger(l *zap.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a resolver backed by the given registry.
func NewResolver(registry *Registry, opts ...ResolverOption) *Resolver {
	r := &Resolver{registry: registry}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve looks up the template and performs three independent steps:
// jurisdiction selection with federal fallback, intent-based attention
// reweighting with renormalization, and plain string interpolation of the
// system prompt. Compliance issues (unsupported jurisdiction, missing
// variables) are collected and logged, never fatal; only an unknown template
// id is an error.
func (r *Resolver) Resolve(templateID string, reqCtx RequestContext) (*models.ResolvedTemplate, error) {
	tpl, err := r.registry.Get(templateID)
	if err != nil {
		return nil, err
	}

	resolved := &models.ResolvedTemplate{Template: tpl}

	resolved.Jurisdiction = r.selectJurisdiction(tpl, reqCtx.Jurisdiction, resolved)
	resolved.Weights = ReweightForIntent(tpl.Weights, DetectIntent(reqCtx.Query))
	resolved.SystemPrompt = r.interpolate(tpl, reqCtx, resolved)

	if len(resolved.ComplianceIssues) > 0 && r.logger != nil {
		r.logger.Warn("template resolved with compliance issues",
			zap.String("template", templateID),
			zap.Strings("issues", resolved.ComplianceIssues))
	}
	return resolved, nil
}

func (r *Resolver) selectJurisdiction(tpl *models.PromptTemplate, requested string, resolved *models.ResolvedTemplate) string {
	if requested == "" {
		return fallbackJurisdiction
	}
	for _, j := range tpl.SupportedJurisdictions {
		if strings.EqualFold(j, requested) {
			return j
		}
	}
	resolved.ComplianceIssues = append(resolved.ComplianceIssues,
		fmt.Sprintf("%s: %q not in template %s, falling back to %q",
			errs.ErrUnsupportedJurisdiction, requested, tpl.ID, fallbackJurisdiction))
	return fallbackJurisdiction
}

// interpolate substitutes {{role}}, {{organization}}, and {{caseId}} in the
// system prompt. Plain string substitution, not templating-language execution.
func (r *Resolver) interpolate(tpl *models.PromptTemplate, reqCtx RequestContext, resolved *models.ResolvedTemplate) string {
	values := map[string]string{
		"role":         reqCtx.Role,
		"organization": reqCtx.Organization,
		"caseId":       reqCtx.CaseID,
	}
	for _, required := range tpl.RequiredVariables {
		if values[required] == "" {
			resolved.ComplianceIssues = append(resolved.ComplianceIssues,
				fmt.Sprintf("%s: %q has no value for template %s",
					errs.ErrMissingRequiredContext, required, tpl.ID))
		}
	}
	out := tpl.SystemPrompt
	for name, value := range values {
		out = strings.ReplaceAll(out, "{{"+name+"}}", value)
	}
	return out
}

// Intent classifies a query for attention reweighting.
type Intent string

const (
	IntentGeneral    Intent = "general"
	IntentCaseStatus Intent = "case-status"
	IntentDeadline   Intent = "deadline"
)

// DetectIntent classifies the query by keyword. Case/claim-status queries
// shift attention toward domain clauses; deadline queries toward timeline.
func DetectIntent(query string) Intent {
	q := strings.ToLower(query)
	for _, kw := range []string{"deadline", "due date", "expires", "overdue", "time limit"} {
		if strings.Contains(q, kw) {
			return IntentDeadline
		}
	}
	for _, kw := range []string{"case", "claim", "status", "grievance", "filing"} {
		if strings.Contains(q, kw) {
			return IntentCaseStatus
		}
	}
	return IntentGeneral
}

// ReweightForIntent adjusts attention weights for the detected intent and
// renormalizes so the vector sums to 1.0 again.
func ReweightForIntent(w models.AttentionWeights, intent Intent) models.AttentionWeights {
	switch intent {
	case IntentCaseStatus:
		w.DomainClause *= 1.5
		w.RAG *= 0.7
	case IntentDeadline:
		w.Timeline *= 2.0
		w.RAG *= 0.8
	default:
		return w
	}
	return normalizeWeights(w)
}

func normalizeWeights(w models.AttentionWeights) models.AttentionWeights {
	sum := w.Sum()
	if sum == 0 {
		return w
	}
	w.Query /= sum
	w.RAG /= sum
	w.Session /= sum
	w.DomainClause /= sum
	w.Jurisdiction /= sum
	w.Timeline /= sum
	return w
}
