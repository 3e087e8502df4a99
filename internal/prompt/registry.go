// Package prompt resolves templates through composition, computes per-source
// attention weights, and assembles the final prompt.
package prompt

import (
	"fmt"
	"math"
	"sync"

	"github.com/nzila/unionkb/internal/errs"
	"github.com/nzila/unionkb/internal/models"
)

// weightTolerance is the allowed deviation of an attention weight sum from 1.0.
const weightTolerance = 0.01

// Registry holds registered prompt templates by id. Registration validates
// the weight-sum contract loudly; a bad template never enters the registry.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]*models.PromptTemplate
}

// NewRegistry creates an empty template registry.
func NewRegistry() *Registry {
	return &Registry{templates: make(map[string]*models.PromptTemplate)}
}

// Register validates and stores a template. It fails if the six attention
// weights do not sum to 1.0 within tolerance; weights are never silently
// clamped. Re-registering an id replaces the previous version.
func (r *Registry) Register(tpl *models.PromptTemplate) error {
	if tpl.ID == "" {
		return fmt.Errorf("template id is required")
	}
	if sum := tpl.Weights.Sum(); math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("template %s: attention weights sum to %.4f, must be 1.0 ± %.2f",
			tpl.ID, sum, weightTolerance)
	}
	r.mu.Lock()
	r.templates[tpl.ID] = tpl
	r.mu.Unlock()
	return nil
}

// Get returns the template registered under id.
func (r *Registry) Get(id string) (*models.PromptTemplate, error) {
	r.mu.RLock()
	tpl, ok := r.templates[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrTemplateNotFound, id)
	}
	return tpl, nil
}

// List returns the ids of all registered templates.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.templates))
	for id := range r.templates {
		ids = append(ids, id)
	}
	return ids
}

// TemplateOverride carries the fields a derived template changes relative to
// its base. Zero values mean "keep the base value".
type TemplateOverride struct {
	ID                     string
	Version                int
	SystemPrompt           string
	Weights                *models.AttentionWeights
	SupportedJurisdictions []string
	RequiredVariables      []string
	ComplianceTags         []string
}

// Compose merges an override onto a base template and returns the result.
// It is a pure function: neither input is mutated, and slices are copied.
// The template hierarchy is built by composing, not by inheritance.
func Compose(base *models.PromptTemplate, o TemplateOverride) *models.PromptTemplate {
	out := &models.PromptTemplate{
		ID:                     base.ID,
		Version:                base.Version,
		SystemPrompt:           base.SystemPrompt,
		Weights:                base.Weights,
		SupportedJurisdictions: copyStrings(base.SupportedJurisdictions),
		RequiredVariables:      copyStrings(base.RequiredVariables),
		ComplianceTags:         copyStrings(base.ComplianceTags),
	}
	if o.ID != "" {
		out.ID = o.ID
	}
	if o.Version != 0 {
		out.Version = o.Version
	}
	if o.SystemPrompt != "" {
		out.SystemPrompt = o.SystemPrompt
	}
	if o.Weights != nil {
		out.Weights = *o.Weights
	}
	if o.SupportedJurisdictions != nil {
		out.SupportedJurisdictions = copyStrings(o.SupportedJurisdictions)
	}
	if o.RequiredVariables != nil {
		out.RequiredVariables = copyStrings(o.RequiredVariables)
	}
	if o.ComplianceTags != nil {
		out.ComplianceTags = copyStrings(o.ComplianceTags)
	}
	return out
}

func copyStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
