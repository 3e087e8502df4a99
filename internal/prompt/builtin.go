package prompt

import "github.com/nzila/unionkb/internal/models"

// baseTemplate is the stock assistant template every deployment starts from.
// Derived templates are built by composition so the weight contract is
// validated once, at registration.
func baseTemplate() *models.PromptTemplate {
	return &models.PromptTemplate{
		ID:      "default",
		Version: 1,
		SystemPrompt: "You are a labor relations assistant for {{organization}}. " +
			"Answer using the provided context. When the context does not cover " +
			"the question, say so instead of guessing.",
		Weights: models.AttentionWeights{
			Query:        0.25,
			RAG:          0.30,
			Session:      0.15,
			DomainClause: 0.15,
			Jurisdiction: 0.10,
			Timeline:     0.05,
		},
		SupportedJurisdictions: []string{"federal", "california", "new-york", "illinois"},
		RequiredVariables:      []string{"organization"},
	}
}

// RegisterBuiltins installs the stock templates. Deployments register their
// own on top; re-registering an id replaces the builtin.
func RegisterBuiltins(r *Registry) error {
	base := baseTemplate()
	if err := r.Register(base); err != nil {
		return err
	}
	grievance := Compose(base, TemplateOverride{
		ID: "grievance-advisor",
		SystemPrompt: "You are a grievance advisor for {{organization}}, assisting {{role}}. " +
			"Cite the contract clause backing every claim. Flag any approaching " +
			"filing deadline before answering the question itself.",
		Weights: &models.AttentionWeights{
			Query:        0.20,
			RAG:          0.25,
			Session:      0.10,
			DomainClause: 0.25,
			Jurisdiction: 0.10,
			Timeline:     0.10,
		},
		RequiredVariables: []string{"organization", "role"},
		ComplianceTags:    []string{"grievance", "deadline-sensitive"},
	})
	if err := r.Register(grievance); err != nil {
		return err
	}
	contract := Compose(base, TemplateOverride{
		ID: "contract-analyst",
		SystemPrompt: "You analyze collective bargaining agreements for {{organization}}. " +
			"Quote clause language verbatim and identify the article and section.",
		Weights: &models.AttentionWeights{
			Query:        0.20,
			RAG:          0.35,
			Session:      0.05,
			DomainClause: 0.25,
			Jurisdiction: 0.10,
			Timeline:     0.05,
		},
		ComplianceTags: []string{"contract"},
	})
	return r.Register(contract)
}
