package prompt

import (
	"fmt"
	"strings"

	"github.com/nzila/unionkb/internal/models"
)

// defaultTopNPerSource bounds how many items of each source enter the prompt.
const defaultTopNPerSource = 3

// Human-readable section headings per context source.
var sourceHeadings = map[string]string{
	models.SourceRAG:          "Retrieved documents",
	models.SourceSession:      "Conversation history",
	models.SourceDomainClause: "Relevant contract clauses",
	models.SourceJurisdiction: "Jurisdiction rules",
	models.SourceTimeline:     "Deadlines and timeline",
}

// Render order for the context sections.
var sourceOrder = []string{
	models.SourceTimeline,
	models.SourceDomainClause,
	models.SourceJurisdiction,
	models.SourceRAG,
	models.SourceSession,
}

// AssemblePrompt renders the user prompt: the top-N scored items per source
// grouped under a heading that shows the section's priority percentage,
// followed by the question. The system prompt is not included here; it is
// sent to the provider on its own channel, so assembling it into the body
// would duplicate the instructions.
// topNPerSource <= 0 uses the default of 3.
func AssemblePrompt(scored []models.ScoredContext, query string, topNPerSource int) string {
	if topNPerSource <= 0 {
		topNPerSource = defaultTopNPerSource
	}

	bySource := make(map[string][]models.ScoredContext)
	var totalWeight float64
	for _, item := range scored {
		if len(bySource[item.Source]) >= topNPerSource {
			continue
		}
		bySource[item.Source] = append(bySource[item.Source], item)
		totalWeight += item.FinalWeight
	}

	var b strings.Builder
	for _, source := range sourceOrder {
		items := bySource[source]
		if len(items) == 0 {
			continue
		}
		var sectionWeight float64
		for _, item := range items {
			sectionWeight += item.FinalWeight
		}
		priority := 0.0
		if totalWeight > 0 {
			priority = sectionWeight / totalWeight * 100
		}
		fmt.Fprintf(&b, "\n## %s (priority %.0f%%)\n", sourceHeadings[source], priority)
		for _, item := range items {
			b.WriteString("- ")
			b.WriteString(item.Content)
			b.WriteString("\n")
		}
	}

	b.WriteString("\n## Question\n")
	b.WriteString(query)
	b.WriteString("\n")
	return b.String()
}
