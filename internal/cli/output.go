// Package cli renders command output for the unionkb binary.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/nzila/unionkb/internal/models"
	"github.com/nzila/unionkb/pkg/utils"
)

// OutputFormat selects how command results are rendered.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat validates a format flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch s {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms\n", response.Total, response.QueryTime)
	if response.KnowledgeGap {
		fmt.Fprintln(w, "No indexed material matched this query.")
	}
	fmt.Fprintln(w)
	for i, result := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f (Semantic: %.4f, Keyword: %.4f)\n",
			i+1, result.Score, result.SemanticScore, result.KeywordScore)
		fmt.Fprintf(w, "Chunk: %s (document %s)\n", result.Chunk.ID, result.Chunk.DocumentID)
		if result.Chunk.Jurisdiction != "" {
			fmt.Fprintf(w, "Jurisdiction: %s\n", result.Chunk.Jurisdiction)
		}
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(result.Chunk.Content, 200))
	}
	return nil
}

// WriteUsageStats writes a tenant's metering windows and spend to w.
func WriteUsageStats(w io.Writer, stats *models.UsageStats, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, stats)
	}
	fmt.Fprintf(w, "tenant: %s\n", stats.Tenant)
	for _, window := range stats.Windows {
		fmt.Fprintf(w, "%-20s %d / %d\n", window.Metric+":", window.Current, window.Limit)
	}
	if stats.MonthlyLimitUSD > 0 {
		fmt.Fprintf(w, "%-20s $%.2f / $%.2f\n", "monthly_spend:", stats.SpendUSD, stats.MonthlyLimitUSD)
	}
	return nil
}
