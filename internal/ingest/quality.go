package ingest

import (
	"fmt"
	"strings"

	"github.com/nzila/unionkb/internal/models"
)

// Reference content length for full completeness. Documents at or above
// this length score 100% on the completeness signal.
const referenceContentLength = 5000

// Content shorter than these thresholds is flagged as truncated.
const (
	truncatedHighThreshold   = 100
	truncatedMediumThreshold = 500
)

// ScoreQuality computes a QualityReport for the parsed document: an equal
// blend of completeness (length against a reference), validity (empty or
// not), and metadata completeness. Issues are informational, never blocking.
func ScoreQuality(content string, meta models.DocumentMetadata, errorNote string) *models.QualityReport {
	report := &models.QualityReport{}
	trimmed := strings.TrimSpace(content)

	completeness := float64(len(trimmed)) / referenceContentLength * 100
	if completeness > 100 {
		completeness = 100
	}
	report.Completeness = completeness

	if trimmed != "" {
		report.Validity = 100
	}

	metaScore := 50.0
	for _, present := range []bool{
		meta.Source != "",
		meta.DocumentDate != "",
		meta.Jurisdiction != "",
		len(meta.Tags) > 0,
		meta.OriginalFilename != "",
	} {
		if present {
			metaScore += 10
		}
	}
	if metaScore > 100 {
		metaScore = 100
	}

	report.Score = (report.Completeness + report.Validity + metaScore) / 3

	if errorNote != "" {
		report.Issues = append(report.Issues, models.QualityIssue{
			Code:     "extraction_failed",
			Severity: "high",
			Message:  errorNote,
		})
	}
	switch {
	case trimmed == "":
		report.Issues = append(report.Issues, models.QualityIssue{
			Code:     "empty_content",
			Severity: "high",
			Message:  "document has no extractable text",
		})
	case len(trimmed) < truncatedHighThreshold:
		report.Issues = append(report.Issues, models.QualityIssue{
			Code:     "truncated",
			Severity: "high",
			Message:  fmt.Sprintf("content is only %d characters", len(trimmed)),
		})
	case len(trimmed) < truncatedMediumThreshold:
		report.Issues = append(report.Issues, models.QualityIssue{
			Code:     "truncated",
			Severity: "medium",
			Message:  fmt.Sprintf("content is only %d characters", len(trimmed)),
		})
	}
	if meta.Jurisdiction == "" {
		report.Issues = append(report.Issues, models.QualityIssue{
			Code:     "missing_jurisdiction",
			Severity: "low",
			Message:  "no jurisdiction set; document will match jurisdiction-filtered queries only when the filter is empty",
		})
	}
	return report
}
