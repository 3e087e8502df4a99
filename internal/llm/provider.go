// Package llm defines the boundary to external language model providers.
// The knowledge core never speaks a vendor SDK directly; callers hand a
// Provider to the answer pipeline and the pipeline stays vendor-agnostic.
package llm

import (
	"context"
	"strings"

	"github.com/nzila/unionkb/pkg/utils"
)

// CompletionRequest is the assembled prompt plus generation parameters.
type CompletionRequest struct {
	SystemPrompt string  `json:"system_prompt"`
	Prompt       string  `json:"prompt"`
	MaxTokens    int     `json:"max_tokens"`
	Temperature  float64 `json:"temperature"`
}

// Completion is the provider's response with the token accounting the cost
// meter needs.
type Completion struct {
	Text             string  `json:"text"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	CostUSD          float64 `json:"cost_usd"`
	Model            string  `json:"model"`
}

// TotalTokens returns prompt plus completion tokens.
func (c *Completion) TotalTokens() int64 {
	return c.PromptTokens + c.CompletionTokens
}

// Provider generates a completion for an assembled prompt.
type Provider interface {
	// Complete blocks until the provider responds or ctx is done.
	Complete(ctx context.Context, req *CompletionRequest) (*Completion, error)
	// Name identifies the provider in logs and usage records.
	Name() string
}

// EstimateTokens approximates the token count of text for pre-call limit
// checks. Four characters per token is the usual rough cut for English; the
// real count comes back from the provider after the call.
func EstimateTokens(text string) int64 {
	n := int64(len(text) / 4)
	if n == 0 && len(text) > 0 {
		n = 1
	}
	return n
}

// StaticProvider returns a canned answer. It stands in for a real model in
// tests and local development, with token accounting that behaves like the
// real thing.
type StaticProvider struct {
	// Response overrides the default canned text when non-empty.
	Response string
	// CostPerThousandTokens prices the fake completion. Zero means free.
	CostPerThousandTokens float64
	// Err, when set, is returned from every Complete call.
	Err error
}

// Complete returns the canned response with estimated token counts.
func (p *StaticProvider) Complete(ctx context.Context, req *CompletionRequest) (*Completion, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text := p.Response
	if text == "" {
		text = "Based on the provided context: " + utils.Truncate(firstLine(req.Prompt), 120)
	}
	promptTokens := EstimateTokens(req.SystemPrompt) + EstimateTokens(req.Prompt)
	completionTokens := EstimateTokens(text)
	return &Completion{
		Text:             text,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		CostUSD:          float64(promptTokens+completionTokens) / 1000 * p.CostPerThousandTokens,
		Model:            "static",
	}, nil
}

// Name implements Provider.
func (p *StaticProvider) Name() string { return "static" }

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
