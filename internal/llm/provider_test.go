package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProvider_Complete(t *testing.T) {
	p := &StaticProvider{Response: "The grievance deadline is 30 days.", CostPerThousandTokens: 0.50}

	got, err := p.Complete(context.Background(), &CompletionRequest{
		SystemPrompt: "You are a labor relations assistant.",
		Prompt:       "## Question\nWhat is the grievance deadline?",
	})
	require.NoError(t, err)
	assert.Equal(t, "The grievance deadline is 30 days.", got.Text)
	assert.Greater(t, got.PromptTokens, int64(0))
	assert.Greater(t, got.CompletionTokens, int64(0))
	assert.Equal(t, got.PromptTokens+got.CompletionTokens, got.TotalTokens())
	assert.InDelta(t, float64(got.TotalTokens())/1000*0.50, got.CostUSD, 1e-9)
}

func TestStaticProvider_Error(t *testing.T) {
	wantErr := errors.New("provider down")
	p := &StaticProvider{Err: wantErr}

	_, err := p.Complete(context.Background(), &CompletionRequest{Prompt: "q"})
	assert.ErrorIs(t, err, wantErr)
}

func TestStaticProvider_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&StaticProvider{}).Complete(ctx, &CompletionRequest{Prompt: "q"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, int64(0), EstimateTokens(""))
	assert.Equal(t, int64(1), EstimateTokens("ab"), "non-empty text is at least one token")
	assert.Equal(t, int64(25), EstimateTokens(string(make([]byte, 100))))
}
