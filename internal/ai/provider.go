package ai

import (
	"context"
	"time"
)

// Completion carries the generated text plus the minimal metadata the
// session logs (latency always, token usage when the API reports it).
type Completion struct {
	Text             string
	Latency          time.Duration
	PromptTokens     int
	CompletionTokens int
}

// Provider is the text-generation collaborator. Failures are expected
// and recoverable; the game never blocks phase progression on one.
type Provider interface {
	Complete(ctx context.Context, model, systemPrompt, prompt string) (Completion, error)
}
