package llm

import (
	"context"
	"errors"
	"fmt"
)

const (
	RoleActor  = "actor"
	RoleCritic = "critic"
)

var ErrEmptyCompletion = errors.New("llm returned empty content")

// Client is the generation service used by both roles.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

type CompletionRequest struct {
	Role         string
	Model        string
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
	JSONMode     bool
}

type Completion struct {
	Content      string
	Model        string
	FinishReason string
	InputTokens  int64
	OutputTokens int64
}

// NewClient builds the client named by provider: "openai" or "mock".
func NewClient(provider, apiKey, model, baseURL string) (Client, error) {
	switch provider {
	case "", "openai":
		return NewOpenAIClient(apiKey, model, baseURL)
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}
