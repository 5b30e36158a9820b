package ai

import (
	"context"
	"errors"
)

// Request is a text completion request for the review workflow.
type Request struct {
	Model        string
	SystemPrompt string
	Prompt       string
	MaxTokens    int
}

type Response struct {
	Text      string
	TokensIn  int
	TokensOut int
}

// Client interface for providers like OpenAI, Anthropic.
type Client interface {
	Name() string
	Do(ctx context.Context, req Request) (Response, error)
}

var ErrRateLimited = errors.New("rate_limited")

func IsRateLimited(err error) bool { return errors.Is(err, ErrRateLimited) }
