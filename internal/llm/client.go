package llm

import (
	"context"
)

// Client is the translator boundary: natural language in, candidate SQL out.
// The candidate is never trusted; it goes through safety validation before
// anything touches the database.
type Client interface {
	GenerateSQL(ctx context.Context, prompt string) (*Response, error)
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Response represents the translator's answer for one question
type Response struct {
	SQL          string `json:"sql"`
	Model        string `json:"model,omitempty"`
	InputTokens  int    `json:"input_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
}

// Config holds configuration for LLM clients
type Config struct {
	APIKey    string
	Model     string
	BaseURL   string
	Timeout   int
	MaxTokens int
}
