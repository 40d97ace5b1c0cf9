package llm

import "context"

// GenerationParams carries optional sampling parameters for a single call.
// Nil fields fall back to the backend defaults.
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// LLMClient defines the standard interface for any LLM backend.
//
// Generate performs one system+user completion and returns the raw text.
// Implementations must be safe for concurrent use; the orchestrator shares a
// single client across all in-flight requests.
type LLMClient interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string, params GenerationParams) (string, error)
}
