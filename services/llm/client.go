package llm

import "context"

type GenerationParams struct {
	SystemPrompt string   `json:"system_prompt,omitempty"`
	Temperature  *float32 `json:"temperature"`
	TopK         *int     `json:"top_k"`
	TopP         *float32 `json:"top_p"`
	MaxTokens    *int     `json:"max_tokens"`
	Stop         []string `json:"stop"`
}

// LLMClient defines the standard interface for any oracle backend.
// Pipeline phases depend on this, never on a concrete client, so
// tests can substitute deterministic scripted implementations.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}
