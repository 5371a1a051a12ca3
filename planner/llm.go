package planner

import (
	"context"
	"fmt"
	"strings"
)

// LLMClient abstracts the chat model so it can be swapped or mocked.
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// LLMSettings is the per-request model configuration. APIKey is supplied
// by the caller and never persisted.
type LLMSettings struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// NewLLM returns a client for an OpenAI-compatible provider.
func NewLLM(s LLMSettings) (LLMClient, error) {
	switch strings.ToLower(strings.TrimSpace(s.Provider)) {
	case "", "openai", "aipipe":
		return NewOpenAILLM(s)
	case "deepseek", "openrouter":
		// These speak the OpenAI wire format but have no default endpoint.
		if s.BaseURL == "" {
			return nil, fmt.Errorf("llm provider %s requires base_url (OpenAI-compatible endpoint)", s.Provider)
		}
		return NewOpenAILLM(s)
	default:
		return nil, fmt.Errorf("llm provider %s not supported; use an OpenAI-compatible endpoint", s.Provider)
	}
}
