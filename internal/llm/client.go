// Package llm provides chat-completion clients for the tagging service and
// the bounded-retry controller wrapped around every remote call.
package llm

import (
	"context"
	"fmt"
	"os"
	"time"
)

// Client is the minimal interface the tagger uses to call a model. The
// response text is the sole signal: no streaming, no function calling.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider string // "openai" (any OpenAI-compatible endpoint) or "gemini"
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

// New builds a Client for the configured provider. The API key falls back to
// the provider's conventional environment variable when unset.
func New(cfg Config) (Client, error) {
	switch cfg.Provider {
	case "", "openai":
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		return NewOpenAIClient(cfg), nil
	case "gemini":
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("GEMINI_API_KEY")
		}
		return NewGeminiClient(cfg)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
