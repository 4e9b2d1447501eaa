package reasoning

import (
	"context"
	"fmt"

	"github.com/okent/rekindle/internal/config"
)

// Client is the interface for natural-language reasoning providers.
// The conflict resolver only asks it for free-text rationale; rankings
// are always computed locally so results stay deterministic when no
// provider is configured.
type Client interface {
	Explain(ctx context.Context, prompt string) (*Response, error)
}

// Response holds the result of a reasoning call.
type Response struct {
	Content    string
	Provider   string
	TokensUsed int
}

// NewClient creates a reasoning client based on the config provider
// setting. An empty provider means "none": callers fall back to
// templated rationale.
func NewClient(cfg config.ReasoningConfig) (Client, error) {
	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "anthropic":
		if cfg.AnthropicKey == "" {
			return nil, fmt.Errorf("anthropic provider requires ANTHROPIC_API_KEY or config")
		}
		model := cfg.Model
		if model == "" {
			model = "claude-haiku-4-5-20251001"
		}
		return NewAnthropic(cfg.AnthropicKey, model), nil
	case "ollama":
		url := cfg.OllamaURL
		if url == "" {
			url = "http://localhost:11434"
		}
		model := cfg.OllamaModel
		if model == "" {
			model = "llama3.2"
		}
		return NewOllama(url, model), nil
	default:
		return nil, fmt.Errorf("unknown reasoning provider: %q", cfg.Provider)
	}
}
