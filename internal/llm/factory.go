package llm

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ziadkadry99/salesiq/internal/config"
)

// ErrNoProvider is returned when generative phrasing is switched off.
var ErrNoProvider = errors.New("no llm provider configured")

// NewProvider creates the configured provider, rate limited to
// cfg.Engine.RequestsPerMin. The model falls back to the quality preset.
func NewProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	model := cfg.Model
	if model == "" {
		model = config.GetPreset(cfg.Provider, cfg.Quality).Model
	}

	var p Provider
	switch cfg.Provider {
	case "", config.ProviderNone:
		return nil, ErrNoProvider

	case config.ProviderAnthropic:
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		p = NewAnthropicProvider(apiKey, model)

	case config.ProviderOpenAI:
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		p = NewOpenAIProvider(apiKey, model, os.Getenv("OPENAI_BASE_URL"))

	case config.ProviderGoogle:
		apiKey := os.Getenv("GOOGLE_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY environment variable is not set")
		}
		gp, err := NewGoogleProvider(ctx, apiKey, model)
		if err != nil {
			return nil, err
		}
		p = gp

	case config.ProviderOllama:
		host := os.Getenv("OLLAMA_HOST")
		if host == "" {
			host = "http://localhost:11434"
		}
		p = NewOllamaProvider(host, model)

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.Provider)
	}

	if cfg.Engine.RequestsPerMin > 0 {
		p = NewRateLimitedProvider(p, cfg.Engine.RequestsPerMin)
	}
	return p, nil
}
