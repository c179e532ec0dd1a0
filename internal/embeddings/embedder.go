// Package embeddings turns record summaries into vectors for the semantic
// index.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ziadkadry99/salesiq/internal/config"
)

// ErrNoEmbedder is returned when no embedding provider is configured.
var ErrNoEmbedder = errors.New("no embedding provider configured")

// Embedder defines the interface for generating text embeddings.
type Embedder interface {
	// Embed generates embeddings for one or more texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Name returns the name/identifier of the embedding model.
	Name() string
}

// NewEmbedder creates the embedder named by cfg.EmbeddingProvider.
func NewEmbedder(ctx context.Context, cfg *config.Config) (Embedder, error) {
	model := cfg.EmbeddingModel
	if model == "" {
		model = config.GetPreset(cfg.EmbeddingProvider, cfg.Quality).EmbeddingModel
	}

	switch cfg.EmbeddingProvider {
	case "", config.ProviderNone:
		return nil, ErrNoEmbedder
	case config.ProviderOpenAI:
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		return NewOpenAIEmbedder(apiKey, model, os.Getenv("OPENAI_BASE_URL")), nil
	case config.ProviderGoogle:
		apiKey := os.Getenv("GOOGLE_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY environment variable is not set")
		}
		return NewGoogleEmbedder(ctx, apiKey, model)
	case config.ProviderOllama:
		return NewOllamaEmbedder(model, os.Getenv("OLLAMA_HOST")), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.EmbeddingProvider)
	}
}
