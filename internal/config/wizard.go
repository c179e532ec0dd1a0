package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to salesiq! Let's connect your sales data.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Data source.
	sourcePrompt := promptui.Select{
		Label: "Where do sales records come from",
		Items: []string{"sales API (HTTP)", "local files (json, csv, xlsx)"},
	}
	sourceIdx, _, err := sourcePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("source selection: %w", err)
	}
	if sourceIdx == 0 {
		urlPrompt := promptui.Prompt{
			Label:    "Sales API URL",
			Validate: requireValue,
		}
		if cfg.DataSource.URL, err = urlPrompt.Run(); err != nil {
			return nil, fmt.Errorf("api url: %w", err)
		}
	} else {
		globPrompt := promptui.Prompt{
			Label:   "File glob",
			Default: "data/**/*.{json,csv,xlsx}",
		}
		if cfg.DataSource.Files, err = globPrompt.Run(); err != nil {
			return nil, fmt.Errorf("file glob: %w", err)
		}
	}

	// 2. Session store.
	storePrompt := promptui.Select{
		Label: "Session store",
		Items: []string{"sqlite — single process", "redis  — shared between instances", "memory — nothing persisted"},
	}
	storeIdx, _, err := storePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("store selection: %w", err)
	}
	cfg.Store = []StoreBackend{StoreSQLite, StoreRedis, StoreMemory}[storeIdx]
	if cfg.Store == StoreRedis {
		addrPrompt := promptui.Prompt{Label: "Redis address", Default: cfg.Redis.Addr}
		if cfg.Redis.Addr, err = addrPrompt.Run(); err != nil {
			return nil, fmt.Errorf("redis address: %w", err)
		}
	}

	// 3. Optional generative phrasing.
	providerPrompt := promptui.Select{
		Label: "LLM provider for phrasing answers",
		Items: []string{"none", "anthropic", "openai", "google", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	if cfg.Provider != ProviderNone {
		qualityPrompt := promptui.Select{
			Label: "Select quality tier",
			Items: []string{
				"lite   — fast & cheap",
				"normal — balanced",
				"max    — highest quality",
			},
		}
		qualityIdx, _, err := qualityPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("quality selection: %w", err)
		}
		cfg.Quality = []QualityTier{QualityLite, QualityNormal, QualityMax}[qualityIdx]

		preset := GetPreset(cfg.Provider, cfg.Quality)
		cfg.Model = preset.Model
		cfg.EmbeddingProvider = embeddingProviderFor(cfg.Provider)
		cfg.EmbeddingModel = preset.EmbeddingModel
		cfg.Engine.Explain = true
		cfg.Retrieval.Enabled = true

		if envVar := APIKeyEnvVar(cfg.Provider); envVar != "" && os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s in your environment or .env before asking questions.\n", envVar)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func requireValue(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("a value is required")
	}
	return nil
}

// embeddingProviderFor returns the default embedding provider for a given
// LLM provider. Anthropic has no embeddings endpoint, so OpenAI stands in.
func embeddingProviderFor(p ProviderType) ProviderType {
	switch p {
	case ProviderOllama, ProviderGoogle:
		return p
	}
	return ProviderOpenAI
}
