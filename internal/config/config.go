package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = ".salesiq.yml"

// EnvPrefix prefixes environment overrides. A double underscore nests:
// SALESIQ_DATA_SOURCE__URL sets data_source.url.
const EnvPrefix = "SALESIQ_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (SALESIQ_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validProviders = map[ProviderType]bool{
	ProviderNone:      true,
	ProviderAnthropic: true,
	ProviderOpenAI:    true,
	ProviderGoogle:    true,
	ProviderOllama:    true,
}

var validQualityTiers = map[QualityTier]bool{
	QualityLite:   true,
	QualityNormal: true,
	QualityMax:    true,
}

var validStores = map[StoreBackend]bool{
	StoreMemory: true,
	StoreSQLite: true,
	StoreRedis:  true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.DataSource.URL == "" && c.DataSource.Files == "" {
		return fmt.Errorf("data_source.url or data_source.files is required")
	}
	if c.DataSource.TimeoutSeconds < 0 || c.DataSource.MaxAgeSeconds < 0 {
		return fmt.Errorf("data_source timeouts must be non-negative")
	}

	if !validStores[c.Store] {
		return fmt.Errorf("invalid store %q: must be one of memory, sqlite, redis", c.Store)
	}
	if c.Store == StoreSQLite && c.Database == "" {
		return fmt.Errorf("database is required for the sqlite store")
	}
	if c.Store == StoreRedis && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required for the redis store")
	}

	if c.Provider != "" && !validProviders[c.Provider] {
		return fmt.Errorf("invalid provider %q: must be one of none, anthropic, openai, google, ollama", c.Provider)
	}
	if c.Engine.Explain && (c.Provider == "" || c.Provider == ProviderNone) {
		return fmt.Errorf("engine.explain needs a provider")
	}
	if c.EmbeddingProvider != "" && !validProviders[c.EmbeddingProvider] {
		return fmt.Errorf("invalid embedding_provider %q", c.EmbeddingProvider)
	}
	if c.EmbeddingProvider == ProviderAnthropic {
		return fmt.Errorf("anthropic does not provide embeddings")
	}
	if c.Retrieval.Enabled && (c.EmbeddingProvider == "" || c.EmbeddingProvider == ProviderNone) {
		return fmt.Errorf("retrieval.enabled needs an embedding_provider")
	}

	if c.Quality != "" && !validQualityTiers[c.Quality] {
		return fmt.Errorf("invalid quality %q: must be one of lite, normal, max", c.Quality)
	}

	if !inUnitRange(c.Engine.KeywordThreshold) || !inUnitRange(c.Engine.ValueThreshold) {
		return fmt.Errorf("engine thresholds must be within (0, 1]")
	}
	if c.Redis.LockTTLSeconds < 0 {
		return fmt.Errorf("redis.lock_ttl_seconds must be non-negative")
	}
	if c.Engine.HistoryLimit < 0 {
		return fmt.Errorf("engine.history_limit must be non-negative")
	}

	return nil
}

func inUnitRange(v float64) bool { return v > 0 && v <= 1 }

// FetchTimeout returns the live fetch bound.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.DataSource.TimeoutSeconds) * time.Second
}

// MaxAge returns how long a snapshot may answer without refetching.
func (c *Config) MaxAge() time.Duration {
	return time.Duration(c.DataSource.MaxAgeSeconds) * time.Second
}

// SessionTTL returns the redis session expiry.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Redis.TTLMinutes) * time.Minute
}

// LockTTL returns the redis session lock expiry. Unset, it covers a
// worst-case turn: one fetch, a rephrase and a retrieval answer, plus slack.
func (c *Config) LockTTL() time.Duration {
	if c.Redis.LockTTLSeconds > 0 {
		return time.Duration(c.Redis.LockTTLSeconds) * time.Second
	}
	return c.FetchTimeout() + 2*c.ExplainTimeout() + 30*time.Second
}

// ExplainTimeout returns the bound on one generative call.
func (c *Config) ExplainTimeout() time.Duration {
	return time.Duration(c.Engine.ExplainTimeout) * time.Second
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGoogle:
		return "GOOGLE_API_KEY"
	default:
		return ""
	}
}
