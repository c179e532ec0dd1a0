package config

import (
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.DataSource.URL = "http://localhost:9000/api/sales"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != ProviderNone {
		t.Errorf("expected default provider %q, got %q", ProviderNone, cfg.Provider)
	}
	if cfg.Store != StoreSQLite {
		t.Errorf("expected default store %q, got %q", StoreSQLite, cfg.Store)
	}
	if cfg.Engine.KeywordThreshold != 0.6 || cfg.Engine.ValueThreshold != 0.75 {
		t.Errorf("unexpected thresholds %v/%v", cfg.Engine.KeywordThreshold, cfg.Engine.ValueThreshold)
	}
	if cfg.Engine.Currency != "₹" {
		t.Errorf("expected default currency ₹, got %q", cfg.Engine.Currency)
	}
	if cfg.Engine.HistoryLimit != 10 {
		t.Errorf("expected history_limit 10, got %d", cfg.Engine.HistoryLimit)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "test.salesiq.yml")

	original := validConfig()
	original.Store = StoreRedis
	original.Redis.Addr = "redis:6379"
	original.Provider = ProviderOpenAI
	original.Model = "gpt-4o"
	original.Quality = QualityMax
	original.Engine.ValueThreshold = 0.8
	original.Server.CORSOrigins = []string{"http://a.example", "http://b.example"}

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.DataSource.URL != original.DataSource.URL {
		t.Errorf("data_source.url: got %q, want %q", loaded.DataSource.URL, original.DataSource.URL)
	}
	if loaded.Store != StoreRedis || loaded.Redis.Addr != "redis:6379" {
		t.Errorf("store: got %q at %q", loaded.Store, loaded.Redis.Addr)
	}
	if loaded.Provider != original.Provider {
		t.Errorf("provider: got %q, want %q", loaded.Provider, original.Provider)
	}
	if loaded.Quality != original.Quality {
		t.Errorf("quality: got %q, want %q", loaded.Quality, original.Quality)
	}
	if loaded.Engine.ValueThreshold != 0.8 {
		t.Errorf("value_threshold: got %v, want 0.8", loaded.Engine.ValueThreshold)
	}
	if len(loaded.Server.CORSOrigins) != 2 {
		t.Errorf("cors_origins length: got %d, want 2", len(loaded.Server.CORSOrigins))
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Store != StoreSQLite {
		t.Errorf("expected default store, got %q", cfg.Store)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yml")

	if err := validConfig().Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("SALESIQ_PROVIDER", "openai")
	t.Setenv("SALESIQ_DATA_SOURCE__URL", "http://override/api")
	t.Setenv("SALESIQ_ENGINE__CURRENCY", "$")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Provider != ProviderOpenAI {
		t.Errorf("env override failed: got %q, want %q", loaded.Provider, ProviderOpenAI)
	}
	if loaded.DataSource.URL != "http://override/api" {
		t.Errorf("nested env override failed: got %q", loaded.DataSource.URL)
	}
	if loaded.Engine.Currency != "$" {
		t.Errorf("currency override failed: got %q", loaded.Engine.Currency)
	}
}

func TestValidateValid(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("config with a data source should be valid, got: %v", err)
	}

	cfg := DefaultConfig()
	cfg.DataSource.Files = "data/*.json"
	if err := cfg.Validate(); err != nil {
		t.Errorf("file data source should be valid, got: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no data source", func(c *Config) { c.DataSource.URL = "" }},
		{"negative timeout", func(c *Config) { c.DataSource.TimeoutSeconds = -1 }},
		{"unknown store", func(c *Config) { c.Store = "mongo" }},
		{"sqlite without path", func(c *Config) { c.Database = "" }},
		{"redis without addr", func(c *Config) { c.Store = StoreRedis; c.Redis.Addr = "" }},
		{"invalid provider", func(c *Config) { c.Provider = "invalid" }},
		{"explain without provider", func(c *Config) { c.Engine.Explain = true }},
		{"anthropic embeddings", func(c *Config) { c.EmbeddingProvider = ProviderAnthropic }},
		{"retrieval without embeddings", func(c *Config) { c.Retrieval.Enabled = true }},
		{"invalid quality", func(c *Config) { c.Quality = "ultra" }},
		{"zero threshold", func(c *Config) { c.Engine.KeywordThreshold = 0 }},
		{"threshold above one", func(c *Config) { c.Engine.ValueThreshold = 1.2 }},
		{"negative history", func(c *Config) { c.Engine.HistoryLimit = -1 }},
		{"negative lock ttl", func(c *Config) { c.Redis.LockTTLSeconds = -1 }},
	}
	for _, tt := range tests {
		cfg := validConfig()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestLockTTL(t *testing.T) {
	cfg := DefaultConfig()
	// 15s fetch, two 20s generative calls and 30s of slack.
	if got, want := cfg.LockTTL(), 85*time.Second; got != want {
		t.Errorf("default LockTTL = %v, want %v", got, want)
	}
	if cfg.LockTTL() <= cfg.FetchTimeout()+2*cfg.ExplainTimeout() {
		t.Error("LockTTL must outlast a worst-case turn")
	}

	cfg.Redis.LockTTLSeconds = 120
	if got := cfg.LockTTL(); got != 2*time.Minute {
		t.Errorf("configured LockTTL = %v, want 2m", got)
	}
}

func TestGetPreset(t *testing.T) {
	p := GetPreset(ProviderAnthropic, QualityLite)
	if p.Model != "claude-haiku-4-5-20251001" {
		t.Errorf("expected haiku model, got %q", p.Model)
	}

	p = GetPreset(ProviderOllama, QualityMax)
	if p.Model != "llama3:70b" {
		t.Errorf("expected llama3:70b, got %q", p.Model)
	}

	// Unknown combination falls back.
	p = GetPreset("unknown", QualityLite)
	if p.Model != "gpt-4o" {
		t.Errorf("expected fallback to gpt-4o, got %q", p.Model)
	}
}

func TestAPIKeyEnvVar(t *testing.T) {
	tests := []struct {
		provider ProviderType
		want     string
	}{
		{ProviderAnthropic, "ANTHROPIC_API_KEY"},
		{ProviderOpenAI, "OPENAI_API_KEY"},
		{ProviderGoogle, "GOOGLE_API_KEY"},
		{ProviderOllama, ""},
		{ProviderNone, ""},
	}
	for _, tt := range tests {
		got := APIKeyEnvVar(tt.provider)
		if got != tt.want {
			t.Errorf("APIKeyEnvVar(%q) = %q, want %q", tt.provider, got, tt.want)
		}
	}
}

func TestEmbeddingProviderFor(t *testing.T) {
	if got := embeddingProviderFor(ProviderAnthropic); got != ProviderOpenAI {
		t.Errorf("anthropic should embed with openai, got %q", got)
	}
	if got := embeddingProviderFor(ProviderGoogle); got != ProviderGoogle {
		t.Errorf("google should embed with google, got %q", got)
	}
}
