package config

// QualityPreset describes the models to use for a given quality tier.
type QualityPreset struct {
	Model          string
	EmbeddingModel string
}

// qualityPresets maps each provider+quality combination to its model choices.
var qualityPresets = map[ProviderType]map[QualityTier]QualityPreset{
	ProviderAnthropic: {
		QualityLite:   {Model: "claude-haiku-4-5-20251001", EmbeddingModel: "text-embedding-3-small"},
		QualityNormal: {Model: "claude-sonnet-4-5-20250929", EmbeddingModel: "text-embedding-3-small"},
		QualityMax:    {Model: "claude-sonnet-4-5-20250929", EmbeddingModel: "text-embedding-3-large"},
	},
	ProviderOpenAI: {
		QualityLite:   {Model: "gpt-4o-mini", EmbeddingModel: "text-embedding-3-small"},
		QualityNormal: {Model: "gpt-4o", EmbeddingModel: "text-embedding-3-small"},
		QualityMax:    {Model: "gpt-4o", EmbeddingModel: "text-embedding-3-large"},
	},
	ProviderGoogle: {
		QualityLite:   {Model: "gemini-1.5-flash", EmbeddingModel: "text-embedding-004"},
		QualityNormal: {Model: "gemini-1.5-pro", EmbeddingModel: "text-embedding-004"},
		QualityMax:    {Model: "gemini-1.5-pro", EmbeddingModel: "text-embedding-004"},
	},
	ProviderOllama: {
		QualityLite:   {Model: "llama3", EmbeddingModel: "nomic-embed-text"},
		QualityNormal: {Model: "llama3", EmbeddingModel: "nomic-embed-text"},
		QualityMax:    {Model: "llama3:70b", EmbeddingModel: "nomic-embed-text"},
	},
}

// DefaultConfig returns a Config that answers deterministically from a
// local sqlite store, with no generative provider.
func DefaultConfig() *Config {
	return &Config{
		DataSource: DataSourceConfig{
			TimeoutSeconds: 15,
		},
		Store:    StoreSQLite,
		Database: ".salesiq/salesiq.db",
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "salesiq:",
		},
		Provider:          ProviderNone,
		EmbeddingProvider: ProviderNone,
		Quality:           QualityNormal,
		Engine: EngineConfig{
			KeywordThreshold: 0.6,
			ValueThreshold:   0.75,
			Currency:         "₹",
			ExplainTimeout:   20,
			HistoryLimit:     10,
			RequestsPerMin:   60,
		},
		Retrieval: RetrievalConfig{
			Dir:  ".salesiq/vectors",
			TopK: 5,
		},
		Server: ServerConfig{
			Addr:        ":8080",
			CORSOrigins: []string{"*"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// GetPreset returns the quality preset for the given provider and tier.
// Returns the Normal OpenAI preset if the combination is not found.
func GetPreset(provider ProviderType, tier QualityTier) QualityPreset {
	if tiers, ok := qualityPresets[provider]; ok {
		if preset, ok := tiers[tier]; ok {
			return preset
		}
	}
	return qualityPresets[ProviderOpenAI][QualityNormal]
}
