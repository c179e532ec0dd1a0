package config

// QualityTier controls which generative model phrases answers.
type QualityTier string

const (
	QualityLite   QualityTier = "lite"
	QualityNormal QualityTier = "normal"
	QualityMax    QualityTier = "max"
)

// ProviderType identifies an LLM or embedding provider.
type ProviderType string

const (
	ProviderNone      ProviderType = "none"
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
	ProviderGoogle    ProviderType = "google"
	ProviderOllama    ProviderType = "ollama"
)

// StoreBackend selects where sessions and the fallback snapshot live.
type StoreBackend string

const (
	StoreMemory StoreBackend = "memory"
	StoreSQLite StoreBackend = "sqlite"
	StoreRedis  StoreBackend = "redis"
)

// Config is the top-level salesiq configuration, corresponding to .salesiq.yml.
type Config struct {
	DataSource        DataSourceConfig `yaml:"data_source" koanf:"data_source"`
	Store             StoreBackend     `yaml:"store" koanf:"store"`
	Database          string           `yaml:"database" koanf:"database"`
	Redis             RedisConfig      `yaml:"redis" koanf:"redis"`
	Provider          ProviderType     `yaml:"provider" koanf:"provider"`
	Model             string           `yaml:"model" koanf:"model"`
	EmbeddingProvider ProviderType     `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string           `yaml:"embedding_model" koanf:"embedding_model"`
	Quality           QualityTier      `yaml:"quality" koanf:"quality"`
	Engine            EngineConfig     `yaml:"engine" koanf:"engine"`
	Retrieval         RetrievalConfig  `yaml:"retrieval" koanf:"retrieval"`
	Server            ServerConfig     `yaml:"server" koanf:"server"`
	Log               LogConfig        `yaml:"log" koanf:"log"`
}

// DataSourceConfig says where sales records come from. URL wins over Files.
type DataSourceConfig struct {
	URL            string `yaml:"url" koanf:"url"`
	Files          string `yaml:"files" koanf:"files"`
	TimeoutSeconds int    `yaml:"timeout_seconds" koanf:"timeout_seconds"`
	MaxAgeSeconds  int    `yaml:"max_age_seconds" koanf:"max_age_seconds"`
}

// RedisConfig holds connection settings for the redis store.
type RedisConfig struct {
	Addr       string `yaml:"addr" koanf:"addr"`
	Password   string `yaml:"password" koanf:"password"`
	DB         int    `yaml:"db" koanf:"db"`
	Prefix     string `yaml:"prefix" koanf:"prefix"`
	TTLMinutes int    `yaml:"ttl_minutes" koanf:"ttl_minutes"`

	// LockTTLSeconds bounds a per-session lock. Zero derives it from the
	// fetch and explain timeouts.
	LockTTLSeconds int `yaml:"lock_ttl_seconds" koanf:"lock_ttl_seconds"`
}

// EngineConfig tunes the deterministic query pipeline.
type EngineConfig struct {
	KeywordThreshold float64 `yaml:"keyword_threshold" koanf:"keyword_threshold"`
	ValueThreshold   float64 `yaml:"value_threshold" koanf:"value_threshold"`
	Currency         string  `yaml:"currency" koanf:"currency"`
	// Explain lets the generative provider rephrase verified answers.
	Explain        bool `yaml:"explain" koanf:"explain"`
	ExplainTimeout int  `yaml:"explain_timeout_seconds" koanf:"explain_timeout_seconds"`
	HistoryLimit   int  `yaml:"history_limit" koanf:"history_limit"`
	RequestsPerMin int  `yaml:"requests_per_minute" koanf:"requests_per_minute"`
}

// RetrievalConfig controls the semantic index used by the fallback strategy.
type RetrievalConfig struct {
	Enabled bool   `yaml:"enabled" koanf:"enabled"`
	Dir     string `yaml:"dir" koanf:"dir"`
	TopK    int    `yaml:"top_k" koanf:"top_k"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr        string   `yaml:"addr" koanf:"addr"`
	CORSOrigins []string `yaml:"cors_origins" koanf:"cors_origins"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
}
