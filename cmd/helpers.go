package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/ziadkadry99/salesiq/internal/aggregate"
	"github.com/ziadkadry99/salesiq/internal/audit"
	"github.com/ziadkadry99/salesiq/internal/config"
	"github.com/ziadkadry99/salesiq/internal/datasource"
	"github.com/ziadkadry99/salesiq/internal/db"
	"github.com/ziadkadry99/salesiq/internal/embeddings"
	"github.com/ziadkadry99/salesiq/internal/explain"
	"github.com/ziadkadry99/salesiq/internal/intent"
	"github.com/ziadkadry99/salesiq/internal/llm"
	"github.com/ziadkadry99/salesiq/internal/logging"
	"github.com/ziadkadry99/salesiq/internal/query"
	"github.com/ziadkadry99/salesiq/internal/resolver"
	"github.com/ziadkadry99/salesiq/internal/retrieval"
	"github.com/ziadkadry99/salesiq/internal/session"
)

// app holds the components every command wires from the config.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	db       *db.DB
	data     *datasource.Provider
	sessions session.Store
	audit    *audit.Store
	index    *retrieval.Index
	engine   *query.Engine

	closers []func() error
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `salesiq init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// newLogger builds the process logger. It always writes to stderr so stdout
// stays free for answers and the MCP protocol.
func newLogger(cfg *config.Config) zerolog.Logger {
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	return logging.New(logging.Config{Level: level, Format: cfg.Log.Format, Output: os.Stderr})
}

// newApp wires storage, the data provider, optional generative components
// and the query engine. Callers must call close.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: newLogger(cfg)}
	if err := a.wire(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg := a.cfg

	// Audit entries, index state and the sqlite session store share one
	// database. The memory store keeps even that in memory.
	var err error
	if cfg.Store == config.StoreMemory {
		a.db, err = db.OpenMemory()
	} else {
		a.db, err = db.Open(cfg.Database)
	}
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	a.closers = append(a.closers, a.db.Close)
	a.audit = audit.NewStore(a.db)

	var cache datasource.Cache = datasource.NewSQLCache(a.db)
	switch cfg.Store {
	case config.StoreMemory:
		a.sessions = session.NewMemoryStore()
	case config.StoreSQLite:
		a.sessions = session.NewSQLStore(a.db)
	case config.StoreRedis:
		rs, err := session.NewRedisStore(session.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.SessionTTL(),
			LockTTL:  cfg.LockTTL(),
			Logger:   a.logger,
		})
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		a.closers = append(a.closers, rs.Close)
		a.sessions = rs
		cache = datasource.NewRedisCache(rs.Client(), cfg.Redis.Prefix, 0)
	}

	var source datasource.Source
	if cfg.DataSource.URL != "" {
		source = datasource.NewHTTPSource(cfg.DataSource.URL, cfg.FetchTimeout())
	} else {
		source = datasource.NewFileSource(cfg.DataSource.Files)
	}
	a.data = datasource.NewProvider(source, cache, datasource.ProviderConfig{
		Timeout: cfg.FetchTimeout(),
		MaxAge:  cfg.MaxAge(),
	}, a.logger)

	explainer, err := a.explainer(ctx)
	if err != nil {
		return err
	}
	if err := a.openIndex(ctx); err != nil {
		return err
	}

	a.engine = query.New(query.Options{
		Data:    a.data,
		Tracker: session.NewTracker(a.sessions, nil),
		Classifier: intent.NewClassifier(resolver.New(
			resolver.WithKeywordThreshold(cfg.Engine.KeywordThreshold),
			resolver.WithValueThreshold(cfg.Engine.ValueThreshold),
		)),
		Formatter: aggregate.NewFormatter(cfg.Engine.Currency),
		Explainer: explainer,
		Rephrase:  cfg.Engine.Explain,
		Index:     a.index,
		TopK:      cfg.Retrieval.TopK,
		Audit:     a.audit,
		Logger:    a.logger,
	})
	return nil
}

// explainer returns nil when no provider is configured. A provider that
// fails to start is only fatal when rephrasing was asked for.
func (a *app) explainer(ctx context.Context) (*explain.Explainer, error) {
	provider, err := llm.NewProvider(ctx, a.cfg)
	if errors.Is(err, llm.ErrNoProvider) {
		return nil, nil
	}
	if err != nil {
		if a.cfg.Engine.Explain {
			return nil, fmt.Errorf("creating LLM provider: %w", err)
		}
		a.logger.Warn().Err(err).Msg("llm provider unavailable, answers stay deterministic")
		return nil, nil
	}
	if c, ok := provider.(interface{ Close() error }); ok {
		a.closers = append(a.closers, c.Close)
	}

	model := a.cfg.Model
	if model == "" {
		model = config.GetPreset(a.cfg.Provider, a.cfg.Quality).Model
	}
	return explain.New(provider, model, a.cfg.ExplainTimeout(), a.logger), nil
}

func (a *app) openIndex(ctx context.Context) error {
	if !a.cfg.Retrieval.Enabled {
		return nil
	}
	embedder, err := embeddings.NewEmbedder(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	a.index, err = retrieval.NewIndex(embedder, a.cfg.Retrieval.Dir, a.db, a.logger)
	if err != nil {
		return fmt.Errorf("creating retrieval index: %w", err)
	}
	if err := a.index.Load(); err != nil {
		a.logger.Warn().Err(err).Str("dir", a.cfg.Retrieval.Dir).Msg("could not load retrieval index, run `salesiq index`")
	}
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn().Err(err).Msg("close")
		}
	}
}
