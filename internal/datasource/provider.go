package datasource

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ziadkadry99/salesiq/internal/sales"
)

// ProviderConfig tunes a Provider.
type ProviderConfig struct {
	// Timeout bounds each live fetch.
	Timeout time.Duration
	// MaxAge lets a recent snapshot answer without refetching. Zero fetches
	// for every request.
	MaxAge time.Duration
	// CacheKey names the persisted snapshot. Defaults to the source name.
	CacheKey string
}

// Provider hands out immutable snapshots. Concurrent requests share one
// in-flight fetch; failed fetches fall back to the last good snapshot, first
// from memory and then from the persistent cache.
type Provider struct {
	source Source
	cache  Cache
	cfg    ProviderConfig
	logger zerolog.Logger
	now    func() time.Time

	group singleflight.Group
	mu    sync.RWMutex
	last  *sales.Snapshot
}

// NewProvider creates a provider. cache may be nil.
func NewProvider(source Source, cache Cache, cfg ProviderConfig, logger zerolog.Logger) *Provider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.CacheKey == "" {
		cfg.CacheKey = source.Name()
	}
	return &Provider{
		source: source,
		cache:  cache,
		cfg:    cfg,
		logger: logger.With().Str("component", "datasource").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Snapshot returns the freshest available snapshot. It fails with
// ErrDataUnavailable only when neither a live fetch nor a fallback works.
func (p *Provider) Snapshot(ctx context.Context) (*sales.Snapshot, error) {
	if snap := p.recent(); snap != nil {
		return snap, nil
	}

	v, err, shared := p.group.Do("snapshot", func() (any, error) {
		return p.fetch(ctx)
	})
	if err == nil {
		if shared {
			p.logger.Debug().Msg("shared in-flight fetch")
		}
		return v.(*sales.Snapshot), nil
	}

	p.logger.Warn().Err(err).Str("source", p.source.Name()).Msg("live fetch failed, trying fallback")
	if snap := p.fallback(ctx); snap != nil {
		return snap, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
}

// Refresh forces a live fetch.
func (p *Provider) Refresh(ctx context.Context) (*sales.Snapshot, error) {
	v, err, _ := p.group.Do("snapshot", func() (any, error) {
		return p.fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*sales.Snapshot), nil
}

func (p *Provider) recent() *sales.Snapshot {
	if p.cfg.MaxAge <= 0 {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last != nil && p.now().Sub(p.last.FetchedAt) < p.cfg.MaxAge {
		return p.last
	}
	return nil
}

func (p *Provider) fetch(ctx context.Context) (*sales.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	start := p.now()
	records, err := p.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	snap := &sales.Snapshot{Records: records, FetchedAt: p.now(), Source: p.source.Name()}

	p.mu.Lock()
	p.last = snap
	p.mu.Unlock()

	p.logger.Info().
		Int("records", len(records)).
		Dur("took", p.now().Sub(start)).
		Msg("fetched snapshot")

	if p.cache != nil {
		// The caller's deadline must not cancel the write-behind.
		sctx, scancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer scancel()
		if err := p.cache.Save(sctx, p.cfg.CacheKey, snap); err != nil {
			p.logger.Warn().Err(err).Msg("failed to persist snapshot")
		}
	}
	return snap, nil
}

func (p *Provider) fallback(ctx context.Context) *sales.Snapshot {
	p.mu.RLock()
	last := p.last
	p.mu.RUnlock()
	if last != nil {
		return stale(last)
	}
	if p.cache == nil {
		return nil
	}

	snap, err := p.cache.Load(ctx, p.cfg.CacheKey)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			p.logger.Warn().Err(err).Msg("failed to load cached snapshot")
		}
		return nil
	}
	return stale(snap)
}

func stale(s *sales.Snapshot) *sales.Snapshot {
	cp := *s
	cp.Stale = true
	return &cp
}
