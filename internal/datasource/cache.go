package datasource

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ziadkadry99/salesiq/internal/db"
	"github.com/ziadkadry99/salesiq/internal/sales"
)

// ErrCacheMiss is returned when no snapshot is stored under a key.
var ErrCacheMiss = errors.New("cache miss")

// Cache persists the last good snapshot so a restart can still answer when
// the live source is down.
type Cache interface {
	Load(ctx context.Context, key string) (*sales.Snapshot, error)
	Save(ctx context.Context, key string, snap *sales.Snapshot) error
}

// SQLCache stores snapshots in the snapshots table.
type SQLCache struct {
	db *db.DB
}

// NewSQLCache creates a snapshot cache backed by database.
func NewSQLCache(database *db.DB) *SQLCache {
	return &SQLCache{db: database}
}

func (c *SQLCache) Load(ctx context.Context, key string) (*sales.Snapshot, error) {
	var payload, source string
	var fetchedAt time.Time
	err := c.db.QueryRowContext(ctx,
		`SELECT source, payload, fetched_at FROM snapshots WHERE key = ?`, key,
	).Scan(&source, &payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}

	var records []sales.Record
	if err := json.Unmarshal([]byte(payload), &records); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &sales.Snapshot{Records: records, FetchedAt: fetchedAt, Source: source}, nil
}

func (c *SQLCache) Save(ctx context.Context, key string, snap *sales.Snapshot) error {
	payload, err := json.Marshal(snap.Records)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO snapshots (key, source, payload, record_count, fetched_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   source = excluded.source,
		   payload = excluded.payload,
		   record_count = excluded.record_count,
		   fetched_at = excluded.fetched_at`,
		key, snap.Source, string(payload), len(snap.Records), snap.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// RedisCache stores snapshots as JSON values under a key prefix.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache wraps an existing client. A zero ttl keeps snapshots until
// they are overwritten.
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "salesiq:"
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) key(k string) string { return c.prefix + "snapshot:" + k }

func (c *RedisCache) Load(ctx context.Context, key string) (*sales.Snapshot, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var snap sales.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	snap.Stale = false
	return &snap, nil
}

func (c *RedisCache) Save(ctx context.Context, key string, snap *sales.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := c.client.Set(ctx, c.key(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
