package session

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/salesiq/internal/db"
	"github.com/ziadkadry99/salesiq/internal/sales"
)

func newSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewSQLStore(database)
}

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	store, _ := newMiniRedisStore(t, RedisConfig{Prefix: "test:", LockTTL: time.Minute})
	return store
}

func newMiniRedisStore(t *testing.T, cfg RedisConfig) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return newRedisStore(client, cfg), mr
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sql":    newSQLStore(t),
		"redis":  newTestRedisStore(t),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	now := time.Date(2025, time.May, 3, 10, 0, 0, 0, time.UTC)
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Get(ctx, "s1")
			assert.ErrorIs(t, err, ErrNotFound)

			c := NewContext("s1", now)
			c.LastQuestion = "most sold weave"
			c.LastAnswer = "Satin leads."
			c.LastEntity = Entity{Dimension: sales.DimAgent, Value: "Mukilan"}
			c.Repeats["most sold weave"] = 2
			require.NoError(t, store.Put(ctx, c))

			got, err := store.Get(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, "most sold weave", got.LastQuestion)
			assert.Equal(t, "Satin leads.", got.LastAnswer)
			assert.Equal(t, Entity{Dimension: sales.DimAgent, Value: "Mukilan"}, got.LastEntity)
			assert.Equal(t, 2, got.Repeats["most sold weave"])

			got.LastQuestion = "changed"
			got.Repeats["most sold weave"] = 3
			require.NoError(t, store.Put(ctx, got))

			again, err := store.Get(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, "changed", again.LastQuestion)
			assert.Equal(t, 3, again.Repeats["most sold weave"])
		})
	}
}

func TestStoreMessages(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2025, time.May, 3, 10, 0, 0, 0, time.UTC)
			for i := 0; i < 4; i++ {
				role := RoleUser
				if i%2 == 1 {
					role = RoleAssistant
				}
				require.NoError(t, store.AppendMessage(ctx, Message{
					SessionID: "s1",
					Role:      role,
					Content:   fmt.Sprintf("m%d", i),
					CreatedAt: base.Add(time.Duration(i) * time.Second),
				}))
			}

			all, err := store.Messages(ctx, "s1", 0)
			require.NoError(t, err)
			require.Len(t, all, 4)
			assert.Equal(t, "m0", all[0].Content)
			assert.NotEmpty(t, all[0].ID)

			last, err := store.Messages(ctx, "s1", 2)
			require.NoError(t, err)
			require.Len(t, last, 2)
			assert.Equal(t, "m2", last[0].Content)
			assert.Equal(t, RoleAssistant, last[1].Role)

			none, err := store.Messages(ctx, "other", 0)
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestStoreLockIsExclusive(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			unlock, err := store.Lock(ctx, "s1")
			require.NoError(t, err)

			waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
			defer cancel()
			_, err = store.Lock(waitCtx, "s1")
			assert.ErrorIs(t, err, context.DeadlineExceeded)

			other, err := store.Lock(ctx, "s2")
			require.NoError(t, err)
			other()

			unlock()
			again, err := store.Lock(ctx, "s1")
			require.NoError(t, err)
			again()
		})
	}
}

func TestRedisReleaseKeepsForeignLock(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	unlock, err := store.Lock(ctx, "s1")
	require.NoError(t, err)

	// Simulate expiry followed by another holder taking the lock.
	require.NoError(t, store.client.Set(ctx, store.lockKey("s1"), "someone-else", time.Minute).Err())
	unlock()

	val, err := store.client.Get(ctx, store.lockKey("s1")).Result()
	require.NoError(t, err)
	assert.Equal(t, "someone-else", val)
}

func TestRedisLockRenewsWhileHeld(t *testing.T) {
	store, mr := newMiniRedisStore(t, RedisConfig{Prefix: "test:", LockTTL: 300 * time.Millisecond})
	ctx := context.Background()

	unlock, err := store.Lock(ctx, "s1")
	require.NoError(t, err)
	key := store.lockKey("s1")

	// Age the lock close to expiry; the holder must push it back out.
	mr.FastForward(250 * time.Millisecond)
	assert.Eventually(t, func() bool {
		return mr.TTL(key) > 100*time.Millisecond
	}, 2*time.Second, 10*time.Millisecond)

	mr.FastForward(250 * time.Millisecond)
	assert.Eventually(t, func() bool {
		return mr.Exists(key) && mr.TTL(key) > 100*time.Millisecond
	}, 2*time.Second, 10*time.Millisecond)

	// A second holder cannot get in while the first one is still working.
	waitCtx, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer cancel()
	_, err = store.Lock(waitCtx, "s1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	assert.False(t, mr.Exists(key))
}

func TestRedisLockLogsLostAndFailedRelease(t *testing.T) {
	var buf bytes.Buffer
	store, mr := newMiniRedisStore(t, RedisConfig{
		Prefix:  "test:",
		LockTTL: 150 * time.Millisecond,
		Logger:  zerolog.New(&buf),
	})
	ctx := context.Background()

	unlock, err := store.Lock(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, mr.Set(store.lockKey("s1"), "someone-else"))
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, store.client.Close())
	unlock()

	assert.Contains(t, buf.String(), "session lock lost")
	assert.Contains(t, buf.String(), "releasing session lock")
}

func TestTrackerDo(t *testing.T) {
	now := time.Date(2025, time.May, 3, 10, 0, 0, 0, time.UTC)
	tracker := NewTracker(NewMemoryStore(), func() time.Time { return now })
	ctx := context.Background()

	err := tracker.Do(ctx, "s1", func(c *Context) error {
		assert.Empty(t, c.LastQuestion)
		c.LastQuestion = "most sold weave"
		return nil
	})
	require.NoError(t, err)

	err = tracker.Do(ctx, "s1", func(c *Context) error {
		c.LastQuestion = "discarded"
		return fmt.Errorf("boom")
	})
	require.Error(t, err)

	c, err := tracker.Store().Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "most sold weave", c.LastQuestion)
	assert.Equal(t, now, c.UpdatedAt)
}

func TestTrackerSerialisesTurns(t *testing.T) {
	for name, store := range map[string]Store{"memory": NewMemoryStore(), "sql": newSQLStore(t)} {
		t.Run(name, func(t *testing.T) {
			tracker := NewTracker(store, nil)
			ctx := context.Background()

			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					assert.NoError(t, tracker.Do(ctx, "s1", func(c *Context) error {
						c.Angle("most sold weave")
						return nil
					}))
				}()
			}
			wg.Wait()

			c, err := store.Get(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, 20, c.Repeats["most sold weave"])
		})
	}
}
