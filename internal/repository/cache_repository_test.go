package repository

import (
	"context"
	"testing"
	"time"

	"github.com/SergeiKhy/linkdash/internal/config"
	"github.com/SergeiKhy/linkdash/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// setupRedis поднимает Redis в контейнере; в -short режиме тест пропускается
func setupRedis(t *testing.T) *RedisDB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(container)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	db, err := NewRedisClient(ctx, config.RedisConfig{Host: host, Port: port.Port()})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Ping(ctx))
	return db
}

func TestCaches_Redis(t *testing.T) {
	db := setupRedis(t)
	ctx := context.Background()

	t.Run("token cache", func(t *testing.T) {
		cache := NewTokenCache(db)

		_, err := cache.Get(ctx, "whk_missing")
		assert.ErrorIs(t, err, ErrCacheMiss)

		wt := &models.WebhookToken{
			ID:        "id-1",
			UserID:    "user-a",
			Token:     "whk_abc",
			RateLimit: 7,
			CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		}
		require.NoError(t, cache.Set(ctx, wt, time.Minute))

		got, err := cache.Get(ctx, "whk_abc")
		require.NoError(t, err)
		assert.Equal(t, wt.UserID, got.UserID)
		assert.Equal(t, wt.RateLimit, got.RateLimit)
		assert.True(t, wt.CreatedAt.Equal(got.CreatedAt))

		// Токен не хранится в ключе открытым текстом
		keys, err := db.Client.Keys(ctx, "*whk_abc*").Result()
		require.NoError(t, err)
		assert.Empty(t, keys)

		require.NoError(t, cache.Delete(ctx, "whk_abc"))
		_, err = cache.Get(ctx, "whk_abc")
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("link cache", func(t *testing.T) {
		cache := NewLinkCache(db)

		_, err := cache.Get(ctx, "nope")
		assert.ErrorIs(t, err, ErrCacheMiss)

		link := &models.Link{ID: 3, UserID: "user-a", Slug: "docs", OriginalURL: "https://example.com/docs"}
		require.NoError(t, cache.Set(ctx, link, time.Minute))

		got, err := cache.Get(ctx, "docs")
		require.NoError(t, err)
		assert.Equal(t, link.OriginalURL, got.OriginalURL)
		assert.Equal(t, link.ID, got.ID)

		ttl, err := db.Client.TTL(ctx, "link:docs").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))

		require.NoError(t, cache.Delete(ctx, "docs"))
		_, err = cache.Get(ctx, "docs")
		assert.ErrorIs(t, err, ErrCacheMiss)
	})
}
