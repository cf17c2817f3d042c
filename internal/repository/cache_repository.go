package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SergeiKhy/linkdash/internal/models"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

// TokenCache кэш разрешения вебхук-токенов в владельца
type TokenCache interface {
	Get(ctx context.Context, token string) (*models.WebhookToken, error)
	Set(ctx context.Context, token *models.WebhookToken, ttl time.Duration) error
	Delete(ctx context.Context, token string) error
}

type tokenCache struct {
	redis *RedisDB
}

func NewTokenCache(redis *RedisDB) TokenCache {
	return &tokenCache{redis: redis}
}

func (r *tokenCache) Get(ctx context.Context, token string) (*models.WebhookToken, error) {
	data, err := r.redis.Client.Get(ctx, r.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var wt models.WebhookToken
	if err := json.Unmarshal(data, &wt); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}

	return &wt, nil
}

func (r *tokenCache) Set(ctx context.Context, token *models.WebhookToken, ttl time.Duration) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	return r.redis.Client.Set(ctx, r.key(token.Token), data, ttl).Err()
}

func (r *tokenCache) Delete(ctx context.Context, token string) error {
	return r.redis.Client.Del(ctx, r.key(token)).Err()
}

// Сам токен в ключ не попадает
func (r *tokenCache) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "webhook_token:" + hex.EncodeToString(sum[:])
}

// LinkCache кэш ссылок для редиректа по slug
type LinkCache interface {
	Get(ctx context.Context, slug string) (*models.Link, error)
	Set(ctx context.Context, link *models.Link, ttl time.Duration) error
	Delete(ctx context.Context, slug string) error
}

type linkCache struct {
	redis *RedisDB
}

func NewLinkCache(redis *RedisDB) LinkCache {
	return &linkCache{redis: redis}
}

func (r *linkCache) Get(ctx context.Context, slug string) (*models.Link, error) {
	data, err := r.redis.Client.Get(ctx, r.key(slug)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var link models.Link
	if err := json.Unmarshal(data, &link); err != nil {
		return nil, fmt.Errorf("failed to unmarshal link: %w", err)
	}

	return &link, nil
}

func (r *linkCache) Set(ctx context.Context, link *models.Link, ttl time.Duration) error {
	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to marshal link: %w", err)
	}

	return r.redis.Client.Set(ctx, r.key(link.Slug), data, ttl).Err()
}

func (r *linkCache) Delete(ctx context.Context, slug string) error {
	return r.redis.Client.Del(ctx, r.key(slug)).Err()
}

func (r *linkCache) key(slug string) string {
	return "link:" + slug
}
