package repository

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/SergeiKhy/linkdash/internal/config"
	"github.com/redis/go-redis/v9"
)

const redisDialTimeout = 5 * time.Second

// RedisDB общее подключение для кэшей токенов и ссылок
type RedisDB struct {
	Client *redis.Client
}

func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*RedisDB, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     20,
		MinIdleConns: 2,
		DialTimeout:  redisDialTimeout,
	})

	ctx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()

	db := &RedisDB{Client: client}
	if err := db.Ping(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return db, nil
}

// Ping используется и при старте, и в health check
func (db *RedisDB) Ping(ctx context.Context) error {
	if err := db.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return nil
}

func (db *RedisDB) Close() error {
	return db.Client.Close()
}
