package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig параметры подключения к Redis.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	MaxRetries int
	RetryDelay time.Duration
}

// ConnectRedis создает клиент и ждет, пока Redis ответит на PING.
func ConnectRedis(ctx context.Context, cfg RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	logger.Info("Redis connection options configured", zap.String("address", cfg.Addr), zap.Int("db", cfg.DB))

	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		lastErr = client.Ping(pingCtx).Err()
		cancel()
		if lastErr == nil {
			return client, nil
		}
		logger.Warn("Redis ping failed", zap.Int("attempt", attempt), zap.Error(lastErr))
		if attempt == cfg.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			_ = client.Close()
			return nil, ctx.Err()
		case <-time.After(cfg.RetryDelay):
		}
	}
	_ = client.Close()
	return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, lastErr)
}
