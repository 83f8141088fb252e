package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PoolConfig параметры пула соединений.
type PoolConfig struct {
	DSN         string
	MaxConns    int
	IdleTimeout time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
}

// Connect создает пул и ждет доступности PostgreSQL, повторяя попытки.
func Connect(ctx context.Context, cfg PoolConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.IdleTimeout > 0 {
		poolConfig.MaxConnIdleTime = cfg.IdleTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	logger.Info("Подключение к PostgreSQL",
		zap.Int("max_retries", maxRetries),
		zap.Duration("retry_delay", cfg.RetryDelay))

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		pool, err := tryConnect(ctx, poolConfig)
		if err == nil {
			logger.Info("Подключение к PostgreSQL установлено", zap.Int("attempt", attempt))
			return pool, nil
		}
		lastErr = err
		logger.Warn("Не удалось подключиться к PostgreSQL",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Error(err))

		if attempt == maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(cfg.RetryDelay):
		}
	}
	return nil, fmt.Errorf("не удалось подключиться к базе данных после %d попыток: %w", maxRetries, lastErr)
}

func tryConnect(ctx context.Context, poolConfig *pgxpool.Config) (*pgxpool.Pool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(attemptCtx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(attemptCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
