// Package app собирает общие для сервера и воркера зависимости.
package app

import (
	"context"
	"fmt"

	"adventure-server/internal/cache"
	"adventure-server/internal/config"
	"adventure-server/internal/database"
	"adventure-server/internal/notifier"
	"adventure-server/internal/provider"
	"adventure-server/internal/repository"
	"adventure-server/internal/schemas"
	"adventure-server/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Storage репозитории выбранного драйвера.
type Storage struct {
	Jobs    repository.JobRepository
	Stories repository.StoryRepository
	Pool    *pgxpool.Pool // nil для memory
}

// OpenStorage подключается к PostgreSQL и применяет миграции либо создает
// хранилище в памяти.
func OpenStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Storage, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		logger.Warn("Using in-memory storage, data is lost on restart")
		store := repository.NewMemoryStore()
		return &Storage{Jobs: store, Stories: store}, nil
	}

	pool, err := database.Connect(ctx, database.PoolConfig{
		DSN:         cfg.GetDSN(),
		MaxConns:    cfg.DBMaxConns,
		IdleTimeout: cfg.DBIdleTimeout,
		MaxRetries:  cfg.DBMaxRetries,
		RetryDelay:  cfg.DBRetryDelay,
	}, logger)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(pool, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка применения миграций: %w", err)
	}

	return &Storage{
		Jobs:    repository.NewPgJobRepository(pool, logger),
		Stories: repository.NewPgStoryRepository(pool, repository.NewTransactionHelper(pool, logger), logger),
		Pool:    pool,
	}, nil
}

// Close освобождает соединения.
func (s *Storage) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// OpenRedis подключается к Redis, если адрес задан. Без адреса возвращает nil.
func OpenRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		logger.Info("REDIS_ADDR not set, story cache and pub/sub notifications disabled")
		return nil, nil
	}
	return cache.ConnectRedis(ctx, cache.RedisConfig{
		Addr:       cfg.RedisAddr,
		Password:   cfg.RedisPassword,
		DB:         cfg.RedisDB,
		MaxRetries: 10,
		RetryDelay: cfg.DBRetryDelay,
	}, logger)
}

// NewOrchestrator собирает провайдера, валидатор и построитель деревьев.
// redisClient может быть nil, тогда уведомления о статусе не рассылаются.
func NewOrchestrator(cfg *config.Config, storage *Storage, redisClient *redis.Client, logger *zap.Logger) (*service.Orchestrator, error) {
	prov, err := provider.New(provider.Config{
		Kind:           cfg.AIProvider,
		BaseURL:        cfg.AIBaseURL,
		APIKey:         cfg.AIAPIKey,
		Model:          cfg.AIModel,
		Temperature:    cfg.AITemperature,
		Timeout:        cfg.AITimeout,
		MaxAttempts:    cfg.AIMaxAttempts,
		BaseRetryDelay: cfg.AIBaseRetryDelay,
	}, logger)
	if err != nil {
		return nil, err
	}

	var jobNotifier service.JobNotifier
	if redisClient != nil {
		jobNotifier = notifier.NewRedisJobNotifier(redisClient, logger)
	}

	validator := schemas.NewStoryValidator(schemas.Limits{MaxDepth: cfg.MaxTreeDepth, MaxNodes: cfg.MaxTreeNodes})
	builder := service.NewTreeBuilder(storage.Stories, logger)
	return service.NewOrchestrator(storage.Jobs, prov, validator, builder, jobNotifier, cfg.GenerationTimeout, logger), nil
}
