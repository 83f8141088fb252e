package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"adventure-server/internal/models"
	"adventure-server/internal/service"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ service.StoryCache = (*RedisStoryCache)(nil)

const storyKeyPrefix = "story:complete:"

// RedisStoryCache хранит готовые представления историй в Redis.
type RedisStoryCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStoryCache создает кэш. ttl <= 0 означает хранение без срока.
func NewRedisStoryCache(client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *RedisStoryCache {
	return &RedisStoryCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("RedisStoryCache"),
	}
}

func storyKey(id uuid.UUID) string {
	return storyKeyPrefix + id.String()
}

// Get возвращает историю и true, если она есть в кэше.
func (c *RedisStoryCache) Get(ctx context.Context, storyID uuid.UUID) (*models.CompleteStory, bool, error) {
	data, err := c.client.Get(ctx, storyKey(storyID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read story %s from redis: %w", storyID, err)
	}

	var story models.CompleteStory
	if err := json.Unmarshal(data, &story); err != nil {
		// Битую запись удаляем, чтобы следующее чтение пошло в хранилище.
		c.logger.Warn("Corrupted cache entry, dropping", zap.String("story_id", storyID.String()), zap.Error(err))
		_ = c.client.Del(ctx, storyKey(storyID)).Err()
		return nil, false, nil
	}
	return &story, true, nil
}

// Set сохраняет историю.
func (c *RedisStoryCache) Set(ctx context.Context, story *models.CompleteStory) error {
	data, err := json.Marshal(story)
	if err != nil {
		return fmt.Errorf("failed to marshal story %s: %w", story.ID, err)
	}
	if err := c.client.Set(ctx, storyKey(story.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write story %s to redis: %w", story.ID, err)
	}
	c.logger.Debug("Story cached", zap.String("story_id", story.ID.String()), zap.Duration("ttl", c.ttl))
	return nil
}
