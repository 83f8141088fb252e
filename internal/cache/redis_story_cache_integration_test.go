//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"adventure-server/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

type RedisCacheSuite struct {
	suite.Suite
	container *tcredis.RedisContainer
	client    *redis.Client
}

func (s *RedisCacheSuite) SetupSuite() {
	ctx := context.Background()
	container, err := tcredis.Run(ctx,
		"docker.io/redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("* Ready to accept connections").WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(s.T(), err)
	s.container = container

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(s.T(), err)
	s.client, err = ConnectRedis(ctx, RedisConfig{Addr: endpoint, MaxRetries: 5, RetryDelay: time.Second}, zap.NewNop())
	require.NoError(s.T(), err)
}

func (s *RedisCacheSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.container != nil {
		_ = testcontainers.TerminateContainer(s.container)
	}
}

func (s *RedisCacheSuite) TestSetThenGet() {
	ctx := context.Background()
	c := NewRedisStoryCache(s.client, time.Minute, zap.NewNop())
	rootID := uuid.New()
	story := &models.CompleteStory{
		ID:        uuid.New(),
		Title:     "Лес",
		SessionID: "s",
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		RootNode:  models.StoryNode{ID: rootID, Content: "Тропа", IsRoot: true, IsEnding: true, Options: []models.StoryOption{}},
	}
	story.AllNodes = map[uuid.UUID]models.StoryNode{rootID: story.RootNode}

	_, ok, err := c.Get(ctx, story.ID)
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(c.Set(ctx, story))

	got, ok, err := c.Get(ctx, story.ID)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal(story.Title, got.Title)
	s.Equal(story.RootNode.ID, got.RootNode.ID)
	s.Len(got.AllNodes, 1)

	ttl, err := s.client.TTL(ctx, storyKey(story.ID)).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
}

func (s *RedisCacheSuite) TestCorruptedEntryIsMiss() {
	ctx := context.Background()
	c := NewRedisStoryCache(s.client, time.Minute, zap.NewNop())
	id := uuid.New()
	s.Require().NoError(s.client.Set(ctx, storyKey(id), "{broken", time.Minute).Err())

	_, ok, err := c.Get(ctx, id)

	s.NoError(err)
	s.False(ok)
	s.EqualValues(0, s.client.Exists(ctx, storyKey(id)).Val())
}

func TestRedisCacheSuite(t *testing.T) {
	suite.Run(t, new(RedisCacheSuite))
}
