//go:build integration

package notifier

import (
	"context"
	"testing"
	"time"

	"adventure-server/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

func TestRedisJobNotifier_PublishAndWatch(t *testing.T) {
	ctx := context.Background()
	container, err := tcredis.Run(ctx,
		"docker.io/redis:7-alpine",
		testcontainers.WithWaitStrategy(wait.ForLog("* Ready to accept connections").WithStartupTimeout(time.Minute)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })

	n := NewRedisJobNotifier(client, zap.NewNop())
	jobID := uuid.New()

	watchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	updates, err := n.Watch(watchCtx, jobID)
	require.NoError(t, err)

	storyID := uuid.New()
	require.NoError(t, n.NotifyJobStatus(ctx, models.JobStatusUpdate{JobID: jobID, Status: models.JobStatusProcessing}))
	require.NoError(t, n.NotifyJobStatus(ctx, models.JobStatusUpdate{JobID: jobID, Status: models.JobStatusCompleted, StoryID: &storyID}))

	var got []models.JobStatusUpdate
	for u := range updates {
		got = append(got, u)
	}
	require.Len(t, got, 2)
	assert.Equal(t, models.JobStatusProcessing, got[0].Status)
	assert.Equal(t, models.JobStatusCompleted, got[1].Status)
	require.NotNil(t, got[1].StoryID)
	assert.Equal(t, storyID, *got[1].StoryID)
}
