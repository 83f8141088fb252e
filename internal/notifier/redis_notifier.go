package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"adventure-server/internal/models"
	"adventure-server/internal/service"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	_ service.JobNotifier = (*RedisJobNotifier)(nil)
	_ JobWatcher          = (*RedisJobNotifier)(nil)
)

const channelPrefix = "job_status:"

func jobChannel(id uuid.UUID) string {
	return channelPrefix + id.String()
}

// RedisJobNotifier рассылает обновления статуса через Redis pub/sub,
// так что воркер в другом процессе доставляет их WebSocket-клиентам сервера.
type RedisJobNotifier struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisJobNotifier создает нотификатор.
func NewRedisJobNotifier(client *redis.Client, logger *zap.Logger) *RedisJobNotifier {
	return &RedisJobNotifier{client: client, logger: logger.Named("RedisJobNotifier")}
}

// NotifyJobStatus публикует обновление в канал задачи.
func (n *RedisJobNotifier) NotifyJobStatus(ctx context.Context, update models.JobStatusUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal job status update: %w", err)
	}
	if err := n.client.Publish(ctx, jobChannel(update.JobID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish job status update: %w", err)
	}
	return nil
}

// Watch подписывается на канал задачи.
func (n *RedisJobNotifier) Watch(ctx context.Context, jobID uuid.UUID) (<-chan models.JobStatusUpdate, error) {
	sub := n.client.Subscribe(ctx, jobChannel(jobID))
	// Receive дожидается подтверждения подписки.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to job %s: %w", jobID, err)
	}

	out := make(chan models.JobStatusUpdate, 4)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var update models.JobStatusUpdate
				if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
					n.logger.Warn("Invalid job status payload", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				select {
				case out <- update:
				case <-ctx.Done():
					return
				}
				if update.Status.IsTerminal() {
					return
				}
			}
		}
	}()
	return out, nil
}
