package notifier

import (
	"context"

	"adventure-server/internal/models"

	"github.com/google/uuid"
)

// JobWatcher подписка на изменения статуса одной задачи. Канал закрывается
// после терминального статуса или отмены ctx.
type JobWatcher interface {
	Watch(ctx context.Context, jobID uuid.UUID) (<-chan models.JobStatusUpdate, error)
}
