package service

import (
	"context"

	"adventure-server/internal/models"

	"github.com/google/uuid"
)

// Dispatcher передает идентификатор задачи независимому исполнителю.
// Не должен блокироваться до завершения генерации.
type Dispatcher interface {
	Dispatch(ctx context.Context, jobID uuid.UUID) error
}

// JobNotifier рассылает изменения статуса задачи подписчикам.
type JobNotifier interface {
	NotifyJobStatus(ctx context.Context, update models.JobStatusUpdate) error
}

// StoryCache кэш готовых представлений историй. Истории неизменяемы,
// поэтому инвалидация не нужна.
type StoryCache interface {
	Get(ctx context.Context, storyID uuid.UUID) (*models.CompleteStory, bool, error)
	Set(ctx context.Context, story *models.CompleteStory) error
}
