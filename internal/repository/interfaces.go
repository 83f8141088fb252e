package repository

import (
	"context"

	"adventure-server/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX общий интерфейс для *pgxpool.Pool и pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// JobRepository хранилище записей о задачах генерации.
type JobRepository interface {
	// Create сохраняет новую задачу в статусе pending.
	Create(ctx context.Context, job *models.GenerationJob) error
	// GetByID возвращает задачу или models.ErrJobNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*models.GenerationJob, error)
	// Transition атомарно меняет статус вместе с story_id/error/completed_at.
	// Недопустимый переход возвращает models.ErrInvalidTransition и ничего не меняет.
	Transition(ctx context.Context, id uuid.UUID, t models.JobTransition) (*models.GenerationJob, error)
}

// StoryRepository хранилище сгенерированных деревьев.
type StoryRepository interface {
	// CreateTree сохраняет историю и все узлы в одной транзакции.
	CreateTree(ctx context.Context, tree *models.StoryTree) error
	// GetStory возвращает запись истории или models.ErrStoryNotFound.
	GetStory(ctx context.Context, id uuid.UUID) (*models.Story, error)
	// ListNodes возвращает узлы истории в порядке создания (pre-order).
	ListNodes(ctx context.Context, storyID uuid.UUID) ([]models.StoryNode, error)
}
