package repository

import (
	"context"
	"errors"
	"fmt"

	"adventure-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var _ JobRepository = (*pgJobRepository)(nil)

type pgJobRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewPgJobRepository создает репозиторий задач поверх PostgreSQL.
func NewPgJobRepository(db DBTX, logger *zap.Logger) JobRepository {
	return &pgJobRepository{
		db:     db,
		logger: logger.Named("PgJobRepo"),
	}
}

const jobColumns = `job_id, session_id, theme, status, story_id, error, created_at, completed_at`

const createJobQuery = `
INSERT INTO story_jobs (job_id, session_id, theme, status, created_at)
VALUES ($1, $2, $3, $4, $5)`

const getJobByIDQuery = `
SELECT ` + jobColumns + `
FROM story_jobs
WHERE job_id = $1`

// Условие по текущему статусу делает переход атомарным: конкурирующий
// исполнитель получит 0 строк вместо перезаписи.
const transitionJobQuery = `
UPDATE story_jobs
SET status = $2, story_id = $3, error = $4, completed_at = $5
WHERE job_id = $1 AND status = $6
RETURNING ` + jobColumns

const getJobStatusQuery = `SELECT status FROM story_jobs WHERE job_id = $1`

func (r *pgJobRepository) Create(ctx context.Context, job *models.GenerationJob) error {
	if job.Status != models.JobStatusPending {
		return fmt.Errorf("%w: new job must be pending, got %s", models.ErrInvalidTransition, job.Status)
	}
	_, err := r.db.Exec(ctx, createJobQuery,
		job.ID,
		job.SessionID,
		job.Theme,
		job.Status,
		job.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create generation job", zap.Error(err), zap.String("job_id", job.ID.String()))
		return fmt.Errorf("ошибка создания задачи генерации: %w", err)
	}
	r.logger.Debug("Generation job created", zap.String("job_id", job.ID.String()), zap.String("session_id", job.SessionID))
	return nil
}

func (r *pgJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.GenerationJob, error) {
	job := &models.GenerationJob{}
	err := pgxscan.Get(ctx, r.db, job, getJobByIDQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrJobNotFound
		}
		r.logger.Error("Failed to get generation job", zap.Error(err), zap.String("job_id", id.String()))
		return nil, fmt.Errorf("ошибка получения задачи %s: %w", id, err)
	}
	return job, nil
}

func (r *pgJobRepository) Transition(ctx context.Context, id uuid.UUID, t models.JobTransition) (*models.GenerationJob, error) {
	logFields := []zap.Field{
		zap.String("job_id", id.String()),
		zap.String("to", string(t.To)),
	}
	if err := t.Validate(); err != nil {
		r.logger.Error("Rejected malformed job transition", append(logFields, zap.Error(err))...)
		return nil, err
	}

	var completedAt any
	if t.To.IsTerminal() {
		completedAt = t.At
	}
	var errText *string
	if t.Error != "" {
		errText = &t.Error
	}

	job := &models.GenerationJob{}
	err := pgxscan.Get(ctx, r.db, job, transitionJobQuery,
		id,
		t.To,
		t.StoryID,
		errText,
		completedAt,
		t.From(),
	)
	if err == nil {
		r.logger.Debug("Job status updated", logFields...)
		return job, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error("Failed to update job status", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("ошибка обновления статуса задачи %s: %w", id, err)
	}

	// Ни одна строка не обновилась: задачи нет либо она не в ожидаемом статусе.
	var current models.JobStatus
	if scanErr := r.db.QueryRow(ctx, getJobStatusQuery, id).Scan(&current); scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return nil, models.ErrJobNotFound
		}
		return nil, fmt.Errorf("ошибка чтения статуса задачи %s: %w", id, scanErr)
	}
	r.logger.Error("Illegal job status transition",
		append(logFields, zap.String("from", string(current)))...)
	return nil, fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, current, t.To)
}
