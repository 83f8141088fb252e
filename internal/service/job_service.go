package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"adventure-server/internal/models"
	"adventure-server/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxThemeLength ограничение длины темы в символах.
const MaxThemeLength = 200

// JobService точка входа для запросов: создание задачи и чтение ее статуса.
type JobService struct {
	jobs         repository.JobRepository
	dispatcher   Dispatcher
	orchestrator *Orchestrator
	now          func() time.Time
	logger       *zap.Logger
}

// NewJobService создает сервис задач.
func NewJobService(jobs repository.JobRepository, dispatcher Dispatcher, orchestrator *Orchestrator, logger *zap.Logger) *JobService {
	return &JobService{
		jobs:         jobs,
		dispatcher:   dispatcher,
		orchestrator: orchestrator,
		now:          func() time.Time { return time.Now().UTC() },
		logger:       logger.Named("JobService"),
	}
}

// CreateJob сохраняет задачу в статусе pending и передает ее исполнителю,
// не дожидаясь генерации. Если передать не удалось, задача сразу становится failed.
func (s *JobService) CreateJob(ctx context.Context, theme, sessionID string) (*models.GenerationJob, error) {
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return nil, fmt.Errorf("%w: theme is required", models.ErrInvalidInput)
	}
	if utf8.RuneCountInString(theme) > MaxThemeLength {
		return nil, fmt.Errorf("%w: theme must be at most %d characters", models.ErrInvalidInput, MaxThemeLength)
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id is required", models.ErrInvalidInput)
	}

	job := models.NewGenerationJob(sessionID, theme, s.now())
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("ошибка создания задачи генерации: %w", err)
	}
	jobsCreatedTotal.Inc()

	if err := s.dispatcher.Dispatch(ctx, job.ID); err != nil {
		s.logger.Error("Не удалось передать задачу исполнителю",
			zap.String("job_id", job.ID.String()), zap.Error(err))
		failed, failErr := s.orchestrator.FailUndispatched(context.WithoutCancel(ctx), job.ID, err)
		if failErr != nil {
			return nil, fmt.Errorf("ошибка обработки неотправленной задачи: %w", failErr)
		}
		return failed, nil
	}

	s.logger.Info("Задача генерации создана",
		zap.String("job_id", job.ID.String()),
		zap.String("session_id", sessionID))
	return job, nil
}

// GetJobStatus возвращает текущее состояние задачи или models.ErrJobNotFound.
func (s *JobService) GetJobStatus(ctx context.Context, jobID uuid.UUID) (*models.GenerationJob, error) {
	return s.jobs.GetByID(ctx, jobID)
}
