package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"adventure-server/internal/logger"
	"adventure-server/internal/models"
	"adventure-server/internal/provider"
	"adventure-server/internal/repository"
	"adventure-server/internal/schemas"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Причины неудачи для метрик.
const (
	reasonProvider    = "provider"
	reasonTimeout     = "timeout"
	reasonCancelled   = "cancelled"
	reasonValidation  = "validation"
	reasonPersistence = "persistence"
	reasonPanic       = "panic"
	reasonDispatch    = "dispatch"
)

// Orchestrator ведет одну задачу по протоколу pending -> processing -> completed|failed.
// Повторов на уровне задачи нет: failed окончателен.
type Orchestrator struct {
	jobs      repository.JobRepository
	provider  provider.Provider
	validator *schemas.StoryValidator
	builder   *TreeBuilder
	notifier  JobNotifier
	timeout   time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// NewOrchestrator создает оркестратор. notifier может быть nil.
func NewOrchestrator(
	jobs repository.JobRepository,
	prov provider.Provider,
	validator *schemas.StoryValidator,
	builder *TreeBuilder,
	notifier JobNotifier,
	generationTimeout time.Duration,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		jobs:      jobs,
		provider:  prov,
		validator: validator,
		builder:   builder,
		notifier:  notifier,
		timeout:   generationTimeout,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger.Named("Orchestrator"),
	}
}

// RunJob выполняет протокол для задачи jobID. Ошибки генерации записываются
// в задачу и не возвращаются. Ошибка возвращается только если не удалось
// прочитать или обновить саму запись задачи.
func (o *Orchestrator) RunJob(ctx context.Context, jobID uuid.UUID) error {
	log := o.logger.With(zap.String("job_id", jobID.String()))

	job, err := o.jobs.GetByID(ctx, jobID)
	if errors.Is(err, models.ErrJobNotFound) {
		log.Warn("Задача не найдена, пропускаем")
		return nil
	}
	if err != nil {
		return fmt.Errorf("ошибка загрузки задачи %s: %w", jobID, err)
	}
	if job.Status != models.JobStatusPending {
		log.Info("Задача уже не в статусе pending, пропускаем", zap.String("status", string(job.Status)))
		return nil
	}

	job, err = o.jobs.Transition(ctx, jobID, models.ToProcessing(o.now()))
	if errors.Is(err, models.ErrInvalidTransition) {
		log.Info("Задача захвачена другим исполнителем, пропускаем")
		return nil
	}
	if err != nil {
		return fmt.Errorf("ошибка перевода задачи %s в processing: %w", jobID, err)
	}
	o.notify(ctx, job)
	log.Info("Генерация истории начата", logger.JobFields(job)...)

	started := time.Now()
	storyID, reason, runErr := o.execute(ctx, job)

	// Итоговый статус записывается даже если ctx уже отменен (остановка процесса).
	finalCtx := context.WithoutCancel(ctx)
	if runErr != nil {
		return o.fail(finalCtx, job, reason, runErr, started)
	}
	return o.complete(finalCtx, job, storyID, started)
}

// execute шаги 3-5: вызов модели, валидация, сохранение дерева.
func (o *Orchestrator) execute(ctx context.Context, job *models.GenerationJob) (storyID uuid.UUID, reason string, err error) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Паника при генерации истории",
				zap.String("job_id", job.ID.String()),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			storyID, reason, err = uuid.Nil, reasonPanic, fmt.Errorf("internal error during generation: %v", r)
		}
	}()

	genCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	raw, err := o.provider.Generate(genCtx, job.Theme)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return uuid.Nil, reasonCancelled, fmt.Errorf("generation interrupted: %w", err)
		case errors.Is(genCtx.Err(), context.DeadlineExceeded):
			return uuid.Nil, reasonTimeout, fmt.Errorf("generation timed out after %s: %w", o.timeout, err)
		default:
			return uuid.Nil, reasonProvider, err
		}
	}

	story, err := o.validator.Validate(raw)
	if err != nil {
		o.logger.Warn("Ответ модели не прошел валидацию",
			zap.String("job_id", job.ID.String()),
			zap.Int("raw_length", len(raw)),
			zap.Error(err))
		return uuid.Nil, reasonValidation, fmt.Errorf("invalid story structure: %w", err)
	}

	tree, err := o.builder.Build(ctx, story, job.SessionID)
	if err != nil {
		return uuid.Nil, reasonPersistence, err
	}
	return tree.Story.ID, "", nil
}

func (o *Orchestrator) complete(ctx context.Context, job *models.GenerationJob, storyID uuid.UUID, started time.Time) error {
	done, err := o.jobs.Transition(ctx, job.ID, models.ToCompleted(storyID, o.now()))
	if err != nil {
		o.logger.Error("Не удалось записать успешное завершение задачи",
			zap.String("job_id", job.ID.String()),
			zap.String("story_id", storyID.String()),
			zap.Error(err))
		return o.fail(ctx, job, reasonPersistence, fmt.Errorf("failed to record completion: %w", err), started)
	}
	recordJobFinished(string(models.JobStatusCompleted), "", started)
	o.notify(ctx, done)
	o.logger.Info("Генерация истории завершена", append(logger.JobFields(done), zap.Duration("duration", time.Since(started)))...)
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, job *models.GenerationJob, reason string, cause error, started time.Time) error {
	failed, err := o.jobs.Transition(ctx, job.ID, models.ToFailed(cause.Error(), o.now()))
	if err != nil {
		o.logger.Error("Не удалось записать ошибку задачи",
			zap.String("job_id", job.ID.String()),
			zap.NamedError("cause", cause),
			zap.Error(err))
		return fmt.Errorf("ошибка перевода задачи %s в failed: %w", job.ID, err)
	}
	recordJobFinished(string(models.JobStatusFailed), reason, started)
	o.notify(ctx, failed)
	o.logger.Warn("Генерация истории завершилась ошибкой",
		append(logger.JobFields(failed), zap.String("reason", reason), zap.Error(cause))...)
	return nil
}

// FailUndispatched переводит задачу, которую не удалось передать исполнителю,
// через processing в failed, не нарушая порядок переходов.
func (o *Orchestrator) FailUndispatched(ctx context.Context, jobID uuid.UUID, cause error) (*models.GenerationJob, error) {
	started := time.Now()
	job, err := o.jobs.Transition(ctx, jobID, models.ToProcessing(o.now()))
	if err != nil {
		return nil, fmt.Errorf("ошибка перевода задачи %s в processing: %w", jobID, err)
	}
	// Подписчики должны увидеть processing до failed.
	o.notify(ctx, job)
	if err := o.fail(ctx, job, reasonDispatch, fmt.Errorf("%w: %v", models.ErrDispatchFailed, cause), started); err != nil {
		return nil, err
	}
	return o.jobs.GetByID(ctx, jobID)
}

func (o *Orchestrator) notify(ctx context.Context, job *models.GenerationJob) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.NotifyJobStatus(ctx, job.StatusUpdate()); err != nil {
		o.logger.Warn("Не удалось отправить уведомление о статусе задачи",
			zap.String("job_id", job.ID.String()), zap.Error(err))
	}
}
