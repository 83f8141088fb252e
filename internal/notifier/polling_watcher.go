package notifier

import (
	"context"
	"time"

	"adventure-server/internal/models"
	"adventure-server/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var _ JobWatcher = (*PollingWatcher)(nil)

// PollingWatcher опрашивает хранилище задач. Используется, когда Redis не настроен.
type PollingWatcher struct {
	jobs     repository.JobRepository
	interval time.Duration
	logger   *zap.Logger
}

// NewPollingWatcher создает наблюдателя с интервалом опроса interval.
func NewPollingWatcher(jobs repository.JobRepository, interval time.Duration, logger *zap.Logger) *PollingWatcher {
	if interval <= 0 {
		interval = time.Second
	}
	return &PollingWatcher{jobs: jobs, interval: interval, logger: logger.Named("PollingWatcher")}
}

// Watch отдает обновление при каждой смене статуса.
func (w *PollingWatcher) Watch(ctx context.Context, jobID uuid.UUID) (<-chan models.JobStatusUpdate, error) {
	out := make(chan models.JobStatusUpdate, 4)
	go func() {
		defer close(out)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		var last models.JobStatus
		for {
			job, err := w.jobs.GetByID(ctx, jobID)
			if err != nil {
				if ctx.Err() == nil {
					w.logger.Warn("Failed to poll job", zap.String("job_id", jobID.String()), zap.Error(err))
				}
				return
			}
			if job.Status != last {
				last = job.Status
				select {
				case out <- job.StatusUpdate():
				case <-ctx.Done():
					return
				}
			}
			if job.Status.IsTerminal() {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return out, nil
}
