package taskmanager

import (
	"context"

	"github.com/google/uuid"
)

// JobRunner выполняет задачу генерации по ее id.
type JobRunner interface {
	RunJob(ctx context.Context, jobID uuid.UUID) error
}

// Dispatcher передает задачи генерации воркерам внутри процесса.
type Dispatcher struct {
	tm     *TaskManager
	runner JobRunner
}

// NewDispatcher создает диспетчер поверх менеджера задач.
func NewDispatcher(tm *TaskManager, runner JobRunner) *Dispatcher {
	return &Dispatcher{tm: tm, runner: runner}
}

// Dispatch ставит задачу в очередь и сразу возвращается.
func (d *Dispatcher) Dispatch(_ context.Context, jobID uuid.UUID) error {
	return d.tm.Submit(jobID, func(ctx context.Context) error {
		return d.runner.RunJob(ctx, jobID)
	})
}
