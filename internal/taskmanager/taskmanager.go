package taskmanager

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	// ErrQueueFull очередь заполнена, задача не принята.
	ErrQueueFull = errors.New("очередь задач заполнена")
	// ErrClosed менеджер остановлен и не принимает задачи.
	ErrClosed = errors.New("менеджер задач остановлен")
	// ErrTaskNotFound задача не найдена.
	ErrTaskNotFound = errors.New("задача не найдена")
)

var (
	queueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "taskmanager_queue_length",
		Help: "Number of tasks waiting for a free worker.",
	})
	tasksInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "taskmanager_tasks_in_flight",
		Help: "Number of tasks currently executed by workers.",
	})
)

// TaskStatus статус задачи в менеджере.
type TaskStatus string

const (
	TaskStatusQueued    TaskStatus = "queued"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// TaskFunc функция, выполняемая воркером.
type TaskFunc func(ctx context.Context) error

// Task информация о задаче.
type Task struct {
	ID        uuid.UUID
	Status    TaskStatus
	Message   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Config содержит конфигурацию для TaskManager
type Config struct {
	Workers   int
	QueueSize int
}

type queuedTask struct {
	task *Task
	fn   TaskFunc
}

// TaskManager выполняет задачи фиксированным пулом воркеров из ограниченной очереди.
type TaskManager struct {
	queue     chan queuedTask
	tasks     map[uuid.UUID]*Task
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	baseCtx   context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	logger    *zap.Logger
}

// New создает менеджер и запускает воркеры.
func New(cfg Config, logger *zap.Logger) *TaskManager {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 10
	}

	ctx, cancel := context.WithCancel(context.Background())
	tm := &TaskManager{
		queue:   make(chan queuedTask, cfg.QueueSize),
		tasks:   make(map[uuid.UUID]*Task),
		baseCtx: ctx,
		cancel:  cancel,
		logger:  logger.Named("TaskManager"),
	}

	tm.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go tm.worker()
	}
	tm.logger.Info("Task manager started", zap.Int("workers", cfg.Workers), zap.Int("queue_size", cfg.QueueSize))
	return tm
}

// Submit ставит задачу в очередь. Не блокируется: при заполненной очереди
// возвращает ErrQueueFull, после Shutdown возвращает ErrClosed.
func (tm *TaskManager) Submit(id uuid.UUID, fn TaskFunc) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.closed {
		return ErrClosed
	}
	if existing, ok := tm.tasks[id]; ok && (existing.Status == TaskStatusQueued || existing.Status == TaskStatusRunning) {
		return fmt.Errorf("задача %s уже в работе", id)
	}

	now := time.Now()
	task := &Task{ID: id, Status: TaskStatusQueued, CreatedAt: now, UpdatedAt: now}
	select {
	case tm.queue <- queuedTask{task: task, fn: fn}:
		tm.tasks[id] = task
		queueLength.Inc()
		return nil
	default:
		return ErrQueueFull
	}
}

func (tm *TaskManager) worker() {
	defer tm.wg.Done()
	for qt := range tm.queue {
		queueLength.Dec()
		tm.runTask(qt)
	}
}

// runTask выполняет задачу и обновляет ее статус
func (tm *TaskManager) runTask(qt queuedTask) {
	tasksInFlight.Inc()
	defer tasksInFlight.Dec()

	log := tm.logger.With(zap.String("task_id", qt.task.ID.String()))
	tm.updateTaskStatus(qt.task, TaskStatusRunning, "")

	err := tm.call(qt)

	switch {
	case err != nil && tm.baseCtx.Err() != nil:
		log.Warn("Задача прервана остановкой менеджера", zap.Error(err))
		tm.updateTaskStatus(qt.task, TaskStatusCancelled, err.Error())
	case err != nil:
		log.Error("Задача завершилась с ошибкой", zap.Error(err))
		tm.updateTaskStatus(qt.task, TaskStatusFailed, err.Error())
	default:
		log.Debug("Задача успешно выполнена")
		tm.updateTaskStatus(qt.task, TaskStatusCompleted, "")
	}
}

func (tm *TaskManager) call(qt queuedTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			tm.logger.Error("Паника в задаче",
				zap.String("task_id", qt.task.ID.String()),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return qt.fn(tm.baseCtx)
}

func (tm *TaskManager) updateTaskStatus(task *Task, status TaskStatus, message string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	task.Status = status
	task.Message = message
	task.UpdatedAt = time.Now()
}

// GetTask возвращает копию информации о задаче.
func (tm *TaskManager) GetTask(id uuid.UUID) (Task, error) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	task, ok := tm.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return *task, nil
}

// CleanupTasks удаляет завершенные задачи, которые старше указанного времени
func (tm *TaskManager) CleanupTasks(age time.Duration) int {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	removed := 0
	now := time.Now()
	for id, task := range tm.tasks {
		finished := task.Status == TaskStatusCompleted || task.Status == TaskStatusFailed || task.Status == TaskStatusCancelled
		if finished && now.Sub(task.UpdatedAt) > age {
			delete(tm.tasks, id)
			removed++
		}
	}
	return removed
}

// Shutdown перестает принимать задачи и ждет, пока воркеры разберут очередь.
// Если ctx истек раньше, контекст выполняющихся задач отменяется.
func (tm *TaskManager) Shutdown(ctx context.Context) error {
	tm.closeOnce.Do(func() {
		tm.mu.Lock()
		tm.closed = true
		close(tm.queue)
		tm.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		tm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		tm.cancel()
		tm.logger.Info("Task manager stopped")
		return nil
	case <-ctx.Done():
		tm.cancel()
		<-done
		return errors.New("таймаут при ожидании завершения задач")
	}
}
