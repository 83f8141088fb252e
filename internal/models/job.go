package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JobStatus статус задачи генерации.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal возвращает true для completed и failed.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo реализует единственно допустимые переходы:
// pending -> processing, processing -> completed, processing -> failed.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusPending:
		return next == JobStatusProcessing
	case JobStatusProcessing:
		return next == JobStatusCompleted || next == JobStatusFailed
	default:
		return false
	}
}

// GenerationJob отслеживает один асинхронный запрос на генерацию истории.
type GenerationJob struct {
	ID          uuid.UUID  `json:"job_id" db:"job_id"`
	SessionID   string     `json:"session_id" db:"session_id"`
	Theme       string     `json:"theme" db:"theme"`
	Status      JobStatus  `json:"status" db:"status"`
	StoryID     *uuid.UUID `json:"story_id,omitempty" db:"story_id"`
	Error       *string    `json:"error,omitempty" db:"error"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// NewGenerationJob создает задачу в статусе pending.
func NewGenerationJob(sessionID, theme string, now time.Time) *GenerationJob {
	return &GenerationJob{
		ID:        uuid.New(),
		SessionID: sessionID,
		Theme:     theme,
		Status:    JobStatusPending,
		CreatedAt: now,
	}
}

// JobTransition описывает одно изменение статуса задачи вместе с сопутствующими полями.
// StoryID допустим только для completed, Error только для failed.
type JobTransition struct {
	To      JobStatus
	StoryID *uuid.UUID
	Error   string
	At      time.Time
}

// ToProcessing переход pending -> processing.
func ToProcessing(at time.Time) JobTransition {
	return JobTransition{To: JobStatusProcessing, At: at}
}

// ToCompleted переход processing -> completed с идентификатором созданной истории.
func ToCompleted(storyID uuid.UUID, at time.Time) JobTransition {
	return JobTransition{To: JobStatusCompleted, StoryID: &storyID, At: at}
}

// ToFailed переход processing -> failed с текстом ошибки.
func ToFailed(reason string, at time.Time) JobTransition {
	return JobTransition{To: JobStatusFailed, Error: reason, At: at}
}

// Validate проверяет согласованность полей перехода.
func (t JobTransition) Validate() error {
	switch t.To {
	case JobStatusProcessing:
		if t.StoryID != nil || t.Error != "" {
			return fmt.Errorf("%w: processing must not carry story_id or error", ErrInvalidTransition)
		}
	case JobStatusCompleted:
		if t.StoryID == nil || *t.StoryID == uuid.Nil {
			return fmt.Errorf("%w: completed requires story_id", ErrInvalidTransition)
		}
		if t.Error != "" {
			return fmt.Errorf("%w: completed must not carry error", ErrInvalidTransition)
		}
	case JobStatusFailed:
		if strings.TrimSpace(t.Error) == "" {
			return fmt.Errorf("%w: failed requires a non-empty error", ErrInvalidTransition)
		}
		if t.StoryID != nil {
			return fmt.Errorf("%w: failed must not carry story_id", ErrInvalidTransition)
		}
	default:
		return fmt.Errorf("%w: unsupported target status %q", ErrInvalidTransition, t.To)
	}
	return nil
}

// From возвращает статус, из которого разрешен переход.
func (t JobTransition) From() JobStatus {
	if t.To == JobStatusProcessing {
		return JobStatusPending
	}
	return JobStatusProcessing
}

// Apply применяет переход к задаче. Задача не изменяется при ошибке.
func (j *GenerationJob) Apply(t JobTransition) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if !j.Status.CanTransitionTo(t.To) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, t.To)
	}
	j.Status = t.To
	if t.To.IsTerminal() {
		at := t.At
		j.CompletedAt = &at
	}
	if t.StoryID != nil {
		id := *t.StoryID
		j.StoryID = &id
	}
	if t.Error != "" {
		reason := t.Error
		j.Error = &reason
	}
	return nil
}

// JobStatusUpdate событие изменения статуса задачи для подписчиков.
type JobStatusUpdate struct {
	JobID       uuid.UUID  `json:"job_id"`
	Status      JobStatus  `json:"status"`
	StoryID     *uuid.UUID `json:"story_id,omitempty"`
	Error       *string    `json:"error,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// StatusUpdate снимок текущего статуса задачи.
func (j *GenerationJob) StatusUpdate() JobStatusUpdate {
	return JobStatusUpdate{
		JobID:       j.ID,
		Status:      j.Status,
		StoryID:     j.StoryID,
		Error:       j.Error,
		CompletedAt: j.CompletedAt,
	}
}
