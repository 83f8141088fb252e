package handler

import (
	"time"

	"adventure-server/internal/models"

	"github.com/google/uuid"
)

type createStoryRequest struct {
	Theme string `json:"theme" binding:"required,max=200"`
}

// JobResponse состояние задачи генерации для клиента.
type JobResponse struct {
	JobID       uuid.UUID        `json:"job_id"`
	Status      models.JobStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	StoryID     *uuid.UUID       `json:"story_id,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Error       *string          `json:"error,omitempty"`
}

func toJobResponse(job *models.GenerationJob) JobResponse {
	return JobResponse{
		JobID:       job.ID,
		Status:      job.Status,
		CreatedAt:   job.CreatedAt,
		StoryID:     job.StoryID,
		CompletedAt: job.CompletedAt,
		Error:       job.Error,
	}
}

// apply накладывает обновление статуса на уже отправленный ответ.
func (r JobResponse) apply(u models.JobStatusUpdate) JobResponse {
	r.Status = u.Status
	r.StoryID = u.StoryID
	r.CompletedAt = u.CompletedAt
	r.Error = u.Error
	return r
}
