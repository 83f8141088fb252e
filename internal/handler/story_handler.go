package handler

import (
	"context"
	"fmt"
	"net/http"

	"adventure-server/internal/models"
	"adventure-server/internal/notifier"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobService создание задач и чтение их статуса.
type JobService interface {
	CreateJob(ctx context.Context, theme, sessionID string) (*models.GenerationJob, error)
	GetJobStatus(ctx context.Context, jobID uuid.UUID) (*models.GenerationJob, error)
}

// StoryReader чтение готовых историй.
type StoryReader interface {
	GetCompleteStory(ctx context.Context, storyID uuid.UUID) (*models.CompleteStory, error)
}

// StoryHandler HTTP обработчики генерации и чтения историй.
type StoryHandler struct {
	jobs           JobService
	stories        StoryReader
	watcher        notifier.JobWatcher
	allowedOrigins []string
	logger         *zap.Logger
}

// NewStoryHandler создает обработчик. allowedOrigins проверяются при
// установке WebSocket соединения.
func NewStoryHandler(jobs JobService, stories StoryReader, watcher notifier.JobWatcher, allowedOrigins []string, logger *zap.Logger) *StoryHandler {
	return &StoryHandler{
		jobs:           jobs,
		stories:        stories,
		watcher:        watcher,
		allowedOrigins: allowedOrigins,
		logger:         logger.Named("StoryHandler"),
	}
}

// RegisterRoutes регистрирует маршруты. createMiddleware применяется только
// к созданию задачи (сессия, лимит частоты).
func (h *StoryHandler) RegisterRoutes(router gin.IRouter, createMiddleware ...gin.HandlerFunc) {
	create := append(append([]gin.HandlerFunc{}, createMiddleware...), h.createStory)
	router.POST("/stories/create", create...)
	router.GET("/stories/:story_id/complete", h.getCompleteStory)
	router.GET("/jobs/:job_id", h.getJobStatus)
	router.GET("/jobs/:job_id/ws", h.watchJob)
}

func (h *StoryHandler) createStory(c *gin.Context) {
	var req createStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, h.logger, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return
	}

	job, err := h.jobs.CreateJob(c.Request.Context(), req.Theme, SessionID(c))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toJobResponse(job))
}

func (h *StoryHandler) getJobStatus(c *gin.Context) {
	jobID, ok := parseID(c, "job_id", models.ErrJobNotFound, h.logger)
	if !ok {
		return
	}
	job, err := h.jobs.GetJobStatus(c.Request.Context(), jobID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toJobResponse(job))
}

func (h *StoryHandler) getCompleteStory(c *gin.Context) {
	storyID, ok := parseID(c, "story_id", models.ErrStoryNotFound, h.logger)
	if !ok {
		return
	}
	story, err := h.stories.GetCompleteStory(c.Request.Context(), storyID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, story)
}

// parseID некорректный id трактуется как отсутствующий ресурс.
func parseID(c *gin.Context, param string, notFound error, logger *zap.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		handleServiceError(c, logger, fmt.Errorf("%w: malformed %s", notFound, param))
		return uuid.Nil, false
	}
	return id, true
}
