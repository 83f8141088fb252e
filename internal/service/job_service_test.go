package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"adventure-server/internal/mocks"
	"adventure-server/internal/models"
	"adventure-server/internal/repository"
	"adventure-server/internal/schemas"
	"adventure-server/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newJobService(t *testing.T, dispatcher service.Dispatcher) (*service.JobService, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	logger := zap.NewNop()
	orch := service.NewOrchestrator(store, mocks.NewMockProvider(t),
		schemas.NewStoryValidator(schemas.DefaultLimits),
		service.NewTreeBuilder(store, logger), nil, time.Second, logger)
	return service.NewJobService(store, dispatcher, orch, logger), store
}

func TestJobService_CreateJob_ReturnsPendingAndDispatches(t *testing.T) {
	dispatcher := &mocks.MockDispatcher{}
	svc, store := newJobService(t, dispatcher)
	dispatcher.On("Dispatch", mock.Anything, mock.AnythingOfType("uuid.UUID")).Return(nil).Once()

	job, err := svc.CreateJob(context.Background(), "  space pirates  ", "session-1")
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, "space pirates", job.Theme)
	assert.Equal(t, "session-1", job.SessionID)
	assert.Nil(t, job.StoryID)
	assert.Nil(t, job.Error)
	assert.Nil(t, job.CompletedAt)

	stored, err := store.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, stored.Status)
	dispatcher.AssertCalled(t, "Dispatch", mock.Anything, job.ID)
}

func TestJobService_CreateJob_InvalidInput(t *testing.T) {
	tests := []struct {
		name      string
		theme     string
		sessionID string
	}{
		{name: "empty theme", theme: "", sessionID: "s"},
		{name: "blank theme", theme: "   ", sessionID: "s"},
		{name: "theme too long", theme: strings.Repeat("я", service.MaxThemeLength+1), sessionID: "s"},
		{name: "no session", theme: "forest", sessionID: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dispatcher := &mocks.MockDispatcher{}
			svc, _ := newJobService(t, dispatcher)

			job, err := svc.CreateJob(context.Background(), tt.theme, tt.sessionID)

			assert.Nil(t, job)
			assert.ErrorIs(t, err, models.ErrInvalidInput)
			dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
		})
	}
}

func TestJobService_CreateJob_ThemeAtLimitIsAccepted(t *testing.T) {
	dispatcher := &mocks.MockDispatcher{}
	dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(nil)
	svc, _ := newJobService(t, dispatcher)

	job, err := svc.CreateJob(context.Background(), strings.Repeat("я", service.MaxThemeLength), "s")

	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, job.Status)
}

func TestJobService_CreateJob_DispatchFailureMarksJobFailed(t *testing.T) {
	dispatcher := &mocks.MockDispatcher{}
	dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(errors.New("queue is full")).Once()
	svc, store := newJobService(t, dispatcher)

	job, err := svc.CreateJob(context.Background(), "forest", "s")
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusFailed, job.Status)
	require.NotNil(t, job.Error)
	assert.Contains(t, *job.Error, "queue is full")
	assert.NotNil(t, job.CompletedAt)

	stored, err := store.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, stored.Status)
}

func TestJobService_CreateJob_DispatchFailureNotifiesEveryStatus(t *testing.T) {
	dispatcher := &mocks.MockDispatcher{}
	dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()
	store := repository.NewMemoryStore()
	notifier := &recordingNotifier{}
	logger := zap.NewNop()
	orch := service.NewOrchestrator(store, mocks.NewMockProvider(t),
		schemas.NewStoryValidator(schemas.DefaultLimits),
		service.NewTreeBuilder(store, logger), notifier, time.Second, logger)
	svc := service.NewJobService(store, dispatcher, orch, logger)

	job, err := svc.CreateJob(context.Background(), "forest", "s")
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Equal(t, []models.JobStatus{models.JobStatusProcessing, models.JobStatusFailed}, notifier.statuses())
}

func TestJobService_CreateJob_StorageError(t *testing.T) {
	jobs := &mocks.MockJobRepository{}
	jobs.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()
	dispatcher := &mocks.MockDispatcher{}
	svc := service.NewJobService(jobs, dispatcher, nil, zap.NewNop())

	job, err := svc.CreateJob(context.Background(), "forest", "s")

	assert.Nil(t, job)
	assert.ErrorContains(t, err, "db down")
	dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
}

func TestJobService_GetJobStatus(t *testing.T) {
	dispatcher := &mocks.MockDispatcher{}
	dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(nil)
	svc, _ := newJobService(t, dispatcher)

	created, err := svc.CreateJob(context.Background(), "forest", "s")
	require.NoError(t, err)

	got, err := svc.GetJobStatus(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, models.JobStatusPending, got.Status)

	_, err = svc.GetJobStatus(context.Background(), uuid.New())
	assert.ErrorIs(t, err, models.ErrJobNotFound)
}
