package mocks

import (
	"context"

	"adventure-server/internal/models"
	"adventure-server/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

var (
	_ service.Dispatcher  = (*MockDispatcher)(nil)
	_ service.JobNotifier = (*MockJobNotifier)(nil)
	_ service.StoryCache  = (*MockStoryCache)(nil)
)

// MockDispatcher mock для Dispatcher.
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, jobID uuid.UUID) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

// MockJobNotifier mock для JobNotifier.
type MockJobNotifier struct {
	mock.Mock
}

func (m *MockJobNotifier) NotifyJobStatus(ctx context.Context, update models.JobStatusUpdate) error {
	args := m.Called(ctx, update)
	return args.Error(0)
}

// MockStoryCache mock для StoryCache.
type MockStoryCache struct {
	mock.Mock
}

func (m *MockStoryCache) Get(ctx context.Context, storyID uuid.UUID) (*models.CompleteStory, bool, error) {
	args := m.Called(ctx, storyID)
	story, _ := args.Get(0).(*models.CompleteStory)
	return story, args.Bool(1), args.Error(2)
}

func (m *MockStoryCache) Set(ctx context.Context, story *models.CompleteStory) error {
	args := m.Called(ctx, story)
	return args.Error(0)
}
