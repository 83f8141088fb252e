package mocks

import (
	"context"

	"adventure-server/internal/models"
	"adventure-server/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

var (
	_ repository.JobRepository   = (*MockJobRepository)(nil)
	_ repository.StoryRepository = (*MockStoryRepository)(nil)
)

// MockJobRepository mock для JobRepository.
type MockJobRepository struct {
	mock.Mock
}

func (m *MockJobRepository) Create(ctx context.Context, job *models.GenerationJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.GenerationJob, error) {
	args := m.Called(ctx, id)
	job, _ := args.Get(0).(*models.GenerationJob)
	return job, args.Error(1)
}

func (m *MockJobRepository) Transition(ctx context.Context, id uuid.UUID, t models.JobTransition) (*models.GenerationJob, error) {
	args := m.Called(ctx, id, t)
	job, _ := args.Get(0).(*models.GenerationJob)
	return job, args.Error(1)
}

// MockStoryRepository mock для StoryRepository.
type MockStoryRepository struct {
	mock.Mock
}

func (m *MockStoryRepository) CreateTree(ctx context.Context, tree *models.StoryTree) error {
	args := m.Called(ctx, tree)
	return args.Error(0)
}

func (m *MockStoryRepository) GetStory(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	args := m.Called(ctx, id)
	story, _ := args.Get(0).(*models.Story)
	return story, args.Error(1)
}

func (m *MockStoryRepository) ListNodes(ctx context.Context, storyID uuid.UUID) ([]models.StoryNode, error) {
	args := m.Called(ctx, storyID)
	nodes, _ := args.Get(0).([]models.StoryNode)
	return nodes, args.Error(1)
}
