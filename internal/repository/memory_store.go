package repository

import (
	"context"
	"fmt"
	"sync"

	"adventure-server/internal/models"

	"github.com/google/uuid"
)

var (
	_ JobRepository   = (*MemoryStore)(nil)
	_ StoryRepository = (*MemoryStore)(nil)
)

// MemoryStore хранит задачи и истории в памяти процесса.
// Используется драйвером STORAGE_DRIVER=memory и в тестах.
type MemoryStore struct {
	mu      sync.RWMutex
	jobs    map[uuid.UUID]models.GenerationJob
	stories map[uuid.UUID]models.Story
	nodes   map[uuid.UUID][]models.StoryNode
}

// NewMemoryStore создает пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:    make(map[uuid.UUID]models.GenerationJob),
		stories: make(map[uuid.UUID]models.Story),
		nodes:   make(map[uuid.UUID][]models.StoryNode),
	}
}

func (s *MemoryStore) Create(_ context.Context, job *models.GenerationJob) error {
	if job.Status != models.JobStatusPending {
		return fmt.Errorf("%w: new job must be pending, got %s", models.ErrInvalidTransition, job.Status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("задача %s уже существует", job.ID)
	}
	s.jobs[job.ID] = copyJob(*job)
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*models.GenerationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, models.ErrJobNotFound
	}
	out := copyJob(job)
	return &out, nil
}

func (s *MemoryStore) Transition(_ context.Context, id uuid.UUID, t models.JobTransition) (*models.GenerationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, models.ErrJobNotFound
	}
	if err := job.Apply(t); err != nil {
		return nil, err
	}
	s.jobs[id] = job
	out := copyJob(job)
	return &out, nil
}

func (s *MemoryStore) CreateTree(ctx context.Context, tree *models.StoryTree) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.stories[tree.Story.ID]; exists {
		return fmt.Errorf("история %s уже существует", tree.Story.ID)
	}
	nodes := make([]models.StoryNode, len(tree.Nodes))
	for i, n := range tree.Nodes {
		n.StoryID = tree.Story.ID
		n.Options = append([]models.StoryOption{}, n.Options...)
		nodes[i] = n
	}
	s.stories[tree.Story.ID] = tree.Story
	s.nodes[tree.Story.ID] = nodes
	return nil
}

func (s *MemoryStore) GetStory(_ context.Context, id uuid.UUID) (*models.Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	story, ok := s.stories[id]
	if !ok {
		return nil, models.ErrStoryNotFound
	}
	return &story, nil
}

func (s *MemoryStore) ListNodes(_ context.Context, storyID uuid.UUID) ([]models.StoryNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.nodes[storyID]
	out := make([]models.StoryNode, len(stored))
	for i, n := range stored {
		n.Options = append([]models.StoryOption{}, n.Options...)
		out[i] = n
	}
	return out, nil
}

func copyJob(j models.GenerationJob) models.GenerationJob {
	if j.StoryID != nil {
		id := *j.StoryID
		j.StoryID = &id
	}
	if j.Error != nil {
		e := *j.Error
		j.Error = &e
	}
	if j.CompletedAt != nil {
		at := *j.CompletedAt
		j.CompletedAt = &at
	}
	return j
}
