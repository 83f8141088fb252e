package service

import (
	"context"
	"fmt"

	"adventure-server/internal/models"
	"adventure-server/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StoryService собирает полное представление сохраненной истории.
type StoryService struct {
	stories repository.StoryRepository
	cache   StoryCache
	logger  *zap.Logger
}

// NewStoryService создает сервис чтения историй. cache может быть nil.
func NewStoryService(stories repository.StoryRepository, cache StoryCache, logger *zap.Logger) *StoryService {
	return &StoryService{
		stories: stories,
		cache:   cache,
		logger:  logger.Named("StoryService"),
	}
}

// GetCompleteStory возвращает историю с корнем и всеми узлами.
// models.ErrStoryNotFound для неизвестного id, models.ErrStoryCorrupted если дерево повреждено.
func (s *StoryService) GetCompleteStory(ctx context.Context, storyID uuid.UUID) (*models.CompleteStory, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, storyID)
		switch {
		case err != nil:
			storyCacheRequests.WithLabelValues("error").Inc()
			s.logger.Warn("Ошибка чтения кэша истории", zap.String("story_id", storyID.String()), zap.Error(err))
		case ok:
			storyCacheRequests.WithLabelValues("hit").Inc()
			return cached, nil
		default:
			storyCacheRequests.WithLabelValues("miss").Inc()
		}
	}

	story, err := s.stories.GetStory(ctx, storyID)
	if err != nil {
		return nil, err
	}
	nodes, err := s.stories.ListNodes(ctx, storyID)
	if err != nil {
		return nil, err
	}

	complete, err := AssembleCompleteStory(story, nodes)
	if err != nil {
		s.logger.Error("Сохраненное дерево истории повреждено",
			zap.String("story_id", storyID.String()),
			zap.Int("nodes", len(nodes)),
			zap.Error(err))
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, complete); err != nil {
			s.logger.Warn("Не удалось сохранить историю в кэш", zap.String("story_id", storyID.String()), zap.Error(err))
		}
	}
	return complete, nil
}

// AssembleCompleteStory проверяет целостность узлов и строит представление.
func AssembleCompleteStory(story *models.Story, nodes []models.StoryNode) (*models.CompleteStory, error) {
	all := make(map[uuid.UUID]models.StoryNode, len(nodes))
	var root *models.StoryNode
	for i := range nodes {
		n := nodes[i]
		if n.Options == nil {
			n.Options = []models.StoryOption{}
		}
		if n.IsRoot {
			if root != nil {
				return nil, fmt.Errorf("%w: story %s has more than one root", models.ErrStoryCorrupted, story.ID)
			}
			root = &n
		}
		all[n.ID] = n
	}
	if root == nil {
		return nil, fmt.Errorf("%w: story %s has no root node", models.ErrStoryCorrupted, story.ID)
	}
	for _, n := range all {
		for _, opt := range n.Options {
			if _, ok := all[opt.NodeID]; !ok {
				return nil, fmt.Errorf("%w: node %s references missing node %s", models.ErrStoryCorrupted, n.ID, opt.NodeID)
			}
		}
	}

	return &models.CompleteStory{
		ID:        story.ID,
		Title:     story.Title,
		SessionID: story.SessionID,
		CreatedAt: story.CreatedAt,
		RootNode:  *root,
		AllNodes:  all,
	}, nil
}
