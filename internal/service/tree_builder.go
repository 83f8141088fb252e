package service

import (
	"context"
	"fmt"
	"time"

	"adventure-server/internal/models"
	"adventure-server/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TreeBuilder превращает провалидированное дерево в плоский набор узлов
// с выданными идентификаторами и сохраняет его одной транзакцией.
type TreeBuilder struct {
	stories repository.StoryRepository
	newID   func() uuid.UUID
	now     func() time.Time
	logger  *zap.Logger
}

// NewTreeBuilder создает построитель деревьев.
func NewTreeBuilder(stories repository.StoryRepository, logger *zap.Logger) *TreeBuilder {
	return &TreeBuilder{
		stories: stories,
		newID:   uuid.New,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  logger.Named("TreeBuilder"),
	}
}

// Build сохраняет историю целиком. При ошибке хранилища ничего не сохраняется,
// ошибка оборачивает models.ErrPersistence.
func (b *TreeBuilder) Build(ctx context.Context, gen *models.GeneratedStory, sessionID string) (*models.StoryTree, error) {
	if gen == nil || gen.Root == nil {
		return nil, fmt.Errorf("%w: empty story tree", models.ErrPersistence)
	}

	tree := b.Flatten(gen, sessionID)
	if err := b.stories.CreateTree(ctx, tree); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrPersistence, err)
	}

	storyNodesPersisted.Observe(float64(len(tree.Nodes)))
	b.logger.Info("Story tree built",
		zap.String("story_id", tree.Story.ID.String()),
		zap.String("session_id", sessionID),
		zap.Int("nodes", len(tree.Nodes)))
	return tree, nil
}

// Flatten обходит дерево в pre-order. Каждый узел получает id и место в арене
// до обхода детей, а список вариантов заполняется после того, как известны
// id всех дочерних узлов.
func (b *TreeBuilder) Flatten(gen *models.GeneratedStory, sessionID string) *models.StoryTree {
	story := models.Story{
		ID:        b.newID(),
		Title:     gen.Title,
		SessionID: sessionID,
		CreatedAt: b.now(),
	}
	arena := make([]models.StoryNode, 0, gen.NodeCount())
	b.place(&arena, story.ID, gen.Root, true)
	return &models.StoryTree{Story: story, Nodes: arena}
}

func (b *TreeBuilder) place(arena *[]models.StoryNode, storyID uuid.UUID, node *models.GeneratedNode, isRoot bool) uuid.UUID {
	id := b.newID()
	idx := len(*arena)
	*arena = append(*arena, models.StoryNode{
		ID:              id,
		StoryID:         storyID,
		Content:         node.Content,
		IsRoot:          isRoot,
		IsEnding:        node.IsEnding,
		IsWinningEnding: node.IsWinningEnding,
	})

	options := make([]models.StoryOption, 0, len(node.Options))
	for _, opt := range node.Options {
		childID := b.place(arena, storyID, opt.Next, false)
		options = append(options, models.StoryOption{Text: opt.Text, NodeID: childID})
	}
	(*arena)[idx].Options = options
	return id
}
