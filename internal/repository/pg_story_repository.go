package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"adventure-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var _ StoryRepository = (*pgStoryRepository)(nil)

type pgStoryRepository struct {
	db     DBTX
	tx     *TransactionHelper
	logger *zap.Logger
}

// NewPgStoryRepository создает репозиторий историй. Запись дерева идет через tx,
// чтение через db.
func NewPgStoryRepository(db DBTX, tx *TransactionHelper, logger *zap.Logger) StoryRepository {
	return &pgStoryRepository{
		db:     db,
		tx:     tx,
		logger: logger.Named("PgStoryRepo"),
	}
}

const createStoryQuery = `
INSERT INTO stories (id, title, session_id, created_at)
VALUES ($1, $2, $3, $4)`

const createStoryNodeQuery = `
INSERT INTO story_nodes (id, story_id, position, content, is_root, is_ending, is_winning_ending, options)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

const getStoryByIDQuery = `
SELECT id, title, session_id, created_at
FROM stories
WHERE id = $1`

const listStoryNodesQuery = `
SELECT id, story_id, content, is_root, is_ending, is_winning_ending, options
FROM story_nodes
WHERE story_id = $1
ORDER BY position`

func (r *pgStoryRepository) CreateTree(ctx context.Context, tree *models.StoryTree) error {
	logFields := []zap.Field{
		zap.String("story_id", tree.Story.ID.String()),
		zap.Int("nodes", len(tree.Nodes)),
	}

	err := r.tx.WithTransaction(ctx, "create_story_tree", func(ctx context.Context, tx DBTX) error {
		if _, err := tx.Exec(ctx, createStoryQuery,
			tree.Story.ID,
			tree.Story.Title,
			tree.Story.SessionID,
			tree.Story.CreatedAt,
		); err != nil {
			return fmt.Errorf("ошибка создания истории: %w", err)
		}

		batch := &pgx.Batch{}
		for i := range tree.Nodes {
			node := &tree.Nodes[i]
			options := node.Options
			if options == nil {
				options = []models.StoryOption{}
			}
			optionsJSON, err := json.Marshal(options)
			if err != nil {
				return fmt.Errorf("ошибка сериализации вариантов узла %s: %w", node.ID, err)
			}
			batch.Queue(createStoryNodeQuery,
				node.ID,
				tree.Story.ID,
				i,
				node.Content,
				node.IsRoot,
				node.IsEnding,
				node.IsWinningEnding,
				optionsJSON,
			)
		}

		br := tx.SendBatch(ctx, batch)
		for i := range tree.Nodes {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("ошибка вставки узла %d: %w", i, err)
			}
		}
		return br.Close()
	})
	if err != nil {
		r.logger.Error("Failed to persist story tree", append(logFields, zap.Error(err))...)
		return err
	}

	r.logger.Info("Story tree persisted", logFields...)
	return nil
}

func (r *pgStoryRepository) GetStory(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	story := &models.Story{}
	if err := pgxscan.Get(ctx, r.db, story, getStoryByIDQuery, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrStoryNotFound
		}
		r.logger.Error("Failed to get story", zap.Error(err), zap.String("story_id", id.String()))
		return nil, fmt.Errorf("ошибка получения истории %s: %w", id, err)
	}
	return story, nil
}

func (r *pgStoryRepository) ListNodes(ctx context.Context, storyID uuid.UUID) ([]models.StoryNode, error) {
	var nodes []models.StoryNode
	if err := pgxscan.Select(ctx, r.db, &nodes, listStoryNodesQuery, storyID); err != nil {
		r.logger.Error("Failed to list story nodes", zap.Error(err), zap.String("story_id", storyID.String()))
		return nil, fmt.Errorf("ошибка получения узлов истории %s: %w", storyID, err)
	}
	return nodes, nil
}
