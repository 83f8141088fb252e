//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"adventure-server/internal/database"
	"adventure-server/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

type PgRepositorySuite struct {
	suite.Suite
	container *postgres.PostgresContainer
	pool      *pgxpool.Pool
	jobs      JobRepository
	stories   StoryRepository
}

func (s *PgRepositorySuite) SetupSuite() {
	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("adventure_test"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(s.T(), err)
	s.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(s.T(), err)

	logger := zap.NewNop()
	s.pool, err = database.Connect(ctx, database.PoolConfig{DSN: dsn, MaxRetries: 5, RetryDelay: time.Second}, logger)
	require.NoError(s.T(), err)
	require.NoError(s.T(), database.Migrate(s.pool, logger))
	// Повторный запуск миграций ничего не меняет.
	require.NoError(s.T(), database.Migrate(s.pool, logger))

	s.jobs = NewPgJobRepository(s.pool, logger)
	s.stories = NewPgStoryRepository(s.pool, NewTransactionHelper(s.pool, logger), logger)
}

func (s *PgRepositorySuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		_ = testcontainers.TerminateContainer(s.container)
	}
}

func (s *PgRepositorySuite) SetupTest() {
	_, err := s.pool.Exec(context.Background(), `TRUNCATE story_jobs, story_nodes, stories`)
	s.Require().NoError(err)
}

func (s *PgRepositorySuite) sampleTree() *models.StoryTree {
	storyID := uuid.New()
	rootID, winID, loseID := uuid.New(), uuid.New(), uuid.New()
	return &models.StoryTree{
		Story: models.Story{ID: storyID, Title: "Маяк", SessionID: "s", CreatedAt: time.Now().UTC()},
		Nodes: []models.StoryNode{
			{ID: rootID, StoryID: storyID, Content: "Шторм.", IsRoot: true, Options: []models.StoryOption{
				{Text: "Наверх", NodeID: winID},
				{Text: "Вниз", NodeID: loseID},
			}},
			{ID: winID, StoryID: storyID, Content: "Свет.", IsEnding: true, IsWinningEnding: true, Options: []models.StoryOption{}},
			{ID: loseID, StoryID: storyID, Content: "Тьма.", IsEnding: true, Options: []models.StoryOption{}},
		},
	}
}

func (s *PgRepositorySuite) TestJobLifecycle() {
	ctx := context.Background()
	job := models.NewGenerationJob("session", "lighthouse", time.Now().UTC())
	s.Require().NoError(s.jobs.Create(ctx, job))

	got, err := s.jobs.GetByID(ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(models.JobStatusPending, got.Status)
	s.Equal("lighthouse", got.Theme)
	s.Nil(got.StoryID)
	s.Nil(got.CompletedAt)

	processing, err := s.jobs.Transition(ctx, job.ID, models.ToProcessing(time.Now().UTC()))
	s.Require().NoError(err)
	s.Equal(models.JobStatusProcessing, processing.Status)

	// Повторный захват проигрывает.
	_, err = s.jobs.Transition(ctx, job.ID, models.ToProcessing(time.Now().UTC()))
	s.ErrorIs(err, models.ErrInvalidTransition)

	storyID := uuid.New()
	done, err := s.jobs.Transition(ctx, job.ID, models.ToCompleted(storyID, time.Now().UTC()))
	s.Require().NoError(err)
	s.Equal(models.JobStatusCompleted, done.Status)
	s.Require().NotNil(done.StoryID)
	s.Equal(storyID, *done.StoryID)
	s.NotNil(done.CompletedAt)
	s.Nil(done.Error)

	_, err = s.jobs.Transition(ctx, job.ID, models.ToFailed("late", time.Now().UTC()))
	s.ErrorIs(err, models.ErrInvalidTransition)
}

func (s *PgRepositorySuite) TestJobNotFound() {
	ctx := context.Background()
	_, err := s.jobs.GetByID(ctx, uuid.New())
	s.ErrorIs(err, models.ErrJobNotFound)

	_, err = s.jobs.Transition(ctx, uuid.New(), models.ToProcessing(time.Now().UTC()))
	s.ErrorIs(err, models.ErrJobNotFound)
}

func (s *PgRepositorySuite) TestCreateTreeAndRead() {
	ctx := context.Background()
	tree := s.sampleTree()
	s.Require().NoError(s.stories.CreateTree(ctx, tree))

	story, err := s.stories.GetStory(ctx, tree.Story.ID)
	s.Require().NoError(err)
	s.Equal("Маяк", story.Title)

	nodes, err := s.stories.ListNodes(ctx, tree.Story.ID)
	s.Require().NoError(err)
	s.Require().Len(nodes, 3)
	s.Equal(tree.Nodes[0].ID, nodes[0].ID)
	s.True(nodes[0].IsRoot)
	s.Equal(tree.Nodes[0].Options, nodes[0].Options)
	s.True(nodes[1].IsWinningEnding)
	s.Empty(nodes[2].Options)
}

func (s *PgRepositorySuite) TestCreateTreeIsAtomic() {
	ctx := context.Background()
	tree := s.sampleTree()
	// Второй корень нарушает уникальный индекс: ни история, ни узлы не сохраняются.
	tree.Nodes[2].IsRoot = true

	s.Error(s.stories.CreateTree(ctx, tree))

	_, err := s.stories.GetStory(ctx, tree.Story.ID)
	s.ErrorIs(err, models.ErrStoryNotFound)
	nodes, err := s.stories.ListNodes(ctx, tree.Story.ID)
	s.Require().NoError(err)
	s.Empty(nodes)
}

func (s *PgRepositorySuite) TestWinningNonEndingRejected() {
	tree := s.sampleTree()
	tree.Nodes[0].IsWinningEnding = true

	s.Error(s.stories.CreateTree(context.Background(), tree))
}

func TestPgRepositorySuite(t *testing.T) {
	suite.Run(t, new(PgRepositorySuite))
}
