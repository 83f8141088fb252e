package logger

import (
	"testing"
	"time"

	"adventure-server/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_FallsBackToInfo(t *testing.T) {
	l, err := New(Config{Level: "verbose", Encoding: "xml"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.InfoLevel))
	assert.False(t, l.Core().Enabled(zap.DebugLevel))
}

func TestNew_Debug(t *testing.T) {
	l, err := New(Config{Level: "DEBUG", Encoding: "console"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.DebugLevel))
}

func TestJobFields(t *testing.T) {
	job := models.NewGenerationJob("sess", "theme", time.Now())
	assert.Len(t, JobFields(job), 3)

	storyID := uuid.New()
	job.StoryID = &storyID
	fields := JobFields(job)
	require.Len(t, fields, 4)
	assert.Equal(t, "story_id", fields[3].Key)
}
