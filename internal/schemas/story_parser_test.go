package schemas

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validStory = `{
  "title": "The Lost Harbor",
  "rootNode": {
    "content": "Fog rolls over the docks.",
    "isEnding": false,
    "isWinningEnding": false,
    "options": [
      {"text": "Board the ship", "nextNode": {
        "content": "The ship sails into treasure.",
        "isEnding": true,
        "isWinningEnding": true
      }},
      {"text": "Walk to the lighthouse", "nextNode": {
        "content": "The keeper offers a map.",
        "isEnding": false,
        "isWinningEnding": false,
        "options": [
          {"text": "Take the map", "nextNode": {"content": "You get lost.", "isEnding": true, "isWinningEnding": false, "options": []}}
        ]
      }}
    ]
  }
}`

func requireValidationError(t *testing.T, err error) *ValidationError {
	t.Helper()
	require.Error(t, err)
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr), "expected *ValidationError, got %T", err)
	assert.ErrorIs(t, err, ErrInvalidStory)
	return vErr
}

func TestStoryValidator_Valid(t *testing.T) {
	v := NewStoryValidator(DefaultLimits)

	story, err := v.Validate(validStory)
	require.NoError(t, err)
	require.NotNil(t, story)

	assert.Equal(t, "The Lost Harbor", story.Title)
	assert.Equal(t, 4, story.NodeCount())
	require.Len(t, story.Root.Options, 2)
	assert.Equal(t, "Board the ship", story.Root.Options[0].Text)
	assert.True(t, story.Root.Options[0].Next.IsWinningEnding)
	assert.Empty(t, story.Root.Options[0].Next.Options)
	assert.Equal(t, "Take the map", story.Root.Options[1].Next.Options[0].Text)
}

func TestStoryValidator_StripsMarkdownFence(t *testing.T) {
	v := NewStoryValidator(DefaultLimits)

	story, err := v.Validate("Here you go:\n```json\n" + validStory + "\n```\n")
	require.NoError(t, err)
	assert.Equal(t, 4, story.NodeCount())
}

func TestStoryValidator_MissingNestedContent(t *testing.T) {
	raw := `{"title":"T","rootNode":{"content":"c","isEnding":false,"isWinningEnding":false,"options":[
		{"text":"a","nextNode":{"content":"x","isEnding":true,"isWinningEnding":false}},
		{"text":"b","nextNode":{"isEnding":true,"isWinningEnding":false}}
	]}}`

	_, err := NewStoryValidator(DefaultLimits).Validate(raw)
	vErr := requireValidationError(t, err)
	assert.Equal(t, "root.options[1].nextNode.content", vErr.Path)
	assert.Equal(t, "root.options[1].nextNode.content missing", err.Error())
}

func TestStoryValidator_Violations(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantPath string
		reason   string
	}{
		{
			name:     "non-ending with empty options",
			raw:      `{"title":"T","rootNode":{"content":"c","isEnding":false,"isWinningEnding":false,"options":[]}}`,
			wantPath: "root.options",
			reason:   "must not be empty",
		},
		{
			name:     "non-ending without options",
			raw:      `{"title":"T","rootNode":{"content":"c","isEnding":false,"isWinningEnding":false}}`,
			wantPath: "root.options",
			reason:   "must not be empty",
		},
		{
			name:     "ending with options",
			raw:      `{"title":"T","rootNode":{"content":"c","isEnding":true,"isWinningEnding":false,"options":[{"text":"a","nextNode":{"content":"x","isEnding":true,"isWinningEnding":false}}]}}`,
			wantPath: "root.options",
			reason:   "must be empty",
		},
		{
			name:     "winning without ending",
			raw:      `{"title":"T","rootNode":{"content":"c","isEnding":false,"isWinningEnding":true,"options":[{"text":"a","nextNode":{"content":"x","isEnding":true,"isWinningEnding":false}}]}}`,
			wantPath: "root.isWinningEnding",
			reason:   "non-ending",
		},
		{
			name:     "missing title",
			raw:      `{"rootNode":{"content":"c","isEnding":true,"isWinningEnding":false}}`,
			wantPath: "title",
			reason:   "missing",
		},
		{
			name:     "blank title",
			raw:      `{"title":"  ","rootNode":{"content":"c","isEnding":true,"isWinningEnding":false}}`,
			wantPath: "title",
			reason:   "must not be empty",
		},
		{
			name:     "blank content in nested node",
			raw:      `{"title":"T","rootNode":{"content":"c","isEnding":false,"isWinningEnding":false,"options":[{"text":"a","nextNode":{"content":"","isEnding":true,"isWinningEnding":false}}]}}`,
			wantPath: "root.options[0].nextNode.content",
			reason:   "must not be empty",
		},
		{
			name:     "missing root",
			raw:      `{"title":"T"}`,
			wantPath: "rootNode",
			reason:   "missing",
		},
		{
			name:     "wrong type for isEnding",
			raw:      `{"title":"T","rootNode":{"content":"c","isEnding":"yes","isWinningEnding":false}}`,
			wantPath: "root.isEnding",
			reason:   "must be a boolean",
		},
		{
			name:     "missing isWinningEnding",
			raw:      `{"title":"T","rootNode":{"content":"c","isEnding":true}}`,
			wantPath: "root.isWinningEnding",
			reason:   "missing",
		},
		{
			name:     "empty option text",
			raw:      `{"title":"T","rootNode":{"content":"c","isEnding":false,"isWinningEnding":false,"options":[{"text":" ","nextNode":{"content":"x","isEnding":true,"isWinningEnding":false}}]}}`,
			wantPath: "root.options[0].text",
			reason:   "must not be empty",
		},
		{
			name:     "option without next node",
			raw:      `{"title":"T","rootNode":{"content":"c","isEnding":false,"isWinningEnding":false,"options":[{"text":"go"}]}}`,
			wantPath: "root.options[0].nextNode",
			reason:   "missing",
		},
		{
			name:     "options not an array",
			raw:      `{"title":"T","rootNode":{"content":"c","isEnding":false,"isWinningEnding":false,"options":{"text":"go"}}}`,
			wantPath: "root.options",
			reason:   "must be an array",
		},
	}

	v := NewStoryValidator(DefaultLimits)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			story, err := v.Validate(tc.raw)
			assert.Nil(t, story)
			vErr := requireValidationError(t, err)
			assert.Equal(t, tc.wantPath, vErr.Path)
			assert.Contains(t, vErr.Reason, tc.reason)
		})
	}
}

func TestStoryValidator_NotJSON(t *testing.T) {
	v := NewStoryValidator(DefaultLimits)

	for _, raw := range []string{"", "I cannot write that story.", `{"title": "T", "rootNode": {`, `["a"]`} {
		story, err := v.Validate(raw)
		assert.Nil(t, story, raw)
		requireValidationError(t, err)
	}
}

// chain строит линейную историю глубины depth.
func chain(depth int) string {
	var b strings.Builder
	b.WriteString(`{"title":"Deep","rootNode":`)
	for i := 1; i < depth; i++ {
		fmt.Fprintf(&b, `{"content":"n%d","isEnding":false,"isWinningEnding":false,"options":[{"text":"next","nextNode":`, i)
	}
	b.WriteString(`{"content":"end","isEnding":true,"isWinningEnding":false}`)
	for i := 1; i < depth; i++ {
		b.WriteString(`}]}`)
	}
	b.WriteString(`}`)
	return b.String()
}

func TestStoryValidator_MaxDepth(t *testing.T) {
	v := NewStoryValidator(Limits{MaxDepth: 3})

	story, err := v.Validate(chain(3))
	require.NoError(t, err)
	assert.Equal(t, 3, story.NodeCount())

	_, err = v.Validate(chain(4))
	vErr := requireValidationError(t, err)
	assert.Contains(t, vErr.Reason, "max depth 3")
	assert.Equal(t, "root.options[0].nextNode.options[0].nextNode.options[0].nextNode", vErr.Path)
}

func TestStoryValidator_MaxNodes(t *testing.T) {
	v := NewStoryValidator(Limits{MaxNodes: 3})

	_, err := v.Validate(validStory)
	vErr := requireValidationError(t, err)
	assert.Contains(t, vErr.Reason, "max node count 3")

	story, err := NewStoryValidator(Limits{MaxNodes: 4}).Validate(validStory)
	require.NoError(t, err)
	assert.Equal(t, 4, story.NodeCount())
}
