package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scriptedProvider struct {
	results []error
	calls   int
}

func (s *scriptedProvider) Generate(_ context.Context, _ string) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.results) && s.results[i] != nil {
		return "", s.results[i]
	}
	return `{"ok":true}`, nil
}

func newTestRetrying(inner Provider, attempts int) *Retrying {
	r := NewRetrying(inner, "test-model", attempts, time.Millisecond, zap.NewNop())
	r.sleep = func(context.Context, time.Duration) error { return nil }
	return r
}

func TestRetrying_SucceedsAfterTransientErrors(t *testing.T) {
	inner := &scriptedProvider{results: []error{ErrProviderFailed, ErrProviderFailed}}
	r := newTestRetrying(inner, 3)

	text, err := r.Generate(context.Background(), "theme")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, text)
	assert.Equal(t, 3, inner.calls)
}

func TestRetrying_GivesUpAfterMaxAttempts(t *testing.T) {
	inner := &scriptedProvider{results: []error{ErrProviderFailed, ErrProviderFailed, ErrProviderFailed}}
	r := newTestRetrying(inner, 2)

	_, err := r.Generate(context.Background(), "theme")
	assert.ErrorIs(t, err, ErrProviderFailed)
	assert.Equal(t, 2, inner.calls)
}

func TestRetrying_PermanentErrorStopsImmediately(t *testing.T) {
	inner := &scriptedProvider{results: []error{permanent(ErrProviderFailed)}}
	r := newTestRetrying(inner, 5)

	_, err := r.Generate(context.Background(), "theme")
	assert.ErrorIs(t, err, ErrProviderFailed)
	assert.Equal(t, 1, inner.calls)
}

func TestRetrying_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	inner := &scriptedProvider{results: []error{context.Canceled, context.Canceled}}
	r := newTestRetrying(inner, 3)

	_, err := r.Generate(ctx, "theme")
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, inner.calls)
}

func TestBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	for attempt := 1; attempt <= 4; attempt++ {
		want := float64(base) * float64(int(1)<<(attempt-1))
		got := float64(backoff(base, attempt))
		assert.GreaterOrEqual(t, got, float64(base))
		assert.InDelta(t, want, got, want*0.1+1)
	}
}
