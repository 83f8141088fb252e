package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTx struct {
	pgx.Tx
	committed   bool
	rolledBack  bool
	rollbackErr error // ошибка контекста в момент отката
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.rolledBack = true
	t.rollbackErr = ctx.Err()
	return nil
}

type fakeBeginner struct {
	tx  *fakeTx
	err error
}

func (b *fakeBeginner) Begin(context.Context) (pgx.Tx, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.tx, nil
}

func TestWithTransaction_CommitsOnSuccess(t *testing.T) {
	tx := &fakeTx{}
	h := NewTransactionHelper(&fakeBeginner{tx: tx}, zap.NewNop())

	err := h.WithTransaction(context.Background(), "create_story_tree", func(context.Context, DBTX) error {
		return nil
	})

	require.NoError(t, err)
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	tx := &fakeTx{}
	h := NewTransactionHelper(&fakeBeginner{tx: tx}, zap.NewNop())
	insertErr := errors.New("duplicate root")

	err := h.WithTransaction(context.Background(), "create_story_tree", func(context.Context, DBTX) error {
		return insertErr
	})

	assert.ErrorIs(t, err, insertErr)
	assert.False(t, tx.committed)
	assert.True(t, tx.rolledBack)
}

func TestWithTransaction_RollsBackAfterCancellation(t *testing.T) {
	tx := &fakeTx{}
	h := NewTransactionHelper(&fakeBeginner{tx: tx}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	err := h.WithTransaction(ctx, "create_story_tree", func(ctx context.Context, _ DBTX) error {
		cancel()
		return ctx.Err()
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, tx.rolledBack)
	assert.NoError(t, tx.rollbackErr, "откат должен выполняться с неотмененным контекстом")
}

func TestWithTransaction_RollsBackAndRepanics(t *testing.T) {
	tx := &fakeTx{}
	h := NewTransactionHelper(&fakeBeginner{tx: tx}, zap.NewNop())

	assert.PanicsWithValue(t, "boom", func() {
		_ = h.WithTransaction(context.Background(), "create_story_tree", func(context.Context, DBTX) error {
			panic("boom")
		})
	})
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
}

func TestWithTransaction_BeginError(t *testing.T) {
	h := NewTransactionHelper(&fakeBeginner{err: errors.New("pool closed")}, zap.NewNop())

	err := h.WithTransaction(context.Background(), "create_story_tree", func(context.Context, DBTX) error {
		t.Fatal("fn must not run without a transaction")
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "create_story_tree")
}
