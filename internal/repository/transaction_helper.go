package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// TxBeginner источник транзакций (обычно *pgxpool.Pool).
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TransactionHelper выполняет запись дерева истории одной транзакцией.
type TransactionHelper struct {
	db     TxBeginner
	logger *zap.Logger
}

// NewTransactionHelper создает помощник транзакций.
func NewTransactionHelper(db TxBeginner, logger *zap.Logger) *TransactionHelper {
	return &TransactionHelper{
		db:     db,
		logger: logger.Named("TransactionHelper"),
	}
}

// WithTransaction выполняет fn в транзакции и коммитит, только если fn вернула nil.
// op попадает в логи транзакции (например "create_story_tree").
// Откат выполняется и после отмены ctx: генерация могла быть прервана
// остановкой процесса, а незакрытая транзакция держит соединение пула.
func (h *TransactionHelper) WithTransaction(
	ctx context.Context,
	op string,
	fn func(ctx context.Context, tx DBTX) error,
) (err error) {
	log := h.logger.With(zap.String("tx_op", op))
	started := time.Now()

	tx, err := h.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: не удалось начать транзакцию: %w", op, err)
	}
	rollbackCtx := context.WithoutCancel(ctx)

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(rollbackCtx); rbErr != nil {
				log.Error("Failed to rollback transaction after panic", zap.Error(rbErr), zap.Any("panic", p))
			}
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(rollbackCtx); rbErr != nil {
			log.Error("Failed to rollback transaction", zap.Error(rbErr), zap.NamedError("original_error", err))
		} else {
			log.Debug("Transaction rolled back", zap.Error(err), zap.Duration("duration", time.Since(started)))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: не удалось закоммитить транзакцию: %w", op, err)
	}
	log.Debug("Transaction committed", zap.Duration("duration", time.Since(started)))
	return nil
}
