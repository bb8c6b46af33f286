package tx

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type txKeyType struct{}

var txKey = txKeyType{}

// Beginner источник транзакций. *pgxpool.Pool и *pgx.Conn удовлетворяют ему
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TxManager управляет жизненным циклом транзакций БД.
type TxManager interface {
	// Do выполняет fn внутри транзакции. Ошибка fn откатывает транзакцию,
	// успешное завершение фиксирует её. Контекст fn содержит транзакцию.
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

type pgxTxManager struct {
	db Beginner
}

// NewTxManager создает новый менеджер транзакций.
func NewTxManager(db Beginner) TxManager {
	return &pgxTxManager{db: db}
}

func (m *pgxTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	// вложенный вызов переиспользует внешнюю транзакцию
	if _, ok := FromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := m.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("tx.Begin failed: %w", err)
	}
	defer func() {
		// после Commit вернёт pgx.ErrTxClosed, это ожидаемо
		_ = tx.Rollback(ctx)
	}()

	if err := fn(context.WithValue(ctx, txKey, tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("tx.Commit failed: %w", err)
	}
	return nil
}

// FromContext извлекает транзакцию из контекста.
func FromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey).(pgx.Tx)
	return tx, ok
}
