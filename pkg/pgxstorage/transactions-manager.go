package pgxstorage

import (
	"context"
	"fmt"
)

type TransactionsManager struct {
	storage *DBStorage
}

func NewTransactionsManager(storage *DBStorage) *TransactionsManager {
	return &TransactionsManager{
		storage: storage,
	}
}

func (tm *TransactionsManager) DoWithTransaction(
	ctx context.Context,
	fn func(ctx context.Context) error,
) error {
	ctxWithTransaction, tx, err := tm.storage.withTransaction(ctx)
	if err != nil {
		return err
	}
	if err := fn(ctxWithTransaction); err != nil {
		if rollbackErr := tx.Rollback(context.Background()); rollbackErr != nil {
			return fmt.Errorf("transaction rollback failed: %w, rollback caused by %w", rollbackErr, err)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		if rollbackErr := tx.Rollback(context.Background()); rollbackErr != nil {
			return fmt.Errorf("transaction rollback failed: %w, rollback caused by %w", rollbackErr, err)
		}
		return fmt.Errorf("transaction commit failed: %w", err)
	}
	return nil
}
