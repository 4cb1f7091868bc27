package service

import "context"

type TransactionManager interface {
	DoWithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type TokenFactory interface {
	Generate(username string) (string, error)
}
