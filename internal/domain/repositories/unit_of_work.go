package repositories

import "context"

// UnitOfWork groups repository calls so they commit or roll back together.
// Repositories called with the ctx handed to fn join the same transaction.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}
