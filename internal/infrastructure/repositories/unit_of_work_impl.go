package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	domainRepos "plan-ledger.backend/internal/domain/repositories"
)

type txCtxKey struct{}

var txKey = txCtxKey{}

// UnitOfWorkImpl runs ledger writes inside one gorm transaction.
type UnitOfWorkImpl struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) domainRepos.UnitOfWork {
	return &UnitOfWorkImpl{db: db}
}

// Do runs fn in a transaction carried on the context. A nested Do joins the
// outer one, so only the outermost call commits or rolls back.
func (u *UnitOfWorkImpl) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return fn(ctx)
	}

	var fnErr error
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(context.WithValue(ctx, txKey, tx))
		return fnErr
	})
	if err == nil || err == fnErr {
		return err
	}
	return fmt.Errorf("ledger transaction: %w", err)
}

func (u *UnitOfWorkImpl) GetDB(ctx context.Context) *gorm.DB {
	return GetDB(ctx, u.db)
}

// GetDB returns the transaction bound to ctx by Do, falling back to db.
func GetDB(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}
