package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"plan-ledger.backend/internal/domain/entities"
)

func TestUnitOfWork_DoCommitAndRollback(t *testing.T) {
	db := newTestDB(t)
	createAccountTables(t, db)
	createPaymentTable(t, db)
	u := &UnitOfWorkImpl{db: db}
	accounts := NewAccountRepository(db)
	payments := NewPaymentRepository(db)
	ctx := context.Background()

	a := newAccount("a@x.com")
	require.NoError(t, accounts.Create(ctx, a))
	seedOrder(t, payments, "order_1")

	// commit path
	err := u.Do(ctx, func(txCtx context.Context) error {
		if _, _, err := payments.Complete(txCtx, "order_1", "pay_1"); err != nil {
			return err
		}
		_, err := accounts.Update(txCtx, a.ID, entities.PlanPatch(entities.PlanPro, entities.CurrencyINR))
		return err
	})
	require.NoError(t, err)

	got, err := accounts.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.PlanPro, got.Plan)

	// rollback path
	seedOrder(t, payments, "order_2")
	err = u.Do(ctx, func(txCtx context.Context) error {
		if _, _, err := payments.Complete(txCtx, "order_2", "pay_2"); err != nil {
			return err
		}
		return errors.New("force rollback")
	})
	require.Error(t, err)

	p, err := payments.GetByGatewayOrderID(ctx, "order_2")
	require.NoError(t, err)
	assert.Equal(t, entities.PaymentStatusPending, p.Status, "completion must be rolled back")
}

func TestUnitOfWork_NestedDoJoinsOuter(t *testing.T) {
	db := newTestDB(t)
	createAccountTables(t, db)
	u := &UnitOfWorkImpl{db: db}
	accounts := NewAccountRepository(db)
	ctx := context.Background()

	err := u.Do(ctx, func(outer context.Context) error {
		if err := u.Do(outer, func(inner context.Context) error {
			return accounts.Create(inner, newAccount("nested@x.com"))
		}); err != nil {
			return err
		}
		return errors.New("outer fails")
	})
	require.Error(t, err)

	_, err = accounts.GetByEmail(ctx, "nested@x.com")
	assert.Error(t, err)
}

func TestUnitOfWork_GetDB(t *testing.T) {
	db := newTestDB(t)
	u := &UnitOfWorkImpl{db: db}

	require.NotNil(t, u.GetDB(context.Background()))

	tx := db.Begin()
	txCtx := context.WithValue(context.Background(), txKey, tx)
	assert.Same(t, tx, u.GetDB(txCtx))
	assert.Same(t, tx, GetDB(txCtx, db))
	tx.Rollback()
}

func TestUnitOfWork_DoBeginFailure(t *testing.T) {
	db := newTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	u := NewUnitOfWork(db)
	err = u.Do(context.Background(), func(context.Context) error { return nil })
	require.Error(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueViolation(errors.New("UNIQUE constraint failed: accounts.email_normalized")))
	assert.True(t, isUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "idx" (SQLSTATE 23505)`)))
	assert.False(t, isUniqueViolation(errors.New("disk full")))
}
