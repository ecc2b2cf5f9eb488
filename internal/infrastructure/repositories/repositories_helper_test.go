package repositories

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "open sqlite")

	// One connection keeps the shared in-memory database alive and
	// serializes concurrent writers the way row locks would.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func createAccountTables(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE accounts (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		email_normalized TEXT NOT NULL,
		name TEXT NOT NULL,
		phone TEXT NOT NULL,
		credential_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		plan TEXT NOT NULL DEFAULT 'free',
		currency TEXT,
		status TEXT NOT NULL DEFAULT 'active',
		disabled_reason TEXT,
		signup_origin TEXT,
		last_login_origin TEXT,
		last_login_at DATETIME,
		paid_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	);`)
	mustExec(t, db, `CREATE UNIQUE INDEX idx_accounts_email_normalized ON accounts (email_normalized);`)
	mustExec(t, db, `CREATE TABLE account_locks (
		name TEXT PRIMARY KEY,
		updated_at DATETIME
	);`)
}

func createPaymentTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE payments (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		email TEXT NOT NULL,
		amount INTEGER NOT NULL,
		currency TEXT NOT NULL,
		plan TEXT NOT NULL,
		gateway_order_id TEXT,
		gateway_payment_id TEXT,
		status TEXT NOT NULL,
		failure_reason TEXT,
		completed_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	);`)
	mustExec(t, db, `CREATE UNIQUE INDEX idx_payments_gateway_order_id ON payments (gateway_order_id);`)
}
