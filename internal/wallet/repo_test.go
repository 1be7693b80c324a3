package wallet

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/weihengtan/motormart-backend/pkg/db/models"
	"github.com/weihengtan/motormart-backend/pkg/enums"
)

func setupWalletTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:wallet_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	users := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  phone TEXT,
  role TEXT NOT NULL DEFAULT 'buyer',
  wallet_balance_cents INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	walletTransactions := `
CREATE TABLE IF NOT EXISTS wallet_transactions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  balance_before_cents INTEGER NOT NULL,
  balance_after_cents INTEGER NOT NULL,
  description TEXT NOT NULL,
  reference TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(users).Error)
	require.NoError(t, db.Exec(walletTransactions).Error)
	return db
}

func seedWalletUser(t *testing.T, db *gorm.DB, balanceCents int64) uuid.UUID {
	t.Helper()
	userID := uuid.New()
	require.NoError(t, db.Exec(
		`INSERT INTO users (id, email, password_hash, first_name, last_name, role, wallet_balance_cents, created_at, updated_at)
		 VALUES (?, ?, 'x', 'Test', 'Buyer', 'buyer', ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		userID, userID.String()+"@example.com", balanceCents,
	).Error)
	return userID
}

func TestRepositoryDebitBalance(t *testing.T) {
	db := setupWalletTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := seedWalletUser(t, db, 10000)

	affected, err := repo.DebitBalance(ctx, userID, 4000)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	balance, err := repo.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), balance)
}

func TestRepositoryDebitBalanceInsufficient(t *testing.T) {
	db := setupWalletTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := seedWalletUser(t, db, 1000)

	affected, err := repo.DebitBalance(ctx, userID, 1001)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	balance, err := repo.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)
}

func TestRepositoryDebitBalanceExactDrain(t *testing.T) {
	db := setupWalletTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := seedWalletUser(t, db, 2500)

	affected, err := repo.DebitBalance(ctx, userID, 2500)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = repo.DebitBalance(ctx, userID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected, "drained wallet must reject further debits")
}

func TestRepositoryDebitBalanceConcurrentNeverOverdraws(t *testing.T) {
	db := setupWalletTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Shared-cache sqlite locks the whole database per writer; a single
	// connection serializes the debits instead of erroring with SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)

	repo := NewRepository(db)
	ctx := context.Background()

	// Balance covers exactly 3 of the 8 racing debits.
	userID := seedWalletUser(t, db, 3000)

	const attempts = 8
	results := make(chan int64, attempts)
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			affected, err := repo.DebitBalance(ctx, userID, 1000)
			results <- affected
			errs <- err
		}()
	}

	var landed int64
	for i := 0; i < attempts; i++ {
		require.NoError(t, <-errs)
		landed += <-results
	}
	assert.Equal(t, int64(3), landed, "only as many debits as the balance covers may land")

	balance, err := repo.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
	assert.GreaterOrEqual(t, balance, int64(0), "the balance must never go negative")
}

func TestRepositoryCreditBalanceUnknownUser(t *testing.T) {
	db := setupWalletTestDB(t)
	repo := NewRepository(db)

	affected, err := repo.CreditBalance(context.Background(), uuid.New(), 500)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
}

func TestRepositoryListTransactionsNewestFirst(t *testing.T) {
	db := setupWalletTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := seedWalletUser(t, db, 0)

	base := time.Now().Add(-time.Hour)
	for i, kind := range []enums.WalletTransactionKind{
		enums.WalletTransactionDeposit,
		enums.WalletTransactionPurchase,
		enums.WalletTransactionRefund,
	} {
		txn := models.WalletTransaction{
			ID:                 uuid.New(),
			UserID:             userID,
			Kind:               kind,
			AmountCents:        int64(100 * (i + 1)),
			BalanceBeforeCents: 0,
			BalanceAfterCents:  0,
			Description:        "entry",
			CreatedAt:          base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(&txn).Error)
	}

	rows, err := repo.ListTransactions(ctx, userID, 2, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, enums.WalletTransactionRefund, rows[0].Kind)
	assert.Equal(t, enums.WalletTransactionPurchase, rows[1].Kind)

	rows, err = repo.ListTransactions(ctx, userID, 2, 2)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.WalletTransactionDeposit, rows[0].Kind)
}
