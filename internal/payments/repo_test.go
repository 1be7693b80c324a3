package payments

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/weihengtan/motormart-backend/pkg/db/models"
	"github.com/weihengtan/motormart-backend/pkg/enums"
)

func setupPaymentTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:payments_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS payment_intents (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  method TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  amount_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'SGD',
  external_ref TEXT,
  client_secret TEXT,
  qr_code_data TEXT,
  failure_reason TEXT,
  succeeded_at DATETIME,
  expires_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func seedIntent(t *testing.T, db *gorm.DB, repo Repository, ref string) *models.PaymentIntent {
	t.Helper()
	intent := &models.PaymentIntent{
		ID:          uuid.New(),
		OrderID:     uuid.New(),
		UserID:      uuid.New(),
		Method:      enums.PaymentMethodQRBank,
		Status:      enums.PaymentStatusPending,
		AmountCents: 15000,
		Currency:    enums.CurrencySGD,
		ExternalRef: &ref,
	}
	require.NoError(t, repo.Create(context.Background(), intent))
	return intent
}

func TestRepositoryMarkSucceededOnlyFromPending(t *testing.T) {
	db := setupPaymentTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	intent := seedIntent(t, db, repo, "ref-1")

	updated, err := repo.MarkSucceeded(ctx, intent.ID)
	require.NoError(t, err)
	assert.True(t, updated)

	row, err := repo.FindByID(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusSucceeded, row.Status)
	assert.NotNil(t, row.SucceededAt)

	// a second transition attempt is a no-op
	updated, err = repo.MarkFailed(ctx, intent.ID, "too late")
	require.NoError(t, err)
	assert.False(t, updated)

	row, err = repo.FindByID(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusSucceeded, row.Status)
	assert.Nil(t, row.FailureReason)
}

func TestRepositoryMarkFailedRecordsReason(t *testing.T) {
	db := setupPaymentTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	intent := seedIntent(t, db, repo, "ref-2")

	updated, err := repo.MarkFailed(ctx, intent.ID, "issuer declined")
	require.NoError(t, err)
	assert.True(t, updated)

	row, err := repo.FindByID(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusFailed, row.Status)
	require.NotNil(t, row.FailureReason)
	assert.Equal(t, "issuer declined", *row.FailureReason)
}

func TestRepositoryMarkRefundedRequiresSucceeded(t *testing.T) {
	db := setupPaymentTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	intent := seedIntent(t, db, repo, "ref-3")

	updated, err := repo.MarkRefunded(ctx, intent.ID)
	require.NoError(t, err)
	assert.False(t, updated, "pending intent must not be refundable")

	_, err = repo.MarkSucceeded(ctx, intent.ID)
	require.NoError(t, err)

	updated, err = repo.MarkRefunded(ctx, intent.ID)
	require.NoError(t, err)
	assert.True(t, updated)
}

func TestRepositoryFindByExternalRef(t *testing.T) {
	db := setupPaymentTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	intent := seedIntent(t, db, repo, "ref-lookup")

	row, err := repo.FindByExternalRef(ctx, "ref-lookup")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, intent.ID, row.ID)

	missing, err := repo.FindByExternalRef(ctx, "ref-unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
