package orders

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
	"github.com/weihengtan/motormart-backend/pkg/pagination"
)

func setupOrderTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:orders_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  order_number INTEGER NOT NULL UNIQUE,
  status TEXT NOT NULL DEFAULT 'cart',
  currency TEXT NOT NULL DEFAULT 'SGD',
  subtotal_cents INTEGER NOT NULL,
  discount_cents INTEGER NOT NULL DEFAULT 0,
  discount_code TEXT,
  platform_fee_cents INTEGER NOT NULL DEFAULT 0,
  tax_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL,
  seller_earnings_cents INTEGER NOT NULL DEFAULT 0,
  operator_fee_cents INTEGER NOT NULL DEFAULT 0,
  payment_method TEXT NOT NULL,
  refund_status TEXT NOT NULL DEFAULT 'none',
  refunded_cents INTEGER NOT NULL DEFAULT 0,
  failure_reason TEXT,
  settled_at DATETIME,
  failed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_line_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT,
  seller_id TEXT NOT NULL,
  product_kind TEXT NOT NULL,
  title TEXT NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  quantity INTEGER NOT NULL,
  line_total_cents INTEGER NOT NULL,
  seller_earnings_cents INTEGER NOT NULL DEFAULT 0,
  restocked_at DATETIME,
  created_at DATETIME
);`, `
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
);`, `
CREATE TABLE IF NOT EXISTS seller_revenues (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL UNIQUE,
  earned_cents INTEGER NOT NULL DEFAULT 0,
  refunded_cents INTEGER NOT NULL DEFAULT 0,
  order_count INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`}
	for _, ddl := range statements {
		require.NoError(t, db.Exec(ddl).Error)
	}
	return db
}

func seedOrder(t *testing.T, repo Repository, buyerID uuid.UUID, orderNumber int64, status enums.OrderStatus, createdAt time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:            uuid.New(),
		BuyerID:       buyerID,
		OrderNumber:   orderNumber,
		Status:        status,
		Currency:      enums.CurrencySGD,
		SubtotalCents: 10000,
		TotalCents:    12100,
		PaymentMethod: enums.PaymentMethodWallet,
		RefundStatus:  enums.RefundStatusNone,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	_, err := repo.CreateOrder(context.Background(), order)
	require.NoError(t, err)
	return order
}

func TestRepositoryStatusTransitions(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, repo, uuid.New(), 1001, enums.OrderStatusCommitting, time.Now().UTC())

	updated, err := repo.MarkSettled(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, updated)

	row, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusSettled, row.Status)
	assert.NotNil(t, row.SettledAt)

	// a settled order cannot fail
	updated, err = repo.MarkFailed(ctx, order.ID, "too late")
	require.NoError(t, err)
	assert.False(t, updated)

	// nor settle twice
	updated, err = repo.MarkSettled(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestRepositoryMarkFailedFromPending(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, repo, uuid.New(), 1002, enums.OrderStatusAwaitingAuthorization, time.Now().UTC())

	updated, err := repo.MarkFailed(ctx, order.ID, "gateway declined")
	require.NoError(t, err)
	assert.True(t, updated)

	row, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusFailed, row.Status)
	require.NotNil(t, row.FailureReason)
	assert.Equal(t, "gateway declined", *row.FailureReason)
	assert.NotNil(t, row.FailedAt)
}

func TestRepositoryRecordSellerSaleUpserts(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	sellerID := uuid.New()
	require.NoError(t, repo.RecordSellerSale(ctx, sellerID, 9000))
	require.NoError(t, repo.RecordSellerSale(ctx, sellerID, 4500))
	require.NoError(t, repo.RecordSellerRefund(ctx, sellerID, 2000))

	revenue, err := repo.SellerRevenue(ctx, sellerID)
	require.NoError(t, err)
	require.NotNil(t, revenue)
	assert.Equal(t, int64(13500), revenue.EarnedCents)
	assert.Equal(t, int64(2000), revenue.RefundedCents)
	assert.Equal(t, int64(2), revenue.OrderCount)
}

func TestRepositoryAddRefundedCents(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, repo, uuid.New(), 1003, enums.OrderStatusSettled, time.Now().UTC())

	added, err := repo.AddRefundedCents(ctx, order.ID, 3000)
	require.NoError(t, err)
	assert.True(t, added)

	row, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), row.RefundedCents)
	assert.Equal(t, enums.RefundStatusPartial, row.RefundStatus)

	added, err = repo.AddRefundedCents(ctx, order.ID, 9100)
	require.NoError(t, err)
	assert.True(t, added)

	row, err = repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(12100), row.RefundedCents)
	assert.Equal(t, enums.RefundStatusFull, row.RefundStatus)
}

func TestRepositoryAddRefundedCentsRefusesOverdraw(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, repo, uuid.New(), 1004, enums.OrderStatusSettled, time.Now().UTC())

	added, err := repo.AddRefundedCents(ctx, order.ID, 9000)
	require.NoError(t, err)
	assert.True(t, added)

	// 9000 + 9000 would exceed the 12100 total; the row must stay put.
	added, err = repo.AddRefundedCents(ctx, order.ID, 9000)
	require.NoError(t, err)
	assert.False(t, added)

	row, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9000), row.RefundedCents)
	assert.Equal(t, enums.RefundStatusPartial, row.RefundStatus)
}

func TestRepositoryListByBuyerPaginates(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	buyerID := uuid.New()
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		seedOrder(t, repo, buyerID, int64(2000+i), enums.OrderStatusSettled, base.Add(time.Duration(i)*time.Hour))
	}
	seedOrder(t, repo, uuid.New(), 3000, enums.OrderStatusSettled, base)

	page, err := repo.ListByBuyer(ctx, buyerID, pagination.Params{Limit: 3})
	require.NoError(t, err)
	require.Len(t, page.Orders, 3)
	assert.Equal(t, int64(2003), page.Orders[0].OrderNumber)
	require.NotEmpty(t, page.NextCursor)

	next, err := repo.ListByBuyer(ctx, buyerID, pagination.Params{Limit: 3, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Orders, 1)
	assert.Equal(t, int64(2000), next.Orders[0].OrderNumber)
	assert.Empty(t, next.NextCursor)
}
