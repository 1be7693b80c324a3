package refunds

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/weihengtan/motormart-backend/pkg/db/models"
	"github.com/weihengtan/motormart-backend/pkg/enums"
	"github.com/weihengtan/motormart-backend/pkg/pagination"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:refunds_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`
		CREATE TABLE refund_requests (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL,
			line_item_id TEXT NOT NULL,
			buyer_id TEXT NOT NULL,
			seller_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			amount_cents INTEGER NOT NULL,
			reason TEXT NOT NULL,
			decision_note TEXT,
			gateway_warning TEXT,
			decided_at DATETIME,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`).Error)
	return db
}

func seedRequest(t *testing.T, repo Repository, sellerID uuid.UUID, createdAt time.Time) *models.RefundRequest {
	t.Helper()

	request, err := repo.Create(context.Background(), &models.RefundRequest{
		OrderID:     uuid.New(),
		LineItemID:  uuid.New(),
		BuyerID:     uuid.New(),
		SellerID:    sellerID,
		Status:      enums.RefundRequestStatusPending,
		AmountCents: 2500,
		Reason:      "item arrived damaged",
		CreatedAt:   createdAt,
	})
	require.NoError(t, err)
	return request
}

func TestDecideOnlyOnce(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	request := seedRequest(t, repo, uuid.New(), time.Now())
	note := "approved after photos"
	decidedAt := time.Now().UTC()

	decided, err := repo.Decide(context.Background(), request.ID, enums.RefundRequestStatusApproved, &note, nil, decidedAt)
	require.NoError(t, err)
	require.True(t, decided)

	// A second decision must not match.
	decided, err = repo.Decide(context.Background(), request.ID, enums.RefundRequestStatusRejected, nil, nil, decidedAt)
	require.NoError(t, err)
	require.False(t, decided)

	found, err := repo.FindByID(context.Background(), request.ID)
	require.NoError(t, err)
	require.Equal(t, enums.RefundRequestStatusApproved, found.Status)
	require.NotNil(t, found.DecisionNote)
	require.Equal(t, note, *found.DecisionNote)
	require.NotNil(t, found.DecidedAt)
}

func TestDecideStoresGatewayWarning(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	request := seedRequest(t, repo, uuid.New(), time.Now())
	warning := "gateway refund failed: provider unavailable"

	decided, err := repo.Decide(context.Background(), request.ID, enums.RefundRequestStatusApproved, nil, &warning, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, decided)

	found, err := repo.FindByID(context.Background(), request.ID)
	require.NoError(t, err)
	require.NotNil(t, found.GatewayWarning)
	require.Equal(t, warning, *found.GatewayWarning)
}

func TestFindByIDMissing(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	found, err := repo.FindByID(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Nil(t, found)
}

func TestListForSellerPaginates(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	sellerID := uuid.New()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 4; i++ {
		seedRequest(t, repo, sellerID, base.Add(time.Duration(i)*time.Minute))
	}
	seedRequest(t, repo, uuid.New(), base) // other seller, never listed

	page, err := repo.ListForSeller(context.Background(), sellerID, pagination.Params{Limit: 3})
	require.NoError(t, err)
	require.Len(t, page.Requests, 3)
	require.NotEmpty(t, page.NextCursor)

	rest, err := repo.ListForSeller(context.Background(), sellerID, pagination.Params{Limit: 3, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Requests, 1)
	require.Empty(t, rest.NextCursor)
}

func TestListForOrder(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	request := seedRequest(t, repo, uuid.New(), time.Now())

	listed, err := repo.ListForOrder(context.Background(), request.OrderID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, request.ID, listed[0].ID)

	empty, err := repo.ListForOrder(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Empty(t, empty)
}
