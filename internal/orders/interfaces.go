package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weihengtan/motormart-backend/pkg/db/models"
	"github.com/weihengtan/motormart-backend/pkg/enums"
	"github.com/weihengtan/motormart-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and the per-seller
// revenue roll-up.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderLineItems(ctx context.Context, items []models.OrderLineItem) error
	CreatePaymentIntent(ctx context.Context, intent *models.PaymentIntent) (*models.PaymentIntent, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindLineItem(ctx context.Context, lineItemID uuid.UUID) (*models.OrderLineItem, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderList, error)
	// FindAwaitingBefore returns orders still waiting on an external payment
	// rail whose creation predates the cutoff.
	FindAwaitingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	// UpdateStatus moves the order from one status to another and reports
	// whether the conditional update matched, so illegal jumps are no-ops.
	UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (bool, error)
	MarkSettled(ctx context.Context, orderID uuid.UUID) (bool, error)
	MarkFailed(ctx context.Context, orderID uuid.UUID, reason string) (bool, error)
	// AddRefundedCents adds to the order's refunded balance and derives the
	// refund status from the updated row. It reports false when the increment
	// would push past total_cents, leaving the row untouched.
	AddRefundedCents(ctx context.Context, orderID uuid.UUID, amountCents int64) (bool, error)
	MarkLineItemRestocked(ctx context.Context, lineItemID uuid.UUID) error
	RecordSellerSale(ctx context.Context, sellerID uuid.UUID, earnedCents int64) error
	RecordSellerRefund(ctx context.Context, sellerID uuid.UUID, refundedCents int64) error
	SellerRevenue(ctx context.Context, sellerID uuid.UUID) (*models.SellerRevenue, error)
}

// OrderList is one page of a buyer's order history.
type OrderList struct {
	Orders     []models.Order
	NextCursor string
}
