package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weihengtan/motormart-backend/pkg/db/models"
	"github.com/weihengtan/motormart-backend/pkg/enums"
	"github.com/weihengtan/motormart-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Omit("Items", "PaymentIntent").Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) CreateOrderLineItems(ctx context.Context, items []models.OrderLineItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) CreatePaymentIntent(ctx context.Context, intent *models.PaymentIntent) (*models.PaymentIntent, error) {
	if err := r.db.WithContext(ctx).Create(intent).Error; err != nil {
		return nil, err
	}
	return intent, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("PaymentIntent").
		First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindLineItem(ctx context.Context, lineItemID uuid.UUID) (*models.OrderLineItem, error) {
	var item models.OrderLineItem
	err := r.db.WithContext(ctx).First(&item, "id = ?", lineItemID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).
		Preload("Items").
		Where("buyer_id = ?", buyerID)
	if cursor != nil {
		qb = qb.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	err = qb.Order("created_at DESC, id DESC").
		Limit(limitWithBuffer).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	list := &OrderList{Orders: rows}
	if len(rows) > pageSize {
		list.Orders = rows[:pageSize]
		last := list.Orders[pageSize-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return list, nil
}

func (r *repository) FindAwaitingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("PaymentIntent").
		Where("status = ? AND created_at < ?", enums.OrderStatusAwaitingAuthorization, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE orders SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?`,
		to, orderID, from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) MarkSettled(ctx context.Context, orderID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?, settled_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?`,
		enums.OrderStatusSettled, orderID, enums.OrderStatusCommitting,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) MarkFailed(ctx context.Context, orderID uuid.UUID, reason string) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?, failure_reason = ?, failed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status NOT IN (?, ?)`,
		enums.OrderStatusFailed, reason, orderID, enums.OrderStatusSettled, enums.OrderStatusFailed,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// AddRefundedCents is the authoritative guard against over-refunding: the
// increment only lands while it stays within total_cents, and the refund
// status is recomputed from the row rather than trusted from the caller.
func (r *repository) AddRefundedCents(ctx context.Context, orderID uuid.UUID, amountCents int64) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET refunded_cents = refunded_cents + ?,
		     refund_status = CASE WHEN refunded_cents + ? >= total_cents THEN ? ELSE ? END,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND refunded_cents + ? <= total_cents`,
		amountCents, amountCents, enums.RefundStatusFull, enums.RefundStatusPartial, orderID, amountCents,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) MarkLineItemRestocked(ctx context.Context, lineItemID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE order_line_items SET restocked_at = CURRENT_TIMESTAMP WHERE id = ?`,
		lineItemID,
	).Error
}

func (r *repository) RecordSellerSale(ctx context.Context, sellerID uuid.UUID, earnedCents int64) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO seller_revenues (id, seller_id, earned_cents, refunded_cents, order_count, created_at, updated_at)
		 VALUES (?, ?, ?, 0, 1, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		 ON CONFLICT (seller_id) DO UPDATE SET
		   earned_cents = seller_revenues.earned_cents + excluded.earned_cents,
		   order_count = seller_revenues.order_count + 1,
		   updated_at = CURRENT_TIMESTAMP`,
		uuid.New(), sellerID, earnedCents,
	).Error
}

func (r *repository) RecordSellerRefund(ctx context.Context, sellerID uuid.UUID, refundedCents int64) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE seller_revenues
		 SET refunded_cents = refunded_cents + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE seller_id = ?`,
		refundedCents, sellerID,
	).Error
}

func (r *repository) SellerRevenue(ctx context.Context, sellerID uuid.UUID) (*models.SellerRevenue, error) {
	var revenue models.SellerRevenue
	err := r.db.WithContext(ctx).First(&revenue, "seller_id = ?", sellerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &revenue, nil
}
