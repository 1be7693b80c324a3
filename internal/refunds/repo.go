package refunds

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

// Repository persists refund requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.RefundRequest) (*models.RefundRequest, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.RefundRequest, error)
	// Decide conditionally moves a pending request to its final status and
	// reports whether the update matched, so a second decision is a no-op.
	Decide(ctx context.Context, id uuid.UUID, status enums.RefundRequestStatus, note, gatewayWarning *string, decidedAt time.Time) (bool, error)
	ListForSeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*RequestList, error)
	ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.RefundRequest, error)
}

// RequestList is one page of a seller's refund queue.
type RequestList struct {
	Requests   []models.RefundRequest
	NextCursor string
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a refund request repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, request *models.RefundRequest) (*models.RefundRequest, error) {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		return nil, err
	}
	return request, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.RefundRequest, error) {
	var request models.RefundRequest
	err := r.db.WithContext(ctx).First(&request, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) Decide(ctx context.Context, id uuid.UUID, status enums.RefundRequestStatus, note, gatewayWarning *string, decidedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE refund_requests
		SET status = ?,
		    decision_note = ?,
		    gateway_warning = ?,
		    decided_at = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?`,
		status, note, gatewayWarning, decidedAt, id, enums.RefundRequestStatusPending)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) ListForSeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*RequestList, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(pageSize))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var requests []models.RefundRequest
	if err := query.Find(&requests).Error; err != nil {
		return nil, err
	}

	list := &RequestList{Requests: requests}
	if len(requests) > pageSize {
		list.Requests = requests[:pageSize]
		last := list.Requests[pageSize-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return list, nil
}

func (r *repository) ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.RefundRequest, error) {
	var requests []models.RefundRequest
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}
