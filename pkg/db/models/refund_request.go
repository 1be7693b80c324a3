package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/weihengtan/motormart-backend/pkg/enums"
)

// RefundRequest is a buyer's request to refund part or all of a settled
// order. Only the seller who owns the referenced line item may decide it.
type RefundRequest struct {
	ID             uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID                 `gorm:"column:order_id;type:uuid;not null;index"`
	LineItemID     uuid.UUID                 `gorm:"column:line_item_id;type:uuid;not null;index"`
	BuyerID        uuid.UUID                 `gorm:"column:buyer_id;type:uuid;not null;index"`
	SellerID       uuid.UUID                 `gorm:"column:seller_id;type:uuid;not null;index"`
	Status         enums.RefundRequestStatus `gorm:"column:status;type:refund_request_status;not null;default:'pending'"`
	AmountCents    int64                     `gorm:"column:amount_cents;not null"`
	Reason         string                    `gorm:"column:reason;type:text;not null"`
	DecisionNote   *string                   `gorm:"column:decision_note;type:text"`
	GatewayWarning *string                   `gorm:"column:gateway_warning;type:text"`
	DecidedAt      *time.Time                `gorm:"column:decided_at"`
	CreatedAt      time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}
