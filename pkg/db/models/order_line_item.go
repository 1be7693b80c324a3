package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/weihengtan/motormart-backend/pkg/enums"
)

// OrderLineItem snapshots a product at settlement time. ProductID is nullable
// because unique products are deleted when sold; the snapshot columns keep the
// order self-describing after that.
type OrderLineItem struct {
	ID                  uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID             uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID           *uuid.UUID        `gorm:"column:product_id;type:uuid"`
	SellerID            uuid.UUID         `gorm:"column:seller_id;type:uuid;not null;index"`
	ProductKind         enums.ProductKind `gorm:"column:product_kind;type:product_kind;not null"`
	Title               string            `gorm:"column:title;type:text;not null"`
	UnitPriceCents      int64             `gorm:"column:unit_price_cents;not null"`
	Quantity            int               `gorm:"column:quantity;not null"`
	LineTotalCents      int64             `gorm:"column:line_total_cents;not null"`
	SellerEarningsCents int64             `gorm:"column:seller_earnings_cents;not null;default:0"`
	RestockedAt         *time.Time        `gorm:"column:restocked_at"`
	CreatedAt           time.Time         `gorm:"column:created_at;autoCreateTime"`
}
