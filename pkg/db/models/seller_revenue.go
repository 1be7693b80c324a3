package models

import (
	"time"

	"github.com/google/uuid"
)

// SellerRevenue is the per-seller earnings roll-up. EarnedCents accumulates
// the frozen 90% share at settlement and RefundedCents grows as refunds are
// approved; neither column ever decreases.
type SellerRevenue struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID      uuid.UUID `gorm:"column:seller_id;type:uuid;not null;uniqueIndex"`
	EarnedCents   int64     `gorm:"column:earned_cents;not null;default:0"`
	RefundedCents int64     `gorm:"column:refunded_cents;not null;default:0"`
	OrderCount    int64     `gorm:"column:order_count;not null;default:0"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
