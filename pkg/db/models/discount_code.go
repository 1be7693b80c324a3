package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/weihengtan/motormart-backend/pkg/enums"
)

// DiscountCode represents an operator-managed discount. Value is a percentage
// (0..100) for percentage codes and a currency amount for fixed codes.
type DiscountCode struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code        string             `gorm:"column:code;type:text;not null;uniqueIndex"`
	Kind        enums.DiscountKind `gorm:"column:kind;type:discount_kind;not null"`
	Value       decimal.Decimal    `gorm:"column:value;type:numeric(10,2);not null"`
	MaxUses     *int               `gorm:"column:max_uses"`
	UsedCount   int                `gorm:"column:used_count;not null;default:0"`
	MinSubtotal *int64             `gorm:"column:min_subtotal_cents"`
	StartsAt    *time.Time         `gorm:"column:starts_at"`
	ExpiresAt   *time.Time         `gorm:"column:expires_at"`
	IsActive    bool               `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
