package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/weihengtan/motormart-backend/pkg/enums"
)

// Product is a seller listing. Unique products carry Quantity 1 and are
// deleted outright when sold; stocked products decrement Quantity under a
// conditional update so concurrent checkouts cannot oversell.
type Product struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID    uuid.UUID         `gorm:"column:seller_id;type:uuid;not null;index"`
	Kind        enums.ProductKind `gorm:"column:kind;type:product_kind;not null;default:'stocked'"`
	Title       string            `gorm:"column:title;type:text;not null"`
	Description *string           `gorm:"column:description;type:text"`
	PriceCents  int64             `gorm:"column:price_cents;not null"`
	Currency    enums.Currency    `gorm:"column:currency;type:text;not null;default:'SGD'"`
	Quantity    int               `gorm:"column:quantity;not null;default:0"`
	IsActive    bool              `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
