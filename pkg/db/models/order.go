package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/weihengtan/motormart-backend/pkg/enums"
)

// Order is the settlement aggregate for a checkout. Totals and the
// seller/operator split are computed once and frozen at settlement; later
// pricing or policy changes never alter a settled order.
type Order struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID             uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null;index"`
	OrderNumber         int64               `gorm:"column:order_number;not null;uniqueIndex"`
	Status              enums.OrderStatus   `gorm:"column:status;type:order_status;not null;default:'cart'"`
	Currency            enums.Currency      `gorm:"column:currency;type:text;not null;default:'SGD'"`
	SubtotalCents       int64               `gorm:"column:subtotal_cents;not null"`
	DiscountCents       int64               `gorm:"column:discount_cents;not null;default:0"`
	DiscountCode        *string             `gorm:"column:discount_code"`
	PlatformFeeCents    int64               `gorm:"column:platform_fee_cents;not null;default:0"`
	TaxCents            int64               `gorm:"column:tax_cents;not null;default:0"`
	TotalCents          int64               `gorm:"column:total_cents;not null"`
	SellerEarningsCents int64               `gorm:"column:seller_earnings_cents;not null;default:0"`
	OperatorFeeCents    int64               `gorm:"column:operator_fee_cents;not null;default:0"`
	PaymentMethod       enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null"`
	RefundStatus        enums.RefundStatus  `gorm:"column:refund_status;type:refund_status;not null;default:'none'"`
	RefundedCents       int64               `gorm:"column:refunded_cents;not null;default:0"`
	FailureReason       *string             `gorm:"column:failure_reason"`
	SettledAt           *time.Time          `gorm:"column:settled_at"`
	FailedAt            *time.Time          `gorm:"column:failed_at"`
	Items               []OrderLineItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PaymentIntent       *PaymentIntent      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
