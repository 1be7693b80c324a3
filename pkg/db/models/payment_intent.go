package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/weihengtan/motormart-backend/pkg/enums"
)

// PaymentIntent tracks a single payment attempt on one rail. ExternalRef holds
// the provider identifier (Stripe payment intent id, NETS transaction ref) and
// is what refunds are issued against.
type PaymentIntent struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	UserID        uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Method        enums.PaymentMethod `gorm:"column:method;type:payment_method;not null"`
	Status        enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	AmountCents   int64               `gorm:"column:amount_cents;not null"`
	Currency      enums.Currency      `gorm:"column:currency;type:text;not null;default:'SGD'"`
	ExternalRef   *string             `gorm:"column:external_ref;index"`
	ClientSecret  *string             `gorm:"column:client_secret"`
	QRCodeData    *string             `gorm:"column:qr_code_data"`
	FailureReason *string             `gorm:"column:failure_reason"`
	SucceededAt   *time.Time          `gorm:"column:succeeded_at"`
	ExpiresAt     *time.Time          `gorm:"column:expires_at"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
