package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/weihengtan/motormart-backend/pkg/enums"
)

// WalletTopUp is a gateway-funded wallet deposit in flight. A top-up credits
// the ledger only once, when the gateway confirms; the CreditedAt stamp is
// what makes redelivered confirmations harmless.
type WalletTopUp struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Method        enums.PaymentMethod `gorm:"column:method;type:payment_method;not null"`
	Status        enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	AmountCents   int64               `gorm:"column:amount_cents;not null"`
	Currency      enums.Currency      `gorm:"column:currency;type:text;not null;default:'SGD'"`
	ExternalRef   *string             `gorm:"column:external_ref;index"`
	ClientSecret  *string             `gorm:"column:client_secret"`
	QRCodeData    *string             `gorm:"column:qr_code_data"`
	FailureReason *string             `gorm:"column:failure_reason"`
	CreditedAt    *time.Time          `gorm:"column:credited_at"`
	ExpiresAt     *time.Time          `gorm:"column:expires_at"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
