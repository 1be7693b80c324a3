package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/weihengtan/motormart-backend/pkg/enums"
)

// WalletTransaction is an immutable wallet ledger entry. Rows are append-only:
// nothing updates or deletes them after insert, so BalanceBeforeCents and
// BalanceAfterCents form an auditable chain per user.
type WalletTransaction struct {
	ID                 uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID             uuid.UUID                   `gorm:"column:user_id;type:uuid;not null;index"`
	Kind               enums.WalletTransactionKind `gorm:"column:kind;type:wallet_transaction_kind;not null"`
	AmountCents        int64                       `gorm:"column:amount_cents;not null"`
	BalanceBeforeCents int64                       `gorm:"column:balance_before_cents;not null"`
	BalanceAfterCents  int64                       `gorm:"column:balance_after_cents;not null"`
	Description        string                      `gorm:"column:description;not null"`
	Reference          *string                     `gorm:"column:reference"`
	CreatedAt          time.Time                   `gorm:"column:created_at;autoCreateTime"`
}
