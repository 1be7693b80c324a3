package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/weihengtan/motormart-backend/pkg/enums"
)

// OrderSettledEvent is emitted once per settled order, in the same
// transaction that commits the settlement.
type OrderSettledEvent struct {
	OrderID             uuid.UUID           `json:"order_id"`
	BuyerID             uuid.UUID           `json:"buyer_id"`
	OrderNumber         int64               `json:"order_number"`
	PaymentMethod       enums.PaymentMethod `json:"payment_method"`
	SubtotalCents       int64               `json:"subtotal_cents"`
	DiscountCents       int64               `json:"discount_cents"`
	PlatformFeeCents    int64               `json:"platform_fee_cents"`
	TaxCents            int64               `json:"tax_cents"`
	TotalCents          int64               `json:"total_cents"`
	SellerEarningsCents int64               `json:"seller_earnings_cents"`
	OperatorFeeCents    int64               `json:"operator_fee_cents"`
	SettledAt           time.Time           `json:"settled_at"`
}

// OrderFailedEvent records a settlement that could not complete.
type OrderFailedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	BuyerID       uuid.UUID           `json:"buyer_id"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Reason        string              `json:"reason"`
	FailedAt      time.Time           `json:"failed_at"`
}

// OrderRefundedEvent is emitted when an approved refund lands on an order.
type OrderRefundedEvent struct {
	OrderID         uuid.UUID          `json:"order_id"`
	RefundRequestID uuid.UUID          `json:"refund_request_id"`
	BuyerID         uuid.UUID          `json:"buyer_id"`
	SellerID        uuid.UUID          `json:"seller_id"`
	AmountCents     int64              `json:"amount_cents"`
	RefundedCents   int64              `json:"refunded_cents"`
	RefundStatus    enums.RefundStatus `json:"refund_status"`
}

// PaymentStatusEvent covers payment_succeeded, payment_failed and
// payment_expired transitions on an intent.
type PaymentStatusEvent struct {
	PaymentIntentID uuid.UUID           `json:"payment_intent_id"`
	OrderID         uuid.UUID           `json:"order_id"`
	Method          enums.PaymentMethod `json:"method"`
	Status          enums.PaymentStatus `json:"status"`
	AmountCents     int64               `json:"amount_cents"`
	ExternalRef     string              `json:"external_ref,omitempty"`
	Reason          string              `json:"reason,omitempty"`
}

// RefundRequestedEvent notifies the owning seller of a new refund request.
type RefundRequestedEvent struct {
	RefundRequestID uuid.UUID `json:"refund_request_id"`
	OrderID         uuid.UUID `json:"order_id"`
	LineItemID      uuid.UUID `json:"line_item_id"`
	BuyerID         uuid.UUID `json:"buyer_id"`
	SellerID        uuid.UUID `json:"seller_id"`
	AmountCents     int64     `json:"amount_cents"`
	Reason          string    `json:"reason"`
}

// RefundDecidedEvent reports a seller's decision on a refund request.
type RefundDecidedEvent struct {
	RefundRequestID uuid.UUID                 `json:"refund_request_id"`
	OrderID         uuid.UUID                 `json:"order_id"`
	BuyerID         uuid.UUID                 `json:"buyer_id"`
	SellerID        uuid.UUID                 `json:"seller_id"`
	Status          enums.RefundRequestStatus `json:"status"`
	AmountCents     int64                     `json:"amount_cents"`
	DecisionNote    string                    `json:"decision_note,omitempty"`
	GatewayWarning  string                    `json:"gateway_warning,omitempty"`
	DecidedAt       time.Time                 `json:"decided_at"`
}

// WalletMovementEvent covers wallet_credited and wallet_debited entries.
type WalletMovementEvent struct {
	TransactionID     uuid.UUID                   `json:"transaction_id"`
	UserID            uuid.UUID                   `json:"user_id"`
	Kind              enums.WalletTransactionKind `json:"kind"`
	AmountCents       int64                       `json:"amount_cents"`
	BalanceAfterCents int64                       `json:"balance_after_cents"`
	Reference         string                      `json:"reference,omitempty"`
}

// NotificationRequestedEvent tells downstream systems to alert a user.
type NotificationRequestedEvent struct {
	UserID  uuid.UUID `json:"user_id"`
	OrderID uuid.UUID `json:"order_id"`
	Type    string    `json:"type"`
}
