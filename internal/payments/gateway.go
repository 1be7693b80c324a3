package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/weihengtan/motormart-backend/pkg/db/models"
	"github.com/weihengtan/motormart-backend/pkg/enums"
	pkgerrors "github.com/weihengtan/motormart-backend/pkg/errors"
)

// CreateIntentInput carries everything a rail needs to start collecting a
// payment.
type CreateIntentInput struct {
	OrderID     uuid.UUID
	UserID      uuid.UUID
	AmountCents int64
	Currency    enums.Currency
	Description string
}

// IntentResult is the rail-specific material handed back to the caller. The
// wallet rail settles inline and reports a succeeded status; card and QR rails
// stay pending until confirmed.
type IntentResult struct {
	Status       enums.PaymentStatus
	ExternalRef  *string
	ClientSecret *string
	QRCodeData   *string
	ExpiresAt    *time.Time
}

// Confirmation is the rail's authoritative view of an intent. Settlement only
// proceeds when the rail itself reports success; a pending status means the
// buyer has not finished paying yet.
type Confirmation struct {
	Status enums.PaymentStatus
	Reason string
}

// Gateway abstracts one payment rail.
type Gateway interface {
	Method() enums.PaymentMethod
	CreateIntent(ctx context.Context, input CreateIntentInput) (*IntentResult, error)
	// Confirm queries the rail for the intent's current state so the caller
	// never has to trust a client-supplied outcome.
	Confirm(ctx context.Context, intent *models.PaymentIntent) (*Confirmation, error)
	// Refund pushes money back on the rail it was collected on. Rails without
	// a refund API return a dependency error the caller records as a warning.
	Refund(ctx context.Context, intent *models.PaymentIntent, amountCents int64) error
}

// Registry resolves gateways by payment method.
type Registry struct {
	gateways map[enums.PaymentMethod]Gateway
}

// NewRegistry indexes the provided gateways by their method.
func NewRegistry(gateways ...Gateway) (*Registry, error) {
	indexed := make(map[enums.PaymentMethod]Gateway, len(gateways))
	for _, gw := range gateways {
		if gw == nil {
			continue
		}
		method := gw.Method()
		if _, exists := indexed[method]; exists {
			return nil, fmt.Errorf("duplicate gateway for method %s", method)
		}
		indexed[method] = gw
	}
	if len(indexed) == 0 {
		return nil, fmt.Errorf("at least one gateway required")
	}
	return &Registry{gateways: indexed}, nil
}

// Resolve returns the gateway for the method or a validation error when the
// rail is not offered.
func (r *Registry) Resolve(method enums.PaymentMethod) (Gateway, error) {
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	gw, ok := r.gateways[method]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("payment method %s is not available", method))
	}
	return gw, nil
}
