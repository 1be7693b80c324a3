package payments

import (
	"context"

	"github.com/weihengtan/motormart-backend/pkg/db/models"
	"github.com/weihengtan/motormart-backend/pkg/enums"
)

// walletGateway is the internal rail. The actual balance debit happens inside
// the checkout transaction, so creating an intent is just an acknowledgement
// that the rail settles inline.
type walletGateway struct{}

// NewWalletGateway returns the wallet rail.
func NewWalletGateway() Gateway {
	return walletGateway{}
}

func (walletGateway) Method() enums.PaymentMethod {
	return enums.PaymentMethodWallet
}

func (walletGateway) CreateIntent(ctx context.Context, input CreateIntentInput) (*IntentResult, error) {
	return &IntentResult{Status: enums.PaymentStatusSucceeded}, nil
}

func (walletGateway) Confirm(ctx context.Context, intent *models.PaymentIntent) (*Confirmation, error) {
	return &Confirmation{Status: enums.PaymentStatusSucceeded}, nil
}

func (walletGateway) Refund(ctx context.Context, intent *models.PaymentIntent, amountCents int64) error {
	// wallet refunds are ledger credits performed by the refund transaction
	return nil
}
