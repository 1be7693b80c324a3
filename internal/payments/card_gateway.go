package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"
	"github.com/stripe/stripe-go/v84/refund"

	"github.com/weihengtan/motormart-backend/pkg/db/models"
	"github.com/weihengtan/motormart-backend/pkg/enums"
	pkgerrors "github.com/weihengtan/motormart-backend/pkg/errors"
	pkgstripe "github.com/weihengtan/motormart-backend/pkg/stripe"
)

// StripePaymentClient exposes the subset of Stripe operations the card rail
// needs, so the gateway can be tested without the live API.
type StripePaymentClient interface {
	CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	CreateRefund(ctx context.Context, params *stripe.RefundParams) (*stripe.Refund, error)
}

type stripeClientWrapper struct{}

// NewStripePaymentClient wraps the initialized Stripe client behind the
// narrow interface used by the card gateway.
func NewStripePaymentClient(api *pkgstripe.Client) StripePaymentClient {
	if api == nil {
		return nil
	}
	return &stripeClientWrapper{}
}

func (w *stripeClientWrapper) CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if params != nil {
		params.Context = ctx
	}
	return paymentintent.New(params)
}

func (w *stripeClientWrapper) GetPaymentIntent(ctx context.Context, id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if params == nil {
		params = &stripe.PaymentIntentParams{}
	}
	params.Context = ctx
	return paymentintent.Get(id, params)
}

func (w *stripeClientWrapper) CreateRefund(ctx context.Context, params *stripe.RefundParams) (*stripe.Refund, error) {
	if params != nil {
		params.Context = ctx
	}
	return refund.New(params)
}

type cardGateway struct {
	client StripePaymentClient
}

// NewCardGateway returns the Stripe card rail.
func NewCardGateway(client StripePaymentClient) (Gateway, error) {
	if client == nil {
		return nil, fmt.Errorf("stripe payment client required")
	}
	return &cardGateway{client: client}, nil
}

func (g *cardGateway) Method() enums.PaymentMethod {
	return enums.PaymentMethodCard
}

func (g *cardGateway) CreateIntent(ctx context.Context, input CreateIntentInput) (*IntentResult, error) {
	currency := strings.ToLower(string(input.Currency))
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(input.AmountCents),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: map[string]string{
			"order_id": input.OrderID.String(),
			"user_id":  input.UserID.String(),
		},
	}
	if input.Description != "" {
		params.Description = stripe.String(input.Description)
	}

	intent, err := g.client.CreatePaymentIntent(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentDeclined, err, "create stripe payment intent")
	}

	return &IntentResult{
		Status:       enums.PaymentStatusPending,
		ExternalRef:  stripe.String(intent.ID),
		ClientSecret: stripe.String(intent.ClientSecret),
	}, nil
}

func (g *cardGateway) Confirm(ctx context.Context, intent *models.PaymentIntent) (*Confirmation, error) {
	if intent == nil || intent.ExternalRef == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment intent has no stripe reference")
	}
	pi, err := g.client.GetPaymentIntent(ctx, *intent.ExternalRef, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch stripe payment intent")
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return &Confirmation{Status: enums.PaymentStatusSucceeded}, nil
	case stripe.PaymentIntentStatusCanceled:
		reason := "payment intent canceled"
		if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
			reason = pi.LastPaymentError.Msg
		}
		return &Confirmation{Status: enums.PaymentStatusFailed, Reason: reason}, nil
	default:
		// A declined attempt leaves the intent requiring a new payment
		// method, so anything short of terminal stays pending.
		return &Confirmation{Status: enums.PaymentStatusPending}, nil
	}
}

func (g *cardGateway) Refund(ctx context.Context, intent *models.PaymentIntent, amountCents int64) error {
	if intent == nil || intent.ExternalRef == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "payment intent has no stripe reference")
	}
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(*intent.ExternalRef),
		Amount:        stripe.Int64(amountCents),
	}
	if _, err := g.client.CreateRefund(ctx, params); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stripe refund")
	}
	return nil
}
