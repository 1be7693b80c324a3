package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/weihengtan/motormart-backend/pkg/db/models"
	pkgerrors "github.com/weihengtan/motormart-backend/pkg/errors"
	"github.com/weihengtan/motormart-backend/pkg/logger"
)

// A failed card attempt is not terminal: the buyer can retry on the same
// intent, so only success resolves anything here. Stale orders are expired by
// the pending-order sweep instead.
type orderConfirmer interface {
	ConfirmByRef(ctx context.Context, externalRef string, actorID uuid.UUID) (*models.Order, error)
}

type topUpConfirmer interface {
	ConfirmByRef(ctx context.Context, externalRef string) (*models.WalletTopUp, error)
}

type ServiceParams struct {
	Checkout orderConfirmer
	TopUps   topUpConfirmer
	Logger   *logger.Logger
}

// Service resolves Stripe payment notifications against whatever the payment
// intent was opened for: an order settlement or a wallet top-up.
type Service struct {
	checkout orderConfirmer
	topups   topUpConfirmer
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Checkout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout service required")
	}
	if params.TopUps == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "top-up service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{checkout: params.Checkout, topups: params.TopUps, logg: params.Logger}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		return s.resolveSucceeded(ctx, intent.ID)
	case stripe.EventTypePaymentIntentPaymentFailed, stripe.EventTypePaymentIntentCanceled:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		return s.resolveFailed(ctx, intent.ID, failureReason(intent))
	default:
		return nil
	}
}

// resolveSucceeded settles whichever record owns the payment intent. An
// unknown reference is acknowledged rather than retried forever; Stripe can
// deliver events for intents created by another environment.
func (s *Service) resolveSucceeded(ctx context.Context, externalRef string) error {
	// The signed webhook is a trusted system caller, hence the nil actor.
	_, err := s.checkout.ConfirmByRef(ctx, externalRef, uuid.Nil)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return err
	}

	_, err = s.topups.ConfirmByRef(ctx, externalRef)
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		s.logg.Warn(s.logg.WithField(ctx, "external_ref", externalRef), "stripe success for unknown payment intent")
		return nil
	}
	return err
}

func (s *Service) resolveFailed(ctx context.Context, externalRef, reason string) error {
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"external_ref": externalRef,
		"reason":       reason,
	}), "stripe payment failed")
	return nil
}

func decodeIntent(event *stripe.Event) (*stripe.PaymentIntent, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment intent event")
	}
	if intent.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}
	return &intent, nil
}

func failureReason(intent *stripe.PaymentIntent) string {
	if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
		return intent.LastPaymentError.Msg
	}
	return "payment failed"
}

func isNotFound(err error) bool {
	typed := pkgerrors.As(err)
	return typed != nil && typed.Code() == pkgerrors.CodeNotFound
}
