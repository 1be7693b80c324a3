package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/weihengtan/motormart-backend/pkg/db/models"
	"github.com/weihengtan/motormart-backend/pkg/enums"
	pkgerrors "github.com/weihengtan/motormart-backend/pkg/errors"
	"github.com/weihengtan/motormart-backend/pkg/nets"
)

// qrRequester is the slice of the NETS client the QR rail uses.
type qrRequester interface {
	RequestQR(ctx context.Context, req nets.QRRequest) (*nets.TxnData, error)
	QueryStatus(ctx context.Context, txnRetrievalRef string, frontendTimeout bool) (*nets.TxnData, error)
}

type qrGateway struct {
	client   qrRequester
	qrExpiry time.Duration
	now      func() time.Time
}

// NewQRGateway returns the NETS bank QR rail. qrExpiry bounds how long a
// minted code stays scannable.
func NewQRGateway(client qrRequester, qrExpiry time.Duration) (Gateway, error) {
	if client == nil {
		return nil, fmt.Errorf("nets client required")
	}
	if qrExpiry <= 0 {
		qrExpiry = 5 * time.Minute
	}
	return &qrGateway{client: client, qrExpiry: qrExpiry, now: time.Now}, nil
}

func (g *qrGateway) Method() enums.PaymentMethod {
	return enums.PaymentMethodQRBank
}

func (g *qrGateway) CreateIntent(ctx context.Context, input CreateIntentInput) (*IntentResult, error) {
	data, err := g.client.RequestQR(ctx, nets.QRRequest{
		TxnID:       input.OrderID.String(),
		AmountCents: input.AmountCents,
	})
	if err != nil {
		return nil, err
	}

	expiresAt := g.now().Add(g.qrExpiry)
	return &IntentResult{
		Status:      enums.PaymentStatusPending,
		ExternalRef: &data.TxnRetrievalRef,
		QRCodeData:  &data.QRCode,
		ExpiresAt:   &expiresAt,
	}, nil
}

func (g *qrGateway) Confirm(ctx context.Context, intent *models.PaymentIntent) (*Confirmation, error) {
	if intent == nil || intent.ExternalRef == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment intent has no nets reference")
	}
	data, err := g.client.QueryStatus(ctx, *intent.ExternalRef, false)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query nets transaction status")
	}

	switch {
	case data.Succeeded():
		return &Confirmation{Status: enums.PaymentStatusSucceeded}, nil
	case data.Failed():
		return &Confirmation{Status: enums.PaymentStatusFailed, Reason: "nets transaction failed"}, nil
	default:
		return &Confirmation{Status: enums.PaymentStatusPending}, nil
	}
}

func (g *qrGateway) Refund(ctx context.Context, intent *models.PaymentIntent, amountCents int64) error {
	// NETS QR has no refund API; operators settle these out of band
	return pkgerrors.New(pkgerrors.CodeDependency, "nets qr payments cannot be refunded automatically")
}
