package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/weihengtan/motormart-backend/api/responses"
	"github.com/weihengtan/motormart-backend/api/validators"
	checkoutsvc "github.com/weihengtan/motormart-backend/internal/checkout"
	"github.com/weihengtan/motormart-backend/pkg/enums"
	pkgerrors "github.com/weihengtan/motormart-backend/pkg/errors"
	"github.com/weihengtan/motormart-backend/pkg/logger"
)

// Checkout settles an explicit list of cart lines. The wallet rail returns a
// settled order; card and QR rails return an awaiting_authorization order plus
// the material the buyer needs to finish paying.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		buyerID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		lines := make([]checkoutsvc.LineInput, 0, len(payload.Lines))
		for _, line := range payload.Lines {
			lines = append(lines, checkoutsvc.LineInput{
				ProductID:      line.ProductID,
				Qty:            line.Qty,
				UnitPriceCents: line.UnitPriceCents,
			})
		}

		result, err := svc.Execute(r.Context(), checkoutsvc.Input{
			BuyerID:      buyerID,
			Method:       method,
			Lines:        lines,
			DiscountCode: payload.DiscountCode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := newOrderResponse(result.Order)
		if resp.Payment == nil {
			resp.Payment = newPaymentResponse(result.Intent)
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

// CheckoutConfirm completes an externally paid order once the buyer's client
// reports gateway success. The service re-checks the rail and buyer ownership,
// and the webhook path lands the same transition, so a confirmed order
// confirms again as a no-op.
func CheckoutConfirm(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutConfirmRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		switch {
		case payload.OrderID != nil:
			settled, err := svc.Confirm(r.Context(), *payload.OrderID, buyerID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, newOrderResponse(settled))
		case payload.ExternalRef != "":
			settled, err := svc.ConfirmByRef(r.Context(), payload.ExternalRef, buyerID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, newOrderResponse(settled))
		default:
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "order_id or external_ref is required"))
		}
	}
}

type checkoutRequest struct {
	Lines         []checkoutLineRequest `json:"lines" validate:"required,min=1,dive"`
	PaymentMethod string                `json:"payment_method" validate:"required"`
	DiscountCode  string                `json:"discount_code,omitempty"`
}

type checkoutLineRequest struct {
	ProductID      uuid.UUID `json:"product_id" validate:"required"`
	Qty            int       `json:"qty" validate:"required,min=1"`
	UnitPriceCents int64     `json:"unit_price_cents,omitempty" validate:"omitempty,min=1"`
}

type checkoutConfirmRequest struct {
	OrderID     *uuid.UUID `json:"order_id,omitempty"`
	ExternalRef string     `json:"external_ref,omitempty"`
}
