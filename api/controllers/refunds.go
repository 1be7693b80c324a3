package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/weihengtan/motormart-backend/api/responses"
	"github.com/weihengtan/motormart-backend/api/validators"
	"github.com/weihengtan/motormart-backend/internal/refunds"
	"github.com/weihengtan/motormart-backend/pkg/db/models"
	pkgerrors "github.com/weihengtan/motormart-backend/pkg/errors"
	"github.com/weihengtan/motormart-backend/pkg/logger"
)

// RefundRequestCreate files a refund request against one line of a settled
// order. The owning seller decides it later.
func RefundRequestCreate(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		var payload refundRequestBody
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Request(r.Context(), refunds.RequestInput{
			BuyerID:     buyerID,
			OrderID:     orderID,
			LineItemID:  payload.LineItemID,
			AmountCents: payload.AmountCents,
			Reason:      payload.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newRefundResponse(request))
	}
}

// SellerRefundsList pages through refund requests awaiting or past decision
// for the authenticated seller.
func SellerRefundsList(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForSeller(r.Context(), sellerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]refundResponse, 0, len(list.Requests))
		for i := range list.Requests {
			items = append(items, newRefundResponse(&list.Requests[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"refund_requests": items,
			"next_cursor":     list.NextCursor,
		})
	}
}

// RefundApprove approves a pending request, moving the money back on the rail
// it was collected on and optionally restocking the line.
func RefundApprove(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		refundID, err := refundIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload refundDecisionBody
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Approve(r.Context(), refundID, sellerID, refunds.ApproveInput{
			RestoreInventory: payload.RestoreInventory,
			Note:             payload.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newRefundResponse(request))
	}
}

// RefundReject rejects a pending request with an optional note.
func RefundReject(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		refundID, err := refundIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload refundDecisionBody
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Reject(r.Context(), refundID, sellerID, payload.Note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newRefundResponse(request))
	}
}

func refundIDFromRequest(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "refundId"))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid refund id")
	}
	return id, nil
}

type refundRequestBody struct {
	LineItemID  uuid.UUID `json:"line_item_id" validate:"required"`
	AmountCents int64     `json:"amount_cents" validate:"required,min=1"`
	Reason      string    `json:"reason" validate:"required,min=3,max=500"`
}

type refundDecisionBody struct {
	RestoreInventory bool   `json:"restore_inventory,omitempty"`
	Note             string `json:"note,omitempty" validate:"omitempty,max=500"`
}

type refundResponse struct {
	RefundID       uuid.UUID  `json:"refund_id"`
	OrderID        uuid.UUID  `json:"order_id"`
	LineItemID     uuid.UUID  `json:"line_item_id"`
	BuyerID        uuid.UUID  `json:"buyer_id"`
	SellerID       uuid.UUID  `json:"seller_id"`
	Status         string     `json:"status"`
	AmountCents    int64      `json:"amount_cents"`
	Reason         string     `json:"reason"`
	DecisionNote   *string    `json:"decision_note,omitempty"`
	GatewayWarning *string    `json:"gateway_warning,omitempty"`
	DecidedAt      *time.Time `json:"decided_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func newRefundResponse(request *models.RefundRequest) refundResponse {
	if request == nil {
		return refundResponse{}
	}
	return refundResponse{
		RefundID:       request.ID,
		OrderID:        request.OrderID,
		LineItemID:     request.LineItemID,
		BuyerID:        request.BuyerID,
		SellerID:       request.SellerID,
		Status:         string(request.Status),
		AmountCents:    request.AmountCents,
		Reason:         request.Reason,
		DecisionNote:   request.DecisionNote,
		GatewayWarning: request.GatewayWarning,
		DecidedAt:      request.DecidedAt,
		CreatedAt:      request.CreatedAt,
	}
}
