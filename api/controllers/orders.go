package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/weihengtan/motormart-backend/api/responses"
	"github.com/weihengtan/motormart-backend/api/validators"
	"github.com/weihengtan/motormart-backend/internal/orders"
	"github.com/weihengtan/motormart-backend/pkg/db/models"
	pkgerrors "github.com/weihengtan/motormart-backend/pkg/errors"
	"github.com/weihengtan/motormart-backend/pkg/logger"
	"github.com/weihengtan/motormart-backend/pkg/pagination"
)

// OrdersList returns the authenticated buyer's order history, newest first.
func OrdersList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForBuyer(r.Context(), buyerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]orderResponse, 0, len(list.Orders))
		for i := range list.Orders {
			items = append(items, newOrderResponse(&list.Orders[i]))
		}
		responses.WriteSuccess(w, orderListResponse{Orders: items, NextCursor: list.NextCursor})
	}
}

// OrderDetail returns a single order with line items for the receipt page.
func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requesterID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		order, err := svc.Get(r.Context(), orderID, requesterID, roleFromRequest(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// SellerEarnings returns the authenticated seller's revenue roll-up.
func SellerEarnings(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.SellerEarnings(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func paginationParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")}, nil
}

type orderListResponse struct {
	Orders     []orderResponse `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type orderResponse struct {
	OrderID             uuid.UUID          `json:"order_id"`
	OrderNumber         int64              `json:"order_number"`
	Status              string             `json:"status"`
	Currency            string             `json:"currency"`
	SubtotalCents       int64              `json:"subtotal_cents"`
	DiscountCents       int64              `json:"discount_cents"`
	DiscountCode        *string            `json:"discount_code,omitempty"`
	PlatformFeeCents    int64              `json:"platform_fee_cents"`
	TaxCents            int64              `json:"tax_cents"`
	TotalCents          int64              `json:"total_cents"`
	SellerEarningsCents int64              `json:"seller_earnings_cents"`
	OperatorFeeCents    int64              `json:"operator_fee_cents"`
	PaymentMethod       string             `json:"payment_method"`
	RefundStatus        string             `json:"refund_status"`
	RefundedCents       int64              `json:"refunded_cents"`
	FailureReason       *string            `json:"failure_reason,omitempty"`
	SettledAt           *time.Time         `json:"settled_at,omitempty"`
	FailedAt            *time.Time         `json:"failed_at,omitempty"`
	CreatedAt           time.Time          `json:"created_at"`
	Items               []lineItemResponse `json:"items"`
	Payment             *paymentResponse   `json:"payment,omitempty"`
}

type lineItemResponse struct {
	LineItemID          uuid.UUID  `json:"line_item_id"`
	ProductID           *uuid.UUID `json:"product_id,omitempty"`
	SellerID            uuid.UUID  `json:"seller_id"`
	ProductKind         string     `json:"product_kind"`
	Title               string     `json:"title"`
	UnitPriceCents      int64      `json:"unit_price_cents"`
	Quantity            int        `json:"quantity"`
	LineTotalCents      int64      `json:"line_total_cents"`
	SellerEarningsCents int64      `json:"seller_earnings_cents"`
	RestockedAt         *time.Time `json:"restocked_at,omitempty"`
}

type paymentResponse struct {
	IntentID     uuid.UUID  `json:"intent_id"`
	Method       string     `json:"method"`
	Status       string     `json:"status"`
	AmountCents  int64      `json:"amount_cents"`
	ExternalRef  *string    `json:"external_ref,omitempty"`
	ClientSecret *string    `json:"client_secret,omitempty"`
	QRCodeData   *string    `json:"qr_code_data,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	SucceededAt  *time.Time `json:"succeeded_at,omitempty"`
}

func newOrderResponse(order *models.Order) orderResponse {
	if order == nil {
		return orderResponse{}
	}
	items := make([]lineItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, lineItemResponse{
			LineItemID:          item.ID,
			ProductID:           item.ProductID,
			SellerID:            item.SellerID,
			ProductKind:         string(item.ProductKind),
			Title:               item.Title,
			UnitPriceCents:      item.UnitPriceCents,
			Quantity:            item.Quantity,
			LineTotalCents:      item.LineTotalCents,
			SellerEarningsCents: item.SellerEarningsCents,
			RestockedAt:         item.RestockedAt,
		})
	}

	resp := orderResponse{
		OrderID:             order.ID,
		OrderNumber:         order.OrderNumber,
		Status:              string(order.Status),
		Currency:            string(order.Currency),
		SubtotalCents:       order.SubtotalCents,
		DiscountCents:       order.DiscountCents,
		DiscountCode:        order.DiscountCode,
		PlatformFeeCents:    order.PlatformFeeCents,
		TaxCents:            order.TaxCents,
		TotalCents:          order.TotalCents,
		SellerEarningsCents: order.SellerEarningsCents,
		OperatorFeeCents:    order.OperatorFeeCents,
		PaymentMethod:       string(order.PaymentMethod),
		RefundStatus:        string(order.RefundStatus),
		RefundedCents:       order.RefundedCents,
		FailureReason:       order.FailureReason,
		SettledAt:           order.SettledAt,
		FailedAt:            order.FailedAt,
		CreatedAt:           order.CreatedAt,
		Items:               items,
	}
	if order.PaymentIntent != nil {
		resp.Payment = newPaymentResponse(order.PaymentIntent)
	}
	return resp
}

func newPaymentResponse(intent *models.PaymentIntent) *paymentResponse {
	if intent == nil {
		return nil
	}
	return &paymentResponse{
		IntentID:     intent.ID,
		Method:       string(intent.Method),
		Status:       string(intent.Status),
		AmountCents:  intent.AmountCents,
		ExternalRef:  intent.ExternalRef,
		ClientSecret: intent.ClientSecret,
		QRCodeData:   intent.QRCodeData,
		ExpiresAt:    intent.ExpiresAt,
		SucceededAt:  intent.SucceededAt,
	}
}
