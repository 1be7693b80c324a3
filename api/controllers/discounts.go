package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/weihengtan/motormart-backend/api/responses"
	"github.com/weihengtan/motormart-backend/api/validators"
	"github.com/weihengtan/motormart-backend/internal/discounts"
	"github.com/weihengtan/motormart-backend/pkg/db/models"
	"github.com/weihengtan/motormart-backend/pkg/enums"
	pkgerrors "github.com/weihengtan/motormart-backend/pkg/errors"
	"github.com/weihengtan/motormart-backend/pkg/logger"
)

// DiscountValidate previews a code against a subtotal without consuming a use.
func DiscountValidate(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload discountValidateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		applied, err := svc.Validate(r.Context(), payload.Code, payload.SubtotalCents)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"code":           applied.Code.Code,
			"kind":           applied.Code.Kind,
			"value":          applied.Code.Value,
			"discount_cents": applied.DiscountCents,
		})
	}
}

// DiscountCreate registers a new code. Operator only.
func DiscountCreate(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload discountCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		kind, err := enums.ParseDiscountKind(payload.Kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount kind"))
			return
		}

		code, err := svc.Create(r.Context(), discounts.CreateInput{
			Code:        payload.Code,
			Kind:        kind,
			Value:       payload.Value,
			MaxUses:     payload.MaxUses,
			MinSubtotal: payload.MinSubtotalCents,
			StartsAt:    payload.StartsAt,
			ExpiresAt:   payload.ExpiresAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newDiscountResponse(code))
	}
}

// DiscountUpdate mutates a code's value, limits or active flag.
func DiscountUpdate(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := discountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload discountUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		code, err := svc.Update(r.Context(), id, discounts.UpdateInput{
			Value:       payload.Value,
			MaxUses:     payload.MaxUses,
			MinSubtotal: payload.MinSubtotalCents,
			StartsAt:    payload.StartsAt,
			ExpiresAt:   payload.ExpiresAt,
			IsActive:    payload.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDiscountResponse(code))
	}
}

// DiscountDeactivate retires a code without deleting its usage history.
func DiscountDeactivate(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := discountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Deactivate(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

func DiscountGet(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := discountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		code, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDiscountResponse(code))
	}
}

func DiscountList(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 25, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 10000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		codes, err := svc.List(r.Context(), limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]discountResponse, 0, len(codes))
		for i := range codes {
			items = append(items, newDiscountResponse(&codes[i]))
		}
		responses.WriteSuccess(w, map[string]any{"discounts": items})
	}
}

func discountIDFromRequest(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "discountId"))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount id")
	}
	return id, nil
}

type discountValidateRequest struct {
	Code          string `json:"code" validate:"required"`
	SubtotalCents int64  `json:"subtotal_cents" validate:"min=0"`
}

type discountCreateRequest struct {
	Code             string          `json:"code" validate:"required,min=2,max=32"`
	Kind             string          `json:"kind" validate:"required"`
	Value            decimal.Decimal `json:"value" validate:"required"`
	MaxUses          *int            `json:"max_uses,omitempty"`
	MinSubtotalCents *int64          `json:"min_subtotal_cents,omitempty"`
	StartsAt         *time.Time      `json:"starts_at,omitempty"`
	ExpiresAt        *time.Time      `json:"expires_at,omitempty"`
}

type discountUpdateRequest struct {
	Value            *decimal.Decimal `json:"value,omitempty"`
	MaxUses          *int             `json:"max_uses,omitempty"`
	MinSubtotalCents *int64           `json:"min_subtotal_cents,omitempty"`
	StartsAt         *time.Time       `json:"starts_at,omitempty"`
	ExpiresAt        *time.Time       `json:"expires_at,omitempty"`
	IsActive         *bool            `json:"is_active,omitempty"`
}

type discountResponse struct {
	ID               uuid.UUID       `json:"id"`
	Code             string          `json:"code"`
	Kind             string          `json:"kind"`
	Value            decimal.Decimal `json:"value"`
	MaxUses          *int            `json:"max_uses,omitempty"`
	UsedCount        int             `json:"used_count"`
	MinSubtotalCents *int64          `json:"min_subtotal_cents,omitempty"`
	StartsAt         *time.Time      `json:"starts_at,omitempty"`
	ExpiresAt        *time.Time      `json:"expires_at,omitempty"`
	IsActive         bool            `json:"is_active"`
	CreatedAt        time.Time       `json:"created_at"`
}

func newDiscountResponse(code *models.DiscountCode) discountResponse {
	if code == nil {
		return discountResponse{}
	}
	return discountResponse{
		ID:               code.ID,
		Code:             code.Code,
		Kind:             string(code.Kind),
		Value:            code.Value,
		MaxUses:          code.MaxUses,
		UsedCount:        code.UsedCount,
		MinSubtotalCents: code.MinSubtotal,
		StartsAt:         code.StartsAt,
		ExpiresAt:        code.ExpiresAt,
		IsActive:         code.IsActive,
		CreatedAt:        code.CreatedAt,
	}
}
