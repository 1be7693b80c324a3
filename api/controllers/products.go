package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/weihengtan/motormart-backend/api/responses"
	"github.com/weihengtan/motormart-backend/api/validators"
	"github.com/weihengtan/motormart-backend/internal/products"
	"github.com/weihengtan/motormart-backend/pkg/db/models"
	"github.com/weihengtan/motormart-backend/pkg/enums"
	pkgerrors "github.com/weihengtan/motormart-backend/pkg/errors"
	"github.com/weihengtan/motormart-backend/pkg/logger"
)

// ProductBrowse lists active listings for buyers with optional filters.
func ProductBrowse(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := products.ListFilters{
			Kind:  strings.TrimSpace(r.URL.Query().Get("kind")),
			Query: validators.SanitizeString(r.URL.Query().Get("q"), 100),
		}
		if min, ok, err := parseQueryCents(r, "price_min_cents"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else if ok {
			filters.PriceMinCents = &min
		}
		if max, ok, err := parseQueryCents(r, "price_max_cents"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else if ok {
			filters.PriceMaxCents = &max
		}

		result, err := svc.Browse(r.Context(), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]productResponse, 0, len(result.Products))
		for i := range result.Products {
			items = append(items, newProductResponse(&result.Products[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"products":    items,
			"next_cursor": result.NextCursor,
		})
	}
}

// ProductDetail returns one listing.
func ProductDetail(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := productIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Get(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newProductResponse(product))
	}
}

// SellerProductCreate adds a listing for the authenticated seller.
func SellerProductCreate(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload productCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		kind, err := enums.ParseProductKind(payload.Kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product kind"))
			return
		}

		product, err := svc.Create(r.Context(), sellerID, products.CreateInput{
			Kind:        kind,
			Title:       payload.Title,
			Description: payload.Description,
			PriceCents:  payload.PriceCents,
			Currency:    enums.Currency(payload.Currency),
			Quantity:    payload.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newProductResponse(product))
	}
}

// SellerProductUpdate mutates one of the seller's own listings.
func SellerProductUpdate(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := productIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload productUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Update(r.Context(), sellerID, productID, products.UpdateInput{
			Title:       payload.Title,
			Description: payload.Description,
			PriceCents:  payload.PriceCents,
			Quantity:    payload.Quantity,
			IsActive:    payload.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newProductResponse(product))
	}
}

// SellerProductDelist hides a listing from buyers without deleting it.
func SellerProductDelist(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := productIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delist(r.Context(), sellerID, productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

// SellerProductList lists the authenticated seller's own listings.
func SellerProductList(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listings, err := svc.ListBySeller(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]productResponse, 0, len(listings))
		for i := range listings {
			items = append(items, newProductResponse(&listings[i]))
		}
		responses.WriteSuccess(w, map[string]any{"products": items})
	}
}

func productIDFromRequest(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
	}
	return id, nil
}

func parseQueryCents(r *http.Request, key string) (int64, bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, false, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		return 0, false, pkgerrors.New(pkgerrors.CodeValidation, key+" must be a non-negative integer")
	}
	return value, true, nil
}

type productCreateRequest struct {
	Kind        string  `json:"kind" validate:"required"`
	Title       string  `json:"title" validate:"required,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	PriceCents  int64   `json:"price_cents" validate:"required,min=1"`
	Currency    string  `json:"currency,omitempty"`
	Quantity    int     `json:"quantity,omitempty" validate:"omitempty,min=0"`
}

type productUpdateRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	PriceCents  *int64  `json:"price_cents,omitempty" validate:"omitempty,min=1"`
	Quantity    *int    `json:"quantity,omitempty" validate:"omitempty,min=0"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

type productResponse struct {
	ProductID   uuid.UUID `json:"product_id"`
	SellerID    uuid.UUID `json:"seller_id"`
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	PriceCents  int64     `json:"price_cents"`
	Currency    string    `json:"currency"`
	Quantity    int       `json:"quantity"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

func newProductResponse(product *models.Product) productResponse {
	if product == nil {
		return productResponse{}
	}
	return productResponse{
		ProductID:   product.ID,
		SellerID:    product.SellerID,
		Kind:        string(product.Kind),
		Title:       product.Title,
		Description: product.Description,
		PriceCents:  product.PriceCents,
		Currency:    string(product.Currency),
		Quantity:    product.Quantity,
		IsActive:    product.IsActive,
		CreatedAt:   product.CreatedAt,
	}
}
