package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/weihengtan/motormart-backend/pkg/db/models"
	"github.com/weihengtan/motormart-backend/pkg/enums"
	pkgerrors "github.com/weihengtan/motormart-backend/pkg/errors"
	"github.com/weihengtan/motormart-backend/pkg/pagination"
)

// Service exposes seller listing management and buyer browse operations.
type Service interface {
	Create(ctx context.Context, sellerID uuid.UUID, input CreateInput) (*models.Product, error)
	Update(ctx context.Context, sellerID, productID uuid.UUID, input UpdateInput) (*models.Product, error)
	Delist(ctx context.Context, sellerID, productID uuid.UUID) error
	Get(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error)
	Browse(ctx context.Context, filters ListFilters, page pagination.Params) (*ListResult, error)
}

// CreateInput holds the validated payload to create a listing.
type CreateInput struct {
	Kind        enums.ProductKind
	Title       string
	Description *string
	PriceCents  int64
	Currency    enums.Currency
	Quantity    int
}

// UpdateInput holds optional mutation values for a listing.
type UpdateInput struct {
	Title       *string
	Description *string
	PriceCents  *int64
	Quantity    *int
	IsActive    *bool
}

type service struct {
	repo Repository
}

// NewService constructs a product service instance.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, sellerID uuid.UUID, input CreateInput) (*models.Product, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product kind")
	}
	if input.PriceCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencySGD
	}
	if !currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency")
	}

	quantity := input.Quantity
	switch input.Kind {
	case enums.ProductKindUnique:
		// a unique listing is the item itself
		quantity = 1
	case enums.ProductKindStocked:
		if quantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be non-negative")
		}
	}

	product := &models.Product{
		ID:          uuid.New(),
		SellerID:    sellerID,
		Kind:        input.Kind,
		Title:       title,
		Description: input.Description,
		PriceCents:  input.PriceCents,
		Currency:    currency,
		Quantity:    quantity,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) Update(ctx context.Context, sellerID, productID uuid.UUID, input UpdateInput) (*models.Product, error) {
	product, err := s.ownedProduct(ctx, sellerID, productID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
		}
		product.Title = title
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.PriceCents != nil {
		if *input.PriceCents <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
		}
		product.PriceCents = *input.PriceCents
	}
	if input.Quantity != nil {
		if product.Kind == enums.ProductKindUnique {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unique listings carry a fixed quantity of one")
		}
		if *input.Quantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be non-negative")
		}
		product.Quantity = *input.Quantity
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) Delist(ctx context.Context, sellerID, productID uuid.UUID) error {
	product, err := s.ownedProduct(ctx, sellerID, productID)
	if err != nil {
		return err
	}
	product.IsActive = false
	return s.repo.Update(ctx, product)
}

func (s *service) Get(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (s *service) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	return s.repo.ListBySeller(ctx, sellerID)
}

func (s *service) Browse(ctx context.Context, filters ListFilters, page pagination.Params) (*ListResult, error) {
	if filters.Kind != "" {
		if _, err := enums.ParseProductKind(filters.Kind); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product kind filter")
		}
	}
	return s.repo.ListActive(ctx, filters, page)
}

func (s *service) ownedProduct(ctx context.Context, sellerID, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if product.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "listing belongs to another seller")
	}
	return product, nil
}
