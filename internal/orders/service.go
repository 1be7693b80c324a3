package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/weihengtan/motormart-backend/pkg/db/models"
	"github.com/weihengtan/motormart-backend/pkg/enums"
	pkgerrors "github.com/weihengtan/motormart-backend/pkg/errors"
	"github.com/weihengtan/motormart-backend/pkg/pagination"
)

// Service exposes buyer order history and the seller earnings view.
type Service interface {
	ListForBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderList, error)
	Get(ctx context.Context, orderID, requesterID uuid.UUID, role enums.UserRole) (*models.Order, error)
	SellerEarnings(ctx context.Context, sellerID uuid.UUID) (*SellerEarningsSummary, error)
}

// SellerEarningsSummary is the per-seller revenue roll-up with the net figure
// after approved refunds.
type SellerEarningsSummary struct {
	SellerID      uuid.UUID `json:"seller_id"`
	EarnedCents   int64     `json:"earned_cents"`
	RefundedCents int64     `json:"refunded_cents"`
	NetCents      int64     `json:"net_cents"`
	OrderCount    int64     `json:"order_count"`
}

type service struct {
	repo Repository
}

// NewService builds the orders read service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListForBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	return s.repo.ListByBuyer(ctx, buyerID, params)
}

func (s *service) Get(ctx context.Context, orderID, requesterID uuid.UUID, role enums.UserRole) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.BuyerID != requesterID && role != enums.UserRoleOperator {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another buyer")
	}
	return order, nil
}

func (s *service) SellerEarnings(ctx context.Context, sellerID uuid.UUID) (*SellerEarningsSummary, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	revenue, err := s.repo.SellerRevenue(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	summary := &SellerEarningsSummary{SellerID: sellerID}
	if revenue != nil {
		summary.EarnedCents = revenue.EarnedCents
		summary.RefundedCents = revenue.RefundedCents
		summary.NetCents = revenue.EarnedCents - revenue.RefundedCents
		summary.OrderCount = revenue.OrderCount
	}
	return summary, nil
}
