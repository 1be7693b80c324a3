package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weihengtan/motormart-backend/pkg/db/models"
	"github.com/weihengtan/motormart-backend/pkg/enums"
	pkgerrors "github.com/weihengtan/motormart-backend/pkg/errors"
	"github.com/weihengtan/motormart-backend/pkg/pagination"
)

type fakeRepository struct {
	Repository
	orders   map[uuid.UUID]*models.Order
	revenues map[uuid.UUID]*models.SellerRevenue
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		orders:   make(map[uuid.UUID]*models.Order),
		revenues: make(map[uuid.UUID]*models.SellerRevenue),
	}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return f.orders[id], nil
}

func (f *fakeRepository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	var rows []models.Order
	for _, order := range f.orders {
		if order.BuyerID == buyerID {
			rows = append(rows, *order)
		}
	}
	return &OrderList{Orders: rows}, nil
}

func (f *fakeRepository) SellerRevenue(ctx context.Context, sellerID uuid.UUID) (*models.SellerRevenue, error) {
	return f.revenues[sellerID], nil
}

func TestService_GetEnforcesOwnership(t *testing.T) {
	repo := newFakeRepository()
	buyerID := uuid.New()
	order := &models.Order{ID: uuid.New(), BuyerID: buyerID}
	repo.orders[order.ID] = order

	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}

	got, err := svc.Get(context.Background(), order.ID, buyerID, enums.UserRoleBuyer)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.ID != order.ID {
		t.Fatalf("unexpected order %s", got.ID)
	}

	_, err = svc.Get(context.Background(), order.ID, uuid.New(), enums.UserRoleBuyer)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for foreign buyer, got %v", err)
	}

	// operators can read any order
	if _, err := svc.Get(context.Background(), order.ID, uuid.New(), enums.UserRoleOperator); err != nil {
		t.Fatalf("operator read failed: %v", err)
	}
}

func TestService_GetMissingOrder(t *testing.T) {
	svc, err := NewService(newFakeRepository())
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}

	_, err = svc.Get(context.Background(), uuid.New(), uuid.New(), enums.UserRoleBuyer)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestService_SellerEarnings(t *testing.T) {
	repo := newFakeRepository()
	sellerID := uuid.New()
	repo.revenues[sellerID] = &models.SellerRevenue{
		SellerID:      sellerID,
		EarnedCents:   90000,
		RefundedCents: 12000,
		OrderCount:    4,
	}

	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}

	summary, err := svc.SellerEarnings(context.Background(), sellerID)
	if err != nil {
		t.Fatalf("SellerEarnings error: %v", err)
	}
	if summary.NetCents != 78000 || summary.OrderCount != 4 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	// sellers without sales get a zero summary, not an error
	empty, err := svc.SellerEarnings(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("SellerEarnings error: %v", err)
	}
	if empty.EarnedCents != 0 || empty.NetCents != 0 {
		t.Fatalf("expected zero summary, got %+v", empty)
	}
}
