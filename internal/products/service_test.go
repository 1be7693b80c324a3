package products

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
	rows map[uuid.UUID]*models.Product
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{rows: make(map[uuid.UUID]*models.Product)}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, product *models.Product) error {
	f.rows[product.ID] = product
	return nil
}

func (f *fakeRepository) Update(ctx context.Context, product *models.Product) error {
	f.rows[product.ID] = product
	return nil
}

func (f *fakeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.rows, id)
	return nil
}

func (f *fakeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return f.rows[id], nil
}

func (f *fakeRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error) {
	var rows []models.Product
	for _, row := range f.rows {
		if row.SellerID == sellerID {
			rows = append(rows, *row)
		}
	}
	return rows, nil
}

func (f *fakeRepository) ListActive(ctx context.Context, filters ListFilters, page pagination.Params) (*ListResult, error) {
	var rows []models.Product
	for _, row := range f.rows {
		if row.IsActive {
			rows = append(rows, *row)
		}
	}
	return &ListResult{Products: rows}, nil
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestService_CreateUniqueForcesQuantityOne(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo)

	product, err := svc.Create(context.Background(), uuid.New(), CreateInput{
		Kind:       enums.ProductKindUnique,
		Title:      "1973 Carrera RS",
		PriceCents: 25000000,
		Quantity:   7,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if product.Quantity != 1 {
		t.Fatalf("expected quantity 1, got %d", product.Quantity)
	}
	if product.Currency != enums.CurrencySGD {
		t.Fatalf("expected SGD default, got %s", product.Currency)
	}
}

func TestService_CreateRejectsBadInput(t *testing.T) {
	svc := newTestService(t, newFakeRepository())

	cases := []CreateInput{
		{Kind: enums.ProductKindStocked, Title: "", PriceCents: 100},
		{Kind: enums.ProductKind("digital"), Title: "Widget", PriceCents: 100},
		{Kind: enums.ProductKindStocked, Title: "Widget", PriceCents: 0},
		{Kind: enums.ProductKindStocked, Title: "Widget", PriceCents: 100, Quantity: -1},
	}
	for i, input := range cases {
		_, err := svc.Create(context.Background(), uuid.New(), input)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestService_UpdateRejectsForeignSeller(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo)

	owner := uuid.New()
	product, err := svc.Create(context.Background(), owner, CreateInput{
		Kind:       enums.ProductKindStocked,
		Title:      "Roof Rack",
		PriceCents: 45000,
		Quantity:   10,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	price := int64(40000)
	_, err = svc.Update(context.Background(), uuid.New(), product.ID, UpdateInput{PriceCents: &price})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestService_UpdateUniqueQuantityRejected(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo)

	owner := uuid.New()
	product, err := svc.Create(context.Background(), owner, CreateInput{
		Kind:       enums.ProductKindUnique,
		Title:      "Ducati 916",
		PriceCents: 3500000,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	qty := 2
	_, err = svc.Update(context.Background(), owner, product.ID, UpdateInput{Quantity: &qty})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_DelistDeactivates(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo)

	owner := uuid.New()
	product, err := svc.Create(context.Background(), owner, CreateInput{
		Kind:       enums.ProductKindStocked,
		Title:      "Tow Hitch",
		PriceCents: 12000,
		Quantity:   3,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if err := svc.Delist(context.Background(), owner, product.ID); err != nil {
		t.Fatalf("Delist error: %v", err)
	}
	if repo.rows[product.ID].IsActive {
		t.Fatal("expected product to be inactive")
	}
}

func TestService_BrowseRejectsBadKindFilter(t *testing.T) {
	svc := newTestService(t, newFakeRepository())

	_, err := svc.Browse(context.Background(), ListFilters{Kind: "imaginary"}, pagination.Params{})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
