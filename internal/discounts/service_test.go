package discounts

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/weihengtan/motormart-backend/pkg/db/models"
	"github.com/weihengtan/motormart-backend/pkg/enums"
	pkgerrors "github.com/weihengtan/motormart-backend/pkg/errors"
	"github.com/weihengtan/motormart-backend/pkg/logger"
)

type fakeRepository struct {
	codes          map[uuid.UUID]*models.DiscountCode
	incrementCalls int
	incrementErr   error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{codes: make(map[uuid.UUID]*models.DiscountCode)}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, code *models.DiscountCode) error {
	f.codes[code.ID] = code
	return nil
}

func (f *fakeRepository) Update(ctx context.Context, code *models.DiscountCode) error {
	f.codes[code.ID] = code
	return nil
}

func (f *fakeRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	if code, ok := f.codes[id]; ok {
		code.IsActive = false
	}
	return nil
}

func (f *fakeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.DiscountCode, error) {
	return f.codes[id], nil
}

func (f *fakeRepository) FindByCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	needle := strings.ToUpper(strings.TrimSpace(code))
	for _, row := range f.codes {
		if row.Code == needle {
			return row, nil
		}
	}
	return nil, nil
}

func (f *fakeRepository) List(ctx context.Context, limit, offset int) ([]models.DiscountCode, error) {
	var rows []models.DiscountCode
	for _, row := range f.codes {
		rows = append(rows, *row)
	}
	return rows, nil
}

func (f *fakeRepository) IncrementUsage(ctx context.Context, id uuid.UUID) (bool, error) {
	f.incrementCalls++
	if f.incrementErr != nil {
		return false, f.incrementErr
	}
	code, ok := f.codes[id]
	if !ok {
		return false, nil
	}
	if code.MaxUses != nil && code.UsedCount >= *code.MaxUses {
		return false, nil
	}
	code.UsedCount++
	return true, nil
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "discounts-test", Output: io.Discard})
	svc, err := NewService(repo, logg)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func seedCode(repo *fakeRepository, kind enums.DiscountKind, value string) *models.DiscountCode {
	code := &models.DiscountCode{
		ID:       uuid.New(),
		Code:     "SAVE10",
		Kind:     kind,
		Value:    decimal.RequireFromString(value),
		IsActive: true,
	}
	repo.codes[code.ID] = code
	return code
}

func TestComputeDiscountPercentage(t *testing.T) {
	code := &models.DiscountCode{Kind: enums.DiscountKindPercentage, Value: decimal.RequireFromString("15")}
	if got := ComputeDiscount(code, 10000); got != 1500 {
		t.Fatalf("expected 1500, got %d", got)
	}
	// 12.5% of 99 cents rounds half up
	code.Value = decimal.RequireFromString("12.5")
	if got := ComputeDiscount(code, 99); got != 12 {
		t.Fatalf("expected 12, got %d", got)
	}
}

func TestComputeDiscountFixedClampsToSubtotal(t *testing.T) {
	code := &models.DiscountCode{Kind: enums.DiscountKindFixed, Value: decimal.RequireFromString("50")}
	if got := ComputeDiscount(code, 3000); got != 3000 {
		t.Fatalf("fixed discount should clamp to subtotal, got %d", got)
	}
	if got := ComputeDiscount(code, 10000); got != 5000 {
		t.Fatalf("expected 5000, got %d", got)
	}
}

func TestService_ValidateSuccess(t *testing.T) {
	repo := newFakeRepository()
	seedCode(repo, enums.DiscountKindPercentage, "10")
	svc := newTestService(t, repo)

	applied, err := svc.Validate(context.Background(), " save10 ", 20000)
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if applied.DiscountCents != 2000 {
		t.Fatalf("unexpected discount %d", applied.DiscountCents)
	}
}

func TestService_ValidateRejectsInactive(t *testing.T) {
	repo := newFakeRepository()
	code := seedCode(repo, enums.DiscountKindFixed, "5")
	code.IsActive = false
	svc := newTestService(t, repo)

	_, err := svc.Validate(context.Background(), "SAVE10", 20000)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestService_ValidateRejectsExpired(t *testing.T) {
	repo := newFakeRepository()
	code := seedCode(repo, enums.DiscountKindFixed, "5")
	past := time.Now().Add(-time.Hour)
	code.ExpiresAt = &past
	svc := newTestService(t, repo)

	_, err := svc.Validate(context.Background(), "SAVE10", 20000)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_ValidateRejectsExhausted(t *testing.T) {
	repo := newFakeRepository()
	code := seedCode(repo, enums.DiscountKindFixed, "5")
	maxUses := 3
	code.MaxUses = &maxUses
	code.UsedCount = 3
	svc := newTestService(t, repo)

	_, err := svc.Validate(context.Background(), "SAVE10", 20000)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_ValidateRejectsBelowMinimum(t *testing.T) {
	repo := newFakeRepository()
	code := seedCode(repo, enums.DiscountKindFixed, "5")
	minSubtotal := int64(10000)
	code.MinSubtotal = &minSubtotal
	svc := newTestService(t, repo)

	_, err := svc.Validate(context.Background(), "SAVE10", 5000)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_IncrementUsageBestEffort(t *testing.T) {
	repo := newFakeRepository()
	code := seedCode(repo, enums.DiscountKindFixed, "5")
	svc := newTestService(t, repo)

	svc.IncrementUsage(context.Background(), code.ID)
	if code.UsedCount != 1 {
		t.Fatalf("expected usage bump, got %d", code.UsedCount)
	}

	// a storage error must not propagate
	repo.incrementErr = gorm.ErrInvalidDB
	svc.IncrementUsage(context.Background(), code.ID)
	if repo.incrementCalls != 2 {
		t.Fatalf("expected 2 calls, got %d", repo.incrementCalls)
	}
}

func TestService_CreateRejectsDuplicate(t *testing.T) {
	repo := newFakeRepository()
	seedCode(repo, enums.DiscountKindPercentage, "10")
	svc := newTestService(t, repo)

	_, err := svc.Create(context.Background(), CreateInput{
		Code:  "save10",
		Kind:  enums.DiscountKindFixed,
		Value: decimal.RequireFromString("5"),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestService_CreateValidatesPercentage(t *testing.T) {
	svc := newTestService(t, newFakeRepository())

	_, err := svc.Create(context.Background(), CreateInput{
		Code:  "TOOBIG",
		Kind:  enums.DiscountKindPercentage,
		Value: decimal.RequireFromString("101"),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_UpdateTogglesActive(t *testing.T) {
	repo := newFakeRepository()
	code := seedCode(repo, enums.DiscountKindPercentage, "10")
	svc := newTestService(t, repo)

	inactive := false
	updated, err := svc.Update(context.Background(), code.ID, UpdateInput{IsActive: &inactive})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if updated.IsActive {
		t.Fatal("expected code to be inactive")
	}
}
