package discounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/weihengtan/motormart-backend/pkg/db/models"
	"github.com/weihengtan/motormart-backend/pkg/enums"
	pkgerrors "github.com/weihengtan/motormart-backend/pkg/errors"
	"github.com/weihengtan/motormart-backend/pkg/logger"
)

// Service validates discount codes against a subtotal and manages the
// operator-facing code catalog.
type Service interface {
	Validate(ctx context.Context, code string, subtotalCents int64) (*Applied, error)
	// IncrementUsage is best-effort: a code that raced past its cap after
	// validation does not fail the caller.
	IncrementUsage(ctx context.Context, id uuid.UUID)
	// IncrementUsageByCode is the same bookkeeping keyed by the code an
	// order froze at checkout time.
	IncrementUsageByCode(ctx context.Context, code string)

	Create(ctx context.Context, input CreateInput) (*models.DiscountCode, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.DiscountCode, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*models.DiscountCode, error)
	List(ctx context.Context, limit, offset int) ([]models.DiscountCode, error)
}

// Applied is a validated code together with the discount it yields.
type Applied struct {
	Code          *models.DiscountCode
	DiscountCents int64
}

// CreateInput describes a new discount code.
type CreateInput struct {
	Code        string
	Kind        enums.DiscountKind
	Value       decimal.Decimal
	MaxUses     *int
	MinSubtotal *int64
	StartsAt    *time.Time
	ExpiresAt   *time.Time
}

// UpdateInput carries the mutable fields of a discount code.
type UpdateInput struct {
	Value       *decimal.Decimal
	MaxUses     *int
	MinSubtotal *int64
	StartsAt    *time.Time
	ExpiresAt   *time.Time
	IsActive    *bool
}

type service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

// NewService wires a discount service with the provided dependencies.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("discount repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg, now: time.Now}, nil
}

func (s *service) Validate(ctx context.Context, code string, subtotalCents int64) (*Applied, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code is required")
	}
	if subtotalCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subtotal must be non-negative")
	}

	row, err := s.repo.FindByCode(ctx, trimmed)
	if err != nil {
		return nil, err
	}
	if row == nil || !row.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "discount code not found")
	}

	now := s.now()
	if row.StartsAt != nil && now.Before(*row.StartsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code is not active yet")
	}
	if row.ExpiresAt != nil && now.After(*row.ExpiresAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code has expired")
	}
	if row.MaxUses != nil && row.UsedCount >= *row.MaxUses {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code has reached its usage limit")
	}
	if row.MinSubtotal != nil && subtotalCents < *row.MinSubtotal {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subtotal below code minimum").
			WithDetails(map[string]int64{"min_subtotal_cents": *row.MinSubtotal})
	}

	return &Applied{
		Code:          row,
		DiscountCents: ComputeDiscount(row, subtotalCents),
	}, nil
}

// ComputeDiscount returns the discount in cents for a validated code.
// Fixed discounts are clamped to the subtotal so totals never go negative.
func ComputeDiscount(code *models.DiscountCode, subtotalCents int64) int64 {
	if code == nil || subtotalCents <= 0 {
		return 0
	}
	switch code.Kind {
	case enums.DiscountKindPercentage:
		discount := decimal.NewFromInt(subtotalCents).
			Mul(code.Value).
			Div(decimal.NewFromInt(100)).
			Round(0).
			IntPart()
		if discount > subtotalCents {
			return subtotalCents
		}
		return discount
	case enums.DiscountKindFixed:
		discount := code.Value.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
		if discount > subtotalCents {
			return subtotalCents
		}
		return discount
	}
	return 0
}

func (s *service) IncrementUsage(ctx context.Context, id uuid.UUID) {
	updated, err := s.repo.IncrementUsage(ctx, id)
	if err != nil {
		logCtx := s.logg.WithField(ctx, "discount_id", id.String())
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "discount usage increment failed")
		return
	}
	if !updated {
		s.logg.Warn(s.logg.WithField(ctx, "discount_id", id.String()), "discount usage cap reached after validation")
	}
}

func (s *service) IncrementUsageByCode(ctx context.Context, code string) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return
	}
	row, err := s.repo.FindByCode(ctx, trimmed)
	if err != nil {
		logCtx := s.logg.WithField(ctx, "discount_code", trimmed)
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "discount lookup for usage increment failed")
		return
	}
	if row == nil {
		s.logg.Warn(s.logg.WithField(ctx, "discount_code", trimmed), "discount code vanished before usage increment")
		return
	}
	s.IncrementUsage(ctx, row.ID)
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.DiscountCode, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid discount kind %q", input.Kind))
	}
	if input.Value.IsNegative() || input.Value.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "value must be positive")
	}
	if input.Kind == enums.DiscountKindPercentage && input.Value.GreaterThan(decimal.NewFromInt(100)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentage cannot exceed 100")
	}
	if input.MaxUses != nil && *input.MaxUses <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max uses must be positive")
	}

	existing, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "discount code already exists")
	}

	row := &models.DiscountCode{
		ID:          uuid.New(),
		Code:        code,
		Kind:        input.Kind,
		Value:       input.Value,
		MaxUses:     input.MaxUses,
		MinSubtotal: input.MinSubtotal,
		StartsAt:    input.StartsAt,
		ExpiresAt:   input.ExpiresAt,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.DiscountCode, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "discount code not found")
	}

	if input.Value != nil {
		if input.Value.IsNegative() || input.Value.IsZero() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "value must be positive")
		}
		if row.Kind == enums.DiscountKindPercentage && input.Value.GreaterThan(decimal.NewFromInt(100)) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentage cannot exceed 100")
		}
		row.Value = *input.Value
	}
	if input.MaxUses != nil {
		if *input.MaxUses <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "max uses must be positive")
		}
		row.MaxUses = input.MaxUses
	}
	if input.MinSubtotal != nil {
		row.MinSubtotal = input.MinSubtotal
	}
	if input.StartsAt != nil {
		row.StartsAt = input.StartsAt
	}
	if input.ExpiresAt != nil {
		row.ExpiresAt = input.ExpiresAt
	}
	if input.IsActive != nil {
		row.IsActive = *input.IsActive
	}

	if err := s.repo.Update(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *service) Deactivate(ctx context.Context, id uuid.UUID) error {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if row == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "discount code not found")
	}
	return s.repo.Deactivate(ctx, id)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.DiscountCode, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "discount code not found")
	}
	return row, nil
}

func (s *service) List(ctx context.Context, limit, offset int) ([]models.DiscountCode, error) {
	return s.repo.List(ctx, limit, offset)
}
