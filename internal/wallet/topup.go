package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weihengtan/motormart-backend/internal/payments"
	"github.com/weihengtan/motormart-backend/pkg/db/models"
	"github.com/weihengtan/motormart-backend/pkg/enums"
	pkgerrors "github.com/weihengtan/motormart-backend/pkg/errors"
	"github.com/weihengtan/motormart-backend/pkg/logger"
)

// TopUpRepository persists in-flight gateway top-ups.
type TopUpRepository interface {
	Create(ctx context.Context, topup *models.WalletTopUp) (*models.WalletTopUp, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.WalletTopUp, error)
	FindByExternalRef(ctx context.Context, ref string) (*models.WalletTopUp, error)
	// MarkCredited and MarkFailed only match pending rows, so a top-up
	// resolves exactly once no matter how often the gateway notifies us.
	MarkCredited(ctx context.Context, id uuid.UUID) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error)
}

type topUpRepository struct {
	db *gorm.DB
}

// NewTopUpRepository builds a top-up repository.
func NewTopUpRepository(db *gorm.DB) TopUpRepository {
	return &topUpRepository{db: db}
}

func (r *topUpRepository) Create(ctx context.Context, topup *models.WalletTopUp) (*models.WalletTopUp, error) {
	if topup.ID == uuid.Nil {
		topup.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(topup).Error; err != nil {
		return nil, err
	}
	return topup, nil
}

func (r *topUpRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.WalletTopUp, error) {
	var topup models.WalletTopUp
	err := r.db.WithContext(ctx).First(&topup, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &topup, nil
}

func (r *topUpRepository) FindByExternalRef(ctx context.Context, ref string) (*models.WalletTopUp, error) {
	var topup models.WalletTopUp
	err := r.db.WithContext(ctx).First(&topup, "external_ref = ?", ref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &topup, nil
}

func (r *topUpRepository) MarkCredited(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE wallet_topups
		SET status = ?, credited_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?`,
		enums.PaymentStatusSucceeded, id, enums.PaymentStatusPending)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *topUpRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE wallet_topups
		SET status = ?, failure_reason = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?`,
		enums.PaymentStatusFailed, reason, id, enums.PaymentStatusPending)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

type gatewayResolver interface {
	Resolve(method enums.PaymentMethod) (payments.Gateway, error)
}

// TopUpService funds the wallet through the external rails: a gateway intent
// is opened first and the ledger deposit lands when the gateway confirms.
type TopUpService interface {
	Begin(ctx context.Context, userID uuid.UUID, amountCents int64, method enums.PaymentMethod) (*models.WalletTopUp, error)
	Confirm(ctx context.Context, topUpID uuid.UUID) (*models.WalletTopUp, error)
	ConfirmByRef(ctx context.Context, externalRef string) (*models.WalletTopUp, error)
	Abort(ctx context.Context, topUpID uuid.UUID, reason string) error
	Get(ctx context.Context, topUpID uuid.UUID) (*models.WalletTopUp, error)
}

type topUpService struct {
	repo     TopUpRepository
	ledger   Service
	gateways gatewayResolver
	logg     *logger.Logger
}

// NewTopUpService builds the top-up flow on top of the wallet ledger.
func NewTopUpService(repo TopUpRepository, ledger Service, gateways gatewayResolver, logg *logger.Logger) (TopUpService, error) {
	if repo == nil {
		return nil, fmt.Errorf("top-up repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if gateways == nil {
		return nil, fmt.Errorf("gateway registry required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &topUpService{repo: repo, ledger: ledger, gateways: gateways, logg: logg}, nil
}

func (s *topUpService) Begin(ctx context.Context, userID uuid.UUID, amountCents int64, method enums.PaymentMethod) (*models.WalletTopUp, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if amountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "top-up amount must be positive")
	}
	if method == enums.PaymentMethodWallet {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a wallet cannot top up itself")
	}

	gw, err := s.gateways.Resolve(method)
	if err != nil {
		return nil, err
	}

	topUpID := uuid.New()
	result, err := gw.CreateIntent(ctx, payments.CreateIntentInput{
		OrderID:     topUpID,
		UserID:      userID,
		AmountCents: amountCents,
		Currency:    enums.CurrencySGD,
		Description: "Wallet top-up",
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Create(ctx, &models.WalletTopUp{
		ID:           topUpID,
		UserID:       userID,
		Method:       method,
		Status:       enums.PaymentStatusPending,
		AmountCents:  amountCents,
		Currency:     enums.CurrencySGD,
		ExternalRef:  result.ExternalRef,
		ClientSecret: result.ClientSecret,
		QRCodeData:   result.QRCodeData,
		ExpiresAt:    result.ExpiresAt,
	})
}

func (s *topUpService) Confirm(ctx context.Context, topUpID uuid.UUID) (*models.WalletTopUp, error) {
	if topUpID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "top-up id required")
	}

	topup, err := s.repo.FindByID(ctx, topUpID)
	if err != nil {
		return nil, err
	}
	if topup == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "top-up not found")
	}
	if topup.Status == enums.PaymentStatusSucceeded {
		return topup, nil
	}

	credited, err := s.repo.MarkCredited(ctx, topup.ID)
	if err != nil {
		return nil, err
	}
	if !credited {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("top-up is %s and cannot be credited", topup.Status))
	}

	if _, err := s.ledger.Deposit(ctx, CreditInput{
		UserID:      topup.UserID,
		AmountCents: topup.AmountCents,
		Kind:        enums.WalletTransactionDeposit,
		Description: fmt.Sprintf("Wallet top-up via %s", topup.Method),
		Reference:   fmt.Sprintf("topup:%s", topup.ID),
	}); err != nil {
		// The row says credited but the ledger write failed. Surface it loudly;
		// the row's credited_at marks where to reconcile from.
		s.logg.Error(s.logg.WithField(ctx, "topup_id", topup.ID.String()), "ledger deposit after credited top-up", err)
		return nil, err
	}

	return s.repo.FindByID(ctx, topup.ID)
}

func (s *topUpService) ConfirmByRef(ctx context.Context, externalRef string) (*models.WalletTopUp, error) {
	if externalRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external reference required")
	}
	topup, err := s.repo.FindByExternalRef(ctx, externalRef)
	if err != nil {
		return nil, err
	}
	if topup == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no top-up found for that reference")
	}
	return s.Confirm(ctx, topup.ID)
}

func (s *topUpService) Abort(ctx context.Context, topUpID uuid.UUID, reason string) error {
	if topUpID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "top-up id required")
	}
	if reason == "" {
		reason = "payment was not completed"
	}
	failed, err := s.repo.MarkFailed(ctx, topUpID, reason)
	if err != nil {
		return err
	}
	if !failed {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "top-up has already been resolved")
	}
	return nil
}

func (s *topUpService) Get(ctx context.Context, topUpID uuid.UUID) (*models.WalletTopUp, error) {
	topup, err := s.repo.FindByID(ctx, topUpID)
	if err != nil {
		return nil, err
	}
	if topup == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "top-up not found")
	}
	return topup, nil
}
