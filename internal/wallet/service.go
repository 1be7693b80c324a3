package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weihengtan/motormart-backend/pkg/db/models"
	"github.com/weihengtan/motormart-backend/pkg/enums"
	pkgerrors "github.com/weihengtan/motormart-backend/pkg/errors"
	"github.com/weihengtan/motormart-backend/pkg/outbox"
	"github.com/weihengtan/motormart-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines wallet balance operations. Every balance change writes an
// immutable WalletTransaction in the same database transaction.
type Service interface {
	Deposit(ctx context.Context, input CreditInput) (*models.WalletTransaction, error)
	Debit(ctx context.Context, input DebitInput) (*models.WalletTransaction, error)
	Refund(ctx context.Context, input CreditInput) (*models.WalletTransaction, error)
	Adjust(ctx context.Context, input AdjustInput) (*models.WalletTransaction, error)
	Balance(ctx context.Context, userID uuid.UUID) (int64, error)
	Transactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error)

	// DebitTx and CreditTx run inside a caller-managed transaction so the
	// settlement orchestrator can compose wallet moves with its own writes.
	DebitTx(ctx context.Context, tx *gorm.DB, input DebitInput) (*models.WalletTransaction, error)
	CreditTx(ctx context.Context, tx *gorm.DB, input CreditInput) (*models.WalletTransaction, error)
}

// DebitInput describes a balance decrement.
type DebitInput struct {
	UserID      uuid.UUID
	AmountCents int64
	Kind        enums.WalletTransactionKind
	Description string
	Reference   string
}

// CreditInput describes a balance increment.
type CreditInput struct {
	UserID      uuid.UUID
	AmountCents int64
	Kind        enums.WalletTransactionKind
	Description string
	Reference   string
}

// AdjustInput is an operator adjustment; negative amounts debit the wallet.
type AdjustInput struct {
	UserID      uuid.UUID
	AmountCents int64
	Description string
	Reference   string
}

type service struct {
	repo      Repository
	tx        txRunner
	outboxSvc outboxEmitter
}

// NewService wires a wallet service with the provided dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxEmitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	return &service{repo: repo, tx: tx, outboxSvc: outboxSvc}, nil
}

func (s *service) Deposit(ctx context.Context, input CreditInput) (*models.WalletTransaction, error) {
	if input.Kind == "" {
		input.Kind = enums.WalletTransactionDeposit
	}
	return s.creditInNewTx(ctx, input)
}

func (s *service) Refund(ctx context.Context, input CreditInput) (*models.WalletTransaction, error) {
	if input.Kind == "" {
		input.Kind = enums.WalletTransactionRefund
	}
	return s.creditInNewTx(ctx, input)
}

func (s *service) Debit(ctx context.Context, input DebitInput) (*models.WalletTransaction, error) {
	var txn *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.DebitTx(ctx, tx, input)
		if err != nil {
			return err
		}
		txn = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *service) Adjust(ctx context.Context, input AdjustInput) (*models.WalletTransaction, error) {
	if input.AmountCents == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment amount must be non-zero")
	}
	if input.AmountCents > 0 {
		return s.creditInNewTx(ctx, CreditInput{
			UserID:      input.UserID,
			AmountCents: input.AmountCents,
			Kind:        enums.WalletTransactionAdjustment,
			Description: input.Description,
			Reference:   input.Reference,
		})
	}
	var txn *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.DebitTx(ctx, tx, DebitInput{
			UserID:      input.UserID,
			AmountCents: -input.AmountCents,
			Kind:        enums.WalletTransactionAdjustment,
			Description: input.Description,
			Reference:   input.Reference,
		})
		if err != nil {
			return err
		}
		txn = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	balance, err := s.repo.Balance(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return 0, err
	}
	return balance, nil
}

func (s *service) Transactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return s.repo.ListTransactions(ctx, userID, limit, offset)
}

func (s *service) DebitTx(ctx context.Context, tx *gorm.DB, input DebitInput) (*models.WalletTransaction, error) {
	if err := validateMove(input.UserID, input.AmountCents); err != nil {
		return nil, err
	}
	if input.Kind == "" {
		input.Kind = enums.WalletTransactionPurchase
	}

	repo := s.repo.WithTx(tx)
	affected, err := repo.DebitBalance(ctx, input.UserID, input.AmountCents)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		exists, err := repo.UserExists(ctx, input.UserID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		balance, err := repo.Balance(ctx, input.UserID)
		if err != nil {
			return nil, err
		}
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "wallet balance does not cover amount").
			WithDetails(map[string]int64{
				"balance_cents":  balance,
				"required_cents": input.AmountCents,
			})
	}

	balanceAfter, err := repo.Balance(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	txn := &models.WalletTransaction{
		ID:                 uuid.New(),
		UserID:             input.UserID,
		Kind:               input.Kind,
		AmountCents:        input.AmountCents,
		BalanceBeforeCents: balanceAfter + input.AmountCents,
		BalanceAfterCents:  balanceAfter,
		Description:        input.Description,
		Reference:          optionalString(input.Reference),
	}
	if err := repo.InsertTransaction(ctx, txn); err != nil {
		return nil, err
	}

	if err := s.emitMovement(ctx, tx, enums.EventWalletDebited, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *service) CreditTx(ctx context.Context, tx *gorm.DB, input CreditInput) (*models.WalletTransaction, error) {
	if err := validateMove(input.UserID, input.AmountCents); err != nil {
		return nil, err
	}
	if input.Kind == "" {
		input.Kind = enums.WalletTransactionDeposit
	}

	repo := s.repo.WithTx(tx)
	affected, err := repo.CreditBalance(ctx, input.UserID, input.AmountCents)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	balanceAfter, err := repo.Balance(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	txn := &models.WalletTransaction{
		ID:                 uuid.New(),
		UserID:             input.UserID,
		Kind:               input.Kind,
		AmountCents:        input.AmountCents,
		BalanceBeforeCents: balanceAfter - input.AmountCents,
		BalanceAfterCents:  balanceAfter,
		Description:        input.Description,
		Reference:          optionalString(input.Reference),
	}
	if err := repo.InsertTransaction(ctx, txn); err != nil {
		return nil, err
	}

	if err := s.emitMovement(ctx, tx, enums.EventWalletCredited, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *service) creditInNewTx(ctx context.Context, input CreditInput) (*models.WalletTransaction, error) {
	var txn *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.CreditTx(ctx, tx, input)
		if err != nil {
			return err
		}
		txn = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *service) emitMovement(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, txn *models.WalletTransaction) error {
	reference := ""
	if txn.Reference != nil {
		reference = *txn.Reference
	}
	return s.outboxSvc.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateWallet,
		AggregateID:   txn.UserID,
		Version:       1,
		Data: payloads.WalletMovementEvent{
			TransactionID:     txn.ID,
			UserID:            txn.UserID,
			Kind:              txn.Kind,
			AmountCents:       txn.AmountCents,
			BalanceAfterCents: txn.BalanceAfterCents,
			Reference:         reference,
		},
	})
}

func validateMove(userID uuid.UUID, amountCents int64) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if amountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	return nil
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
