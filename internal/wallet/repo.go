package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weihengtan/motormart-backend/pkg/db/models"
)

// Repository manages wallet balances and the append-only transaction ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// DebitBalance decrements the user's balance only when it covers the
	// amount. It reports the rows affected so callers can distinguish an
	// insufficient balance from a successful debit.
	DebitBalance(ctx context.Context, userID uuid.UUID, amountCents int64) (int64, error)
	CreditBalance(ctx context.Context, userID uuid.UUID, amountCents int64) (int64, error)
	Balance(ctx context.Context, userID uuid.UUID) (int64, error)
	UserExists(ctx context.Context, userID uuid.UUID) (bool, error)
	InsertTransaction(ctx context.Context, txn *models.WalletTransaction) error
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) DebitBalance(ctx context.Context, userID uuid.UUID, amountCents int64) (int64, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE users
		 SET wallet_balance_cents = wallet_balance_cents - ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND wallet_balance_cents >= ?`,
		amountCents, userID, amountCents,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repository) CreditBalance(ctx context.Context, userID uuid.UUID, amountCents int64) (int64, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE users
		 SET wallet_balance_cents = wallet_balance_cents + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		amountCents, userID,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repository) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Select("wallet_balance_cents").
		Where("id = ?", userID).
		First(&user).Error
	if err != nil {
		return 0, err
	}
	return user.WalletBalanceCents, nil
}

func (r *repository) UserExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) InsertTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	if txn == nil {
		return errors.New("transaction row required")
	}
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	return rows, err
}
