package wallet

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weihengtan/motormart-backend/pkg/db/models"
	"github.com/weihengtan/motormart-backend/pkg/enums"
	pkgerrors "github.com/weihengtan/motormart-backend/pkg/errors"
	"github.com/weihengtan/motormart-backend/pkg/outbox"
)

type fakeRepository struct {
	balances     map[uuid.UUID]int64
	transactions []models.WalletTransaction
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{balances: make(map[uuid.UUID]int64)}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) DebitBalance(ctx context.Context, userID uuid.UUID, amountCents int64) (int64, error) {
	balance, ok := f.balances[userID]
	if !ok || balance < amountCents {
		return 0, nil
	}
	f.balances[userID] = balance - amountCents
	return 1, nil
}

func (f *fakeRepository) CreditBalance(ctx context.Context, userID uuid.UUID, amountCents int64) (int64, error) {
	if _, ok := f.balances[userID]; !ok {
		return 0, nil
	}
	f.balances[userID] += amountCents
	return 1, nil
}

func (f *fakeRepository) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	balance, ok := f.balances[userID]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	return balance, nil
}

func (f *fakeRepository) UserExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	_, ok := f.balances[userID]
	return ok, nil
}

func (f *fakeRepository) InsertTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	f.transactions = append(f.transactions, *txn)
	return nil
}

func (f *fakeRepository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error) {
	var rows []models.WalletTransaction
	for _, txn := range f.transactions {
		if txn.UserID == userID {
			rows = append(rows, txn)
		}
	}
	return rows, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeEmitter struct {
	events []outbox.DomainEvent
}

func (f *fakeEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

func newTestService(t *testing.T, repo Repository, emitter *fakeEmitter) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, emitter)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestService_DebitWritesLedgerEntry(t *testing.T) {
	repo := newFakeRepository()
	userID := uuid.New()
	repo.balances[userID] = 10000

	emitter := &fakeEmitter{}
	svc := newTestService(t, repo, emitter)

	txn, err := svc.Debit(context.Background(), DebitInput{
		UserID:      userID,
		AmountCents: 2500,
		Description: "order 1042",
		Reference:   "ORD-1042",
	})
	if err != nil {
		t.Fatalf("Debit error: %v", err)
	}
	if txn.Kind != enums.WalletTransactionPurchase {
		t.Fatalf("unexpected kind %s", txn.Kind)
	}
	if txn.BalanceBeforeCents != 10000 || txn.BalanceAfterCents != 7500 {
		t.Fatalf("unexpected balance chain %d -> %d", txn.BalanceBeforeCents, txn.BalanceAfterCents)
	}
	if repo.balances[userID] != 7500 {
		t.Fatalf("balance not decremented: %d", repo.balances[userID])
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != enums.EventWalletDebited {
		t.Fatalf("expected wallet_debited event, got %+v", emitter.events)
	}
}

func TestService_DebitInsufficientFunds(t *testing.T) {
	repo := newFakeRepository()
	userID := uuid.New()
	repo.balances[userID] = 100

	svc := newTestService(t, repo, &fakeEmitter{})

	_, err := svc.Debit(context.Background(), DebitInput{
		UserID:      userID,
		AmountCents: 500,
		Description: "order",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientFunds {
		t.Fatalf("expected insufficient funds error, got %v", err)
	}
	if repo.balances[userID] != 100 {
		t.Fatalf("balance should be untouched, got %d", repo.balances[userID])
	}
	if len(repo.transactions) != 0 {
		t.Fatalf("no ledger entry expected, got %d", len(repo.transactions))
	}
}

func TestService_DebitUnknownUser(t *testing.T) {
	svc := newTestService(t, newFakeRepository(), &fakeEmitter{})

	_, err := svc.Debit(context.Background(), DebitInput{
		UserID:      uuid.New(),
		AmountCents: 500,
		Description: "order",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestService_DepositDefaultsKind(t *testing.T) {
	repo := newFakeRepository()
	userID := uuid.New()
	repo.balances[userID] = 0

	emitter := &fakeEmitter{}
	svc := newTestService(t, repo, emitter)

	txn, err := svc.Deposit(context.Background(), CreditInput{
		UserID:      userID,
		AmountCents: 5000,
		Description: "top up",
	})
	if err != nil {
		t.Fatalf("Deposit error: %v", err)
	}
	if txn.Kind != enums.WalletTransactionDeposit {
		t.Fatalf("unexpected kind %s", txn.Kind)
	}
	if txn.BalanceBeforeCents != 0 || txn.BalanceAfterCents != 5000 {
		t.Fatalf("unexpected balance chain %d -> %d", txn.BalanceBeforeCents, txn.BalanceAfterCents)
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != enums.EventWalletCredited {
		t.Fatalf("expected wallet_credited event")
	}
}

func TestService_RefundUsesRefundKind(t *testing.T) {
	repo := newFakeRepository()
	userID := uuid.New()
	repo.balances[userID] = 1000

	svc := newTestService(t, repo, &fakeEmitter{})

	txn, err := svc.Refund(context.Background(), CreditInput{
		UserID:      userID,
		AmountCents: 300,
		Description: "refund order 7",
	})
	if err != nil {
		t.Fatalf("Refund error: %v", err)
	}
	if txn.Kind != enums.WalletTransactionRefund {
		t.Fatalf("unexpected kind %s", txn.Kind)
	}
}

func TestService_AdjustNegativeDebits(t *testing.T) {
	repo := newFakeRepository()
	userID := uuid.New()
	repo.balances[userID] = 2000

	svc := newTestService(t, repo, &fakeEmitter{})

	txn, err := svc.Adjust(context.Background(), AdjustInput{
		UserID:      userID,
		AmountCents: -500,
		Description: "correction",
	})
	if err != nil {
		t.Fatalf("Adjust error: %v", err)
	}
	if txn.Kind != enums.WalletTransactionAdjustment {
		t.Fatalf("unexpected kind %s", txn.Kind)
	}
	if repo.balances[userID] != 1500 {
		t.Fatalf("unexpected balance %d", repo.balances[userID])
	}
}

func TestService_AdjustZeroRejected(t *testing.T) {
	svc := newTestService(t, newFakeRepository(), &fakeEmitter{})

	_, err := svc.Adjust(context.Background(), AdjustInput{UserID: uuid.New()})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_ValidatesInput(t *testing.T) {
	svc := newTestService(t, newFakeRepository(), &fakeEmitter{})

	if _, err := svc.Debit(context.Background(), DebitInput{AmountCents: 100}); err == nil {
		t.Fatal("expected error for missing user id")
	}
	if _, err := svc.Deposit(context.Background(), CreditInput{UserID: uuid.New(), AmountCents: 0}); err == nil {
		t.Fatal("expected error for non-positive amount")
	}
}
