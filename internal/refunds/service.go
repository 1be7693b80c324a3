package refunds

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/weihengtan/motormart-backend/internal/inventory"
	"github.com/weihengtan/motormart-backend/internal/orders"
	"github.com/weihengtan/motormart-backend/internal/payments"
	"github.com/weihengtan/motormart-backend/internal/wallet"
	"github.com/weihengtan/motormart-backend/pkg/config"
	"github.com/weihengtan/motormart-backend/pkg/db/models"
	"github.com/weihengtan/motormart-backend/pkg/enums"
	pkgerrors "github.com/weihengtan/motormart-backend/pkg/errors"
	"github.com/weihengtan/motormart-backend/pkg/logger"
	"github.com/weihengtan/motormart-backend/pkg/outbox"
	"github.com/weihengtan/motormart-backend/pkg/outbox/payloads"
	"github.com/weihengtan/motormart-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type walletLedger interface {
	CreditTx(ctx context.Context, tx *gorm.DB, input wallet.CreditInput) (*models.WalletTransaction, error)
}

type gatewayResolver interface {
	Resolve(method enums.PaymentMethod) (payments.Gateway, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type restocker interface {
	Restock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) (bool, error)
}

type restockEngine struct{}

func (restockEngine) Restock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) (bool, error) {
	return inventory.RestockProduct(ctx, tx, productID, qty)
}

// Service runs the refund workflow: buyers raise requests against a settled
// order line, the owning seller approves or rejects them.
type Service interface {
	Request(ctx context.Context, input RequestInput) (*models.RefundRequest, error)
	Approve(ctx context.Context, refundID, sellerID uuid.UUID, input ApproveInput) (*models.RefundRequest, error)
	Reject(ctx context.Context, refundID, sellerID uuid.UUID, note string) (*models.RefundRequest, error)
	Get(ctx context.Context, refundID uuid.UUID) (*models.RefundRequest, error)
	ListForSeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*RequestList, error)
	ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.RefundRequest, error)
}

// RequestInput is a buyer's refund request for one order line.
type RequestInput struct {
	BuyerID     uuid.UUID
	OrderID     uuid.UUID
	LineItemID  uuid.UUID
	AmountCents int64
	Reason      string
}

// ApproveInput carries the seller's approval details.
type ApproveInput struct {
	RestoreInventory bool
	Note             string
}

type service struct {
	cfg      config.CheckoutConfig
	tx       txRunner
	repo     Repository
	orders   orders.Repository
	wallet   walletLedger
	gateways gatewayResolver
	restock  restocker
	outbox   outboxPublisher
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the refund service.
func NewService(
	cfg config.CheckoutConfig,
	tx txRunner,
	repo Repository,
	ordersRepo orders.Repository,
	walletSvc walletLedger,
	gateways gatewayResolver,
	restock restocker,
	publisher outboxPublisher,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("refund repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if gateways == nil {
		return nil, fmt.Errorf("gateway registry required")
	}
	if restock == nil {
		restock = restockEngine{}
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		cfg:      cfg,
		tx:       tx,
		repo:     repo,
		orders:   ordersRepo,
		wallet:   walletSvc,
		gateways: gateways,
		restock:  restock,
		outbox:   publisher,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) Request(ctx context.Context, input RequestInput) (*models.RefundRequest, error) {
	if input.BuyerID == uuid.Nil || input.OrderID == uuid.Nil || input.LineItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer, order and line item ids required")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a reason is required")
	}

	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.BuyerID != input.BuyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you can only request refunds on your own orders")
	}
	if order.Status != enums.OrderStatusSettled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only settled orders can be refunded")
	}

	line := findLine(order.Items, input.LineItemID)
	if line == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "line item not found on this order")
	}

	remaining := order.TotalCents - order.RefundedCents
	if input.AmountCents > remaining {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount exceeds the refundable balance").
			WithDetails(map[string]int64{"refundable_cents": remaining})
	}

	request := &models.RefundRequest{
		OrderID:     order.ID,
		LineItemID:  line.ID,
		BuyerID:     order.BuyerID,
		SellerID:    line.SellerID,
		Status:      enums.RefundRequestStatusPending,
		AmountCents: input.AmountCents,
		Reason:      strings.TrimSpace(input.Reason),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.repo.WithTx(tx).Create(ctx, request)
		if err != nil {
			return err
		}
		request = created
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRefundRequested,
			AggregateType: enums.AggregateRefundRequest,
			AggregateID:   created.ID,
			Data: payloads.RefundRequestedEvent{
				RefundRequestID: created.ID,
				OrderID:         created.OrderID,
				LineItemID:      created.LineItemID,
				BuyerID:         created.BuyerID,
				SellerID:        created.SellerID,
				AmountCents:     created.AmountCents,
				Reason:          created.Reason,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

func (s *service) Approve(ctx context.Context, refundID, sellerID uuid.UUID, input ApproveInput) (*models.RefundRequest, error) {
	request, order, err := s.loadForDecision(ctx, refundID, sellerID)
	if err != nil {
		return nil, err
	}

	// Fast pre-check against the loaded snapshot; the conditional update
	// inside the transaction is the authoritative guard.
	remaining := order.TotalCents - order.RefundedCents
	if request.AmountCents > remaining {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "the order no longer has enough refundable balance").
			WithDetails(map[string]int64{"refundable_cents": remaining})
	}

	line := findLine(order.Items, request.LineItemID)
	if line == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "refund line item missing from order")
	}
	if input.RestoreInventory && line.ProductKind == enums.ProductKindUnique {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a sold one-of-a-kind item cannot be restocked")
	}

	// The gateway leg is best-effort: a provider failure downgrades the
	// outcome to a warning instead of blocking the ledger refund.
	gatewayWarning := s.refundOnGateway(ctx, order, request.AmountCents)

	decidedAt := s.now().UTC()
	// The operator side of the split is derivable from the order totals, so
	// only the seller share is written back.
	sellerShare, _ := s.splitRefund(request.AmountCents)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		decided, err := s.repo.WithTx(tx).Decide(ctx, request.ID, enums.RefundRequestStatusApproved,
			optional(input.Note), gatewayWarning, decidedAt)
		if err != nil {
			return err
		}
		if !decided {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "refund request has already been decided")
		}

		ordersRepo := s.orders.WithTx(tx)

		if input.RestoreInventory && line.ProductID != nil && line.RestockedAt == nil {
			restored, err := s.restock.Restock(ctx, tx, *line.ProductID, line.Quantity)
			if err != nil {
				return err
			}
			if restored {
				if err := ordersRepo.MarkLineItemRestocked(ctx, line.ID); err != nil {
					return err
				}
			}
		}

		added, err := ordersRepo.AddRefundedCents(ctx, order.ID, request.AmountCents)
		if err != nil {
			return err
		}
		if !added {
			// A concurrent approval consumed the balance between the
			// snapshot check and this write.
			return pkgerrors.New(pkgerrors.CodeStateConflict, "the order no longer has enough refundable balance")
		}
		// Re-read the row: the event must carry the balance the guarded
		// increment produced, not the stale snapshot.
		updated, err := ordersRepo.FindByID(ctx, order.ID)
		if err != nil {
			return err
		}
		if updated == nil {
			return pkgerrors.New(pkgerrors.CodeInternal, "order vanished during refund approval")
		}

		if err := ordersRepo.RecordSellerRefund(ctx, request.SellerID, sellerShare); err != nil {
			return err
		}

		if order.PaymentMethod == enums.PaymentMethodWallet {
			if _, err := s.wallet.CreditTx(ctx, tx, wallet.CreditInput{
				UserID:      order.BuyerID,
				AmountCents: request.AmountCents,
				Kind:        enums.WalletTransactionRefund,
				Description: fmt.Sprintf("Refund for order %d", order.OrderNumber),
				Reference:   fmt.Sprintf("refund:%s", request.ID),
			}); err != nil {
				return err
			}
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderRefunded,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderRefundedEvent{
				OrderID:         order.ID,
				RefundRequestID: request.ID,
				BuyerID:         order.BuyerID,
				SellerID:        request.SellerID,
				AmountCents:     request.AmountCents,
				RefundedCents:   updated.RefundedCents,
				RefundStatus:    updated.RefundStatus,
			},
			Version: 1,
		}); err != nil {
			return err
		}
		return s.emitDecided(ctx, tx, request, enums.RefundRequestStatusApproved, input.Note, gatewayWarning, decidedAt)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.FindByID(ctx, request.ID)
}

func (s *service) Reject(ctx context.Context, refundID, sellerID uuid.UUID, note string) (*models.RefundRequest, error) {
	request, _, err := s.loadForDecision(ctx, refundID, sellerID)
	if err != nil {
		return nil, err
	}

	decidedAt := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		decided, err := s.repo.WithTx(tx).Decide(ctx, request.ID, enums.RefundRequestStatusRejected,
			optional(note), nil, decidedAt)
		if err != nil {
			return err
		}
		if !decided {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "refund request has already been decided")
		}
		return s.emitDecided(ctx, tx, request, enums.RefundRequestStatusRejected, note, nil, decidedAt)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.FindByID(ctx, request.ID)
}

func (s *service) Get(ctx context.Context, refundID uuid.UUID) (*models.RefundRequest, error) {
	request, err := s.repo.FindByID(ctx, refundID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "refund request not found")
	}
	return request, nil
}

func (s *service) ListForSeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*RequestList, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	return s.repo.ListForSeller(ctx, sellerID, params)
}

func (s *service) ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.RefundRequest, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.repo.ListForOrder(ctx, orderID)
}

// loadForDecision fetches the request and its order and enforces that only
// the owning seller decides a still-pending request.
func (s *service) loadForDecision(ctx context.Context, refundID, sellerID uuid.UUID) (*models.RefundRequest, *models.Order, error) {
	if refundID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "refund id required")
	}
	if sellerID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}

	request, err := s.repo.FindByID(ctx, refundID)
	if err != nil {
		return nil, nil, err
	}
	if request == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "refund request not found")
	}
	if request.SellerID != sellerID {
		return nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the seller of this item can decide the request")
	}
	if request.Status.IsDecided() {
		return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "refund request has already been decided")
	}

	order, err := s.orders.FindByID(ctx, request.OrderID)
	if err != nil {
		return nil, nil, err
	}
	if order == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeInternal, "refund request points at a missing order")
	}
	return request, order, nil
}

// refundOnGateway pushes the refund to the external provider and returns a
// warning message when the provider leg fails. Wallet orders refund through
// the ledger, not a gateway.
func (s *service) refundOnGateway(ctx context.Context, order *models.Order, amountCents int64) *string {
	if order.PaymentMethod == enums.PaymentMethodWallet {
		return nil
	}

	gw, err := s.gateways.Resolve(order.PaymentMethod)
	if err != nil {
		warning := err.Error()
		return &warning
	}
	if err := gw.Refund(ctx, order.PaymentIntent, amountCents); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "order_id", order.ID.String()), "gateway refund failed", err)
		warning := fmt.Sprintf("gateway refund failed: %v", err)
		return &warning
	}
	return nil
}

func (s *service) emitDecided(ctx context.Context, tx *gorm.DB, request *models.RefundRequest,
	status enums.RefundRequestStatus, note string, gatewayWarning *string, decidedAt time.Time) error {
	event := payloads.RefundDecidedEvent{
		RefundRequestID: request.ID,
		OrderID:         request.OrderID,
		BuyerID:         request.BuyerID,
		SellerID:        request.SellerID,
		Status:          status,
		AmountCents:     request.AmountCents,
		DecisionNote:    note,
		DecidedAt:       decidedAt,
	}
	if gatewayWarning != nil {
		event.GatewayWarning = *gatewayWarning
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventRefundDecided,
		AggregateType: enums.AggregateRefundRequest,
		AggregateID:   request.ID,
		Data:          event,
		Version:       1,
	})
}

// splitRefund mirrors the sale split so a refund backs earnings and
// commission out in the same proportion they were credited.
func (s *service) splitRefund(amountCents int64) (sellerCents, operatorCents int64) {
	sellerCents = decimal.NewFromInt(amountCents).
		Mul(decimal.NewFromInt(int64(s.cfg.SellerShareBps))).
		Div(decimal.NewFromInt(10000)).
		Round(0).
		IntPart()
	return sellerCents, amountCents - sellerCents
}

func findLine(items []models.OrderLineItem, lineItemID uuid.UUID) *models.OrderLineItem {
	for i := range items {
		if items[i].ID == lineItemID {
			return &items[i]
		}
	}
	return nil
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
