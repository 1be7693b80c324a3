package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weihengtan/motormart-backend/internal/discounts"
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
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type reservationRunner interface {
	Reserve(ctx context.Context, tx *gorm.DB, requests []inventory.ReservationRequest) ([]inventory.ReservationResult, error)
}

type walletLedger interface {
	DebitTx(ctx context.Context, tx *gorm.DB, input wallet.DebitInput) (*models.WalletTransaction, error)
}

type discountApplier interface {
	Validate(ctx context.Context, code string, subtotalCents int64) (*discounts.Applied, error)
	IncrementUsage(ctx context.Context, id uuid.UUID)
	IncrementUsageByCode(ctx context.Context, code string)
}

type gatewayResolver interface {
	Resolve(method enums.PaymentMethod) (payments.Gateway, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type reservationEngine struct{}

func (reservationEngine) Reserve(ctx context.Context, tx *gorm.DB, requests []inventory.ReservationRequest) ([]inventory.ReservationResult, error) {
	return inventory.ReserveProducts(ctx, tx, requests)
}

// Service orchestrates settlement. The wallet rail captures and commits in a
// single call; card and QR rails return a pending order that settles through
// Confirm once the gateway reports success. Confirm takes the acting user so
// only the buyer (or a trusted system caller passing uuid.Nil, such as the
// webhook consumer) can drive a confirmation.
type Service interface {
	Execute(ctx context.Context, input Input) (*Result, error)
	Confirm(ctx context.Context, orderID, actorID uuid.UUID) (*models.Order, error)
	ConfirmByRef(ctx context.Context, externalRef string, actorID uuid.UUID) (*models.Order, error)
	Abort(ctx context.Context, orderID uuid.UUID, reason string) error
}

// LineInput is one cart line. UnitPriceCents is the price the buyer saw and
// agreed to; when set, a mismatch against the live price rejects the checkout
// instead of silently charging a different amount.
type LineInput struct {
	ProductID      uuid.UUID
	Qty            int
	UnitPriceCents int64
}

// Input is an explicit checkout request; there is no ambient cart session.
type Input struct {
	BuyerID      uuid.UUID
	Method       enums.PaymentMethod
	Lines        []LineInput
	DiscountCode string
}

// Result carries the created order plus the rail-specific material the buyer
// needs to finish paying (client secret for card, QR payload for qrbank).
type Result struct {
	Order  *models.Order
	Intent *models.PaymentIntent
}

type service struct {
	cfg         config.CheckoutConfig
	tx          txRunner
	ordersRepo  orders.Repository
	intents     payments.Repository
	products    productLoader
	wallet      walletLedger
	discounts   discountApplier
	gateways    gatewayResolver
	reservation reservationRunner
	outbox      outboxPublisher
	logg        *logger.Logger
	now         func() time.Time
	orderNumber func() int64
}

// NewService builds the settlement orchestrator.
func NewService(
	cfg config.CheckoutConfig,
	tx txRunner,
	ordersRepo orders.Repository,
	intents payments.Repository,
	products productLoader,
	walletSvc walletLedger,
	discountSvc discountApplier,
	gateways gatewayResolver,
	reservation reservationRunner,
	publisher outboxPublisher,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if intents == nil {
		return nil, fmt.Errorf("payment intents repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if discountSvc == nil {
		return nil, fmt.Errorf("discount service required")
	}
	if gateways == nil {
		return nil, fmt.Errorf("gateway registry required")
	}
	if reservation == nil {
		reservation = reservationEngine{}
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		cfg:         cfg,
		tx:          tx,
		ordersRepo:  ordersRepo,
		intents:     intents,
		products:    products,
		wallet:      walletSvc,
		discounts:   discountSvc,
		gateways:    gateways,
		reservation: reservation,
		outbox:      publisher,
		logg:        logg,
		now:         time.Now,
		orderNumber: func() int64 { return time.Now().UnixNano() },
	}, nil
}

// draft is the priced, validated cart before anything touches the database.
type draft struct {
	buyerID  uuid.UUID
	method   enums.PaymentMethod
	currency enums.Currency
	lines    []draftLine
	applied  *discounts.Applied
	totals   Totals
}

type draftLine struct {
	product  *models.Product
	qty      int
	earnings int64
}

func (s *service) Execute(ctx context.Context, input Input) (*Result, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
	}
	if max := s.cfg.MaxLinesPerOrder; max > 0 && len(input.Lines) > max {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("orders are limited to %d lines", max))
	}

	gw, err := s.gateways.Resolve(input.Method)
	if err != nil {
		return nil, err
	}

	d, err := s.price(ctx, input)
	if err != nil {
		return nil, err
	}

	if input.Method == enums.PaymentMethodWallet {
		return s.settleWithWallet(ctx, d)
	}
	return s.beginWithGateway(ctx, d, gw)
}

// price loads live products, verifies agreed prices, applies the discount and
// freezes the totals and per-line seller earnings.
func (s *service) price(ctx context.Context, input Input) (*draft, error) {
	merged := mergeLines(input.Lines)

	d := &draft{
		buyerID: input.BuyerID,
		method:  input.Method,
		lines:   make([]draftLine, 0, len(merged)),
	}

	var subtotal int64
	for _, line := range merged {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required on every line")
		}
		if line.Qty < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be at least 1")
		}

		product, err := s.products.FindByID(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", line.ProductID))
		}
		if line.UnitPriceCents > 0 && line.UnitPriceCents != product.PriceCents {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("the price of %s has changed", product.Title)).
				WithDetails(map[string]int64{"current_price_cents": product.PriceCents})
		}
		if d.currency == "" {
			d.currency = product.Currency
		} else if d.currency != product.Currency {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "all items in an order must share one currency")
		}

		subtotal += product.PriceCents * int64(line.Qty)
		d.lines = append(d.lines, draftLine{product: product, qty: line.Qty})
	}

	var discountCents int64
	if input.DiscountCode != "" {
		applied, err := s.discounts.Validate(ctx, input.DiscountCode, subtotal)
		if err != nil {
			return nil, err
		}
		d.applied = applied
		discountCents = applied.DiscountCents
	}

	d.totals = ComputeTotals(subtotal, discountCents, s.cfg)

	weights := make([]int64, len(d.lines))
	for i, line := range d.lines {
		weights[i] = line.product.PriceCents * int64(line.qty)
	}
	for i, earned := range allocateProportionally(weights, d.totals.SellerEarningsCents) {
		d.lines[i].earnings = earned
	}
	return d, nil
}

// settleWithWallet commits the order in one transaction. The balance debit
// runs inside that transaction, so a failed commit rolls the money back with
// everything else.
func (s *service) settleWithWallet(ctx context.Context, d *draft) (*Result, error) {
	order, intent, err := s.commit(ctx, d, s.orderNumber())
	if err != nil {
		return nil, err
	}

	s.afterSettle(ctx, d)
	return &Result{Order: order, Intent: intent}, nil
}

// beginWithGateway opens an intent on the external rail and persists the order
// in awaiting_authorization. Inventory is untouched until Confirm commits.
func (s *service) beginWithGateway(ctx context.Context, d *draft, gw payments.Gateway) (*Result, error) {
	orderID := uuid.New()
	number := s.orderNumber()

	intentResult, err := gw.CreateIntent(ctx, payments.CreateIntentInput{
		OrderID:     orderID,
		UserID:      d.buyerID,
		AmountCents: d.totals.TotalCents,
		Currency:    d.currency,
		Description: fmt.Sprintf("Order %d", number),
	})
	if err != nil {
		return nil, err
	}

	order := s.buildOrder(d, number)
	order.ID = orderID
	order.Status = enums.OrderStatusAwaitingAuthorization

	intent := &models.PaymentIntent{
		OrderID:      orderID,
		UserID:       d.buyerID,
		Method:       d.method,
		Status:       intentResult.Status,
		AmountCents:  d.totals.TotalCents,
		Currency:     d.currency,
		ExternalRef:  intentResult.ExternalRef,
		ClientSecret: intentResult.ClientSecret,
		QRCodeData:   intentResult.QRCodeData,
		ExpiresAt:    intentResult.ExpiresAt,
	}

	items := s.buildLineItems(orderID, d)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ordersRepo.WithTx(tx)
		if _, err := repo.CreateOrder(ctx, order); err != nil {
			return err
		}
		if err := repo.CreateOrderLineItems(ctx, items); err != nil {
			return err
		}
		_, err := repo.CreatePaymentIntent(ctx, intent)
		return err
	})
	if err != nil {
		// The gateway intent is never confirmed, so it expires on its own.
		s.logg.Warn(s.logg.WithField(ctx, "order_number", number), "abandoning gateway intent after persistence failure")
		return nil, err
	}

	// Discount usage stays untouched here; it is consumed when Confirm
	// settles the order.
	order.Items = items
	return &Result{Order: order, Intent: intent}, nil
}

// Confirm settles a gateway order after the rail itself reports the payment
// succeeded. actorID uuid.Nil marks a trusted system caller; any other actor
// must be the order's buyer.
func (s *service) Confirm(ctx context.Context, orderID, actorID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.ordersRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if actorID != uuid.Nil && actorID != order.BuyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can confirm this order")
	}
	if order.Status == enums.OrderStatusSettled {
		// Gateways redeliver success notifications; a settled order is not an error.
		return order, nil
	}
	if order.Status != enums.OrderStatusAwaitingAuthorization && order.Status != enums.OrderStatusAuthorized {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order is %s and cannot be confirmed", order.Status))
	}
	if order.PaymentIntent == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order has no payment intent")
	}

	if err := s.verifyPayment(ctx, order); err != nil {
		return nil, err
	}

	if order.Status == enums.OrderStatusAwaitingAuthorization {
		moved, err := s.ordersRepo.UpdateStatus(ctx, order.ID, enums.OrderStatusAwaitingAuthorization, enums.OrderStatusAuthorized)
		if err != nil {
			return nil, err
		}
		if !moved {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order was updated concurrently")
		}
	}
	moved, err := s.ordersRepo.UpdateStatus(ctx, order.ID, enums.OrderStatusAuthorized, enums.OrderStatusCommitting)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order was updated concurrently")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ordersRepo.WithTx(tx)

		if err := s.reserveLines(ctx, tx, order.Items); err != nil {
			return err
		}
		// A retried confirmation finds the intent already succeeded; the
		// conditional update is a no-op then, which is fine.
		if _, err := s.intents.WithTx(tx).MarkSucceeded(ctx, order.PaymentIntent.ID); err != nil {
			return err
		}
		if err := s.recordSellerSales(ctx, repo, order.Items); err != nil {
			return err
		}
		settled, err := repo.MarkSettled(ctx, order.ID)
		if err != nil {
			return err
		}
		if !settled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order was updated concurrently")
		}
		return s.emitSettled(ctx, tx, order)
	})
	if err != nil {
		s.failCaptured(ctx, order, err)
		return nil, err
	}

	if order.DiscountCode != nil {
		s.discounts.IncrementUsageByCode(ctx, *order.DiscountCode)
	}
	return s.ordersRepo.FindByID(ctx, order.ID)
}

// verifyPayment asks the rail for the intent's terminal state. A pending
// payment leaves the order untouched for a retry or the expiry sweep; a
// failed one is recorded and rejected.
func (s *service) verifyPayment(ctx context.Context, order *models.Order) error {
	gw, err := s.gateways.Resolve(order.PaymentMethod)
	if err != nil {
		return err
	}
	confirmation, err := gw.Confirm(ctx, order.PaymentIntent)
	if err != nil {
		return err
	}

	switch confirmation.Status {
	case enums.PaymentStatusSucceeded:
		return nil
	case enums.PaymentStatusFailed:
		reason := confirmation.Reason
		if reason == "" {
			reason = "payment failed on the gateway"
		}
		if aerr := s.Abort(ctx, order.ID, reason); aerr != nil {
			s.logg.Error(s.logg.WithField(ctx, "order_id", order.ID.String()), "recording gateway payment failure", aerr)
		}
		return pkgerrors.New(pkgerrors.CodePaymentDeclined, reason)
	default:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "the payment has not completed yet")
	}
}

func (s *service) ConfirmByRef(ctx context.Context, externalRef string, actorID uuid.UUID) (*models.Order, error) {
	if externalRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external reference required")
	}
	intent, err := s.intents.FindByExternalRef(ctx, externalRef)
	if err != nil {
		return nil, err
	}
	if intent == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no payment found for that reference")
	}
	return s.Confirm(ctx, intent.OrderID, actorID)
}

// Abort fails an order whose gateway payment ended in anything but success.
func (s *service) Abort(ctx context.Context, orderID uuid.UUID, reason string) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if reason == "" {
		reason = "payment was not completed"
	}

	order, err := s.ordersRepo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.Status.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order is already %s", order.Status))
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if order.PaymentIntent != nil {
			if _, err := s.intents.WithTx(tx).MarkFailed(ctx, order.PaymentIntent.ID, reason); err != nil {
				return err
			}
		}
		failed, err := s.ordersRepo.WithTx(tx).MarkFailed(ctx, order.ID, reason)
		if err != nil {
			return err
		}
		if !failed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order was updated concurrently")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderFailed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderFailedEvent{
				OrderID:       order.ID,
				BuyerID:       order.BuyerID,
				PaymentMethod: order.PaymentMethod,
				Reason:        reason,
				FailedAt:      s.now().UTC(),
			},
			Version: 1,
		})
	})
}

// commit runs the wallet rail's settlement transaction: debit the balance,
// reserve inventory, persist the order with its frozen split, record seller
// revenue and emit the settled event.
func (s *service) commit(ctx context.Context, d *draft, number int64) (*models.Order, *models.PaymentIntent, error) {
	var (
		order  *models.Order
		intent *models.PaymentIntent
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ordersRepo.WithTx(tx)

		if _, err := s.wallet.DebitTx(ctx, tx, wallet.DebitInput{
			UserID:      d.buyerID,
			AmountCents: d.totals.TotalCents,
			Kind:        enums.WalletTransactionPurchase,
			Description: fmt.Sprintf("Payment for order %d", number),
			Reference:   fmt.Sprintf("order:%d", number),
		}); err != nil {
			return err
		}

		requests := make([]inventory.ReservationRequest, len(d.lines))
		for i, line := range d.lines {
			requests[i] = inventory.ReservationRequest{ProductID: line.product.ID, Qty: line.qty}
		}
		results, err := s.reservation.Reserve(ctx, tx, requests)
		if err != nil {
			return err
		}
		if reasons := failedReasons(results); len(reasons) > 0 {
			return pkgerrors.New(pkgerrors.CodeInsufficientInventory, "some items are no longer available").
				WithDetails(reasons)
		}

		template := s.buildOrder(d, number)
		template.Status = enums.OrderStatusCommitting
		created, err := repo.CreateOrder(ctx, template)
		if err != nil {
			return err
		}

		items := s.buildLineItems(created.ID, d)
		if err := repo.CreateOrderLineItems(ctx, items); err != nil {
			return err
		}

		succeededAt := s.now().UTC()
		walletIntent := &models.PaymentIntent{
			OrderID:     created.ID,
			UserID:      d.buyerID,
			Method:      enums.PaymentMethodWallet,
			Status:      enums.PaymentStatusSucceeded,
			AmountCents: d.totals.TotalCents,
			Currency:    d.currency,
			SucceededAt: &succeededAt,
		}
		if _, err := repo.CreatePaymentIntent(ctx, walletIntent); err != nil {
			return err
		}

		if err := s.recordSellerSales(ctx, repo, items); err != nil {
			return err
		}

		settled, err := repo.MarkSettled(ctx, created.ID)
		if err != nil {
			return err
		}
		if !settled {
			return pkgerrors.New(pkgerrors.CodeInternal, "order did not settle")
		}

		created.Status = enums.OrderStatusSettled
		created.Items = items
		order = created
		intent = walletIntent
		return s.emitSettled(ctx, tx, created)
	})
	if err != nil {
		return nil, nil, err
	}
	return order, intent, nil
}

// failCaptured handles a commit failure after an external gateway already
// captured the money: push a refund on the gateway, then record the failure.
func (s *service) failCaptured(ctx context.Context, order *models.Order, cause error) {
	lctx := s.logg.WithField(ctx, "order_id", order.ID.String())

	gw, err := s.gateways.Resolve(order.PaymentMethod)
	if err == nil {
		if rerr := gw.Refund(ctx, order.PaymentIntent, order.TotalCents); rerr != nil {
			s.logg.Error(lctx, "gateway refund after failed commit", rerr)
		} else if _, merr := s.intents.MarkRefunded(ctx, order.PaymentIntent.ID); merr != nil {
			s.logg.Error(lctx, "marking intent refunded", merr)
		}
	}

	if aerr := s.Abort(ctx, order.ID, cause.Error()); aerr != nil {
		s.logg.Error(lctx, "recording failed settlement", aerr)
	}
}

// afterSettle runs the best-effort post-commit work.
func (s *service) afterSettle(ctx context.Context, d *draft) {
	if d.applied != nil && d.applied.Code != nil {
		s.discounts.IncrementUsage(ctx, d.applied.Code.ID)
	}
}

func (s *service) reserveLines(ctx context.Context, tx *gorm.DB, items []models.OrderLineItem) error {
	requests := make([]inventory.ReservationRequest, 0, len(items))
	for _, item := range items {
		if item.ProductID == nil {
			return pkgerrors.New(pkgerrors.CodeInternal, "line item lost its product reference before commit")
		}
		requests = append(requests, inventory.ReservationRequest{ProductID: *item.ProductID, Qty: item.Quantity})
	}
	results, err := s.reservation.Reserve(ctx, tx, requests)
	if err != nil {
		return err
	}
	if reasons := failedReasons(results); len(reasons) > 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficientInventory, "some items are no longer available").
			WithDetails(reasons)
	}
	return nil
}

func (s *service) recordSellerSales(ctx context.Context, repo orders.Repository, items []models.OrderLineItem) error {
	earnings := make(map[uuid.UUID]int64, len(items))
	order := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if _, seen := earnings[item.SellerID]; !seen {
			order = append(order, item.SellerID)
		}
		earnings[item.SellerID] += item.SellerEarningsCents
	}
	for _, sellerID := range order {
		if err := repo.RecordSellerSale(ctx, sellerID, earnings[sellerID]); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) emitSettled(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderSettled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.OrderSettledEvent{
			OrderID:             order.ID,
			BuyerID:             order.BuyerID,
			OrderNumber:         order.OrderNumber,
			PaymentMethod:       order.PaymentMethod,
			SubtotalCents:       order.SubtotalCents,
			DiscountCents:       order.DiscountCents,
			PlatformFeeCents:    order.PlatformFeeCents,
			TaxCents:            order.TaxCents,
			TotalCents:          order.TotalCents,
			SellerEarningsCents: order.SellerEarningsCents,
			OperatorFeeCents:    order.OperatorFeeCents,
			SettledAt:           s.now().UTC(),
		},
		Version: 1,
	})
}

func (s *service) buildOrder(d *draft, number int64) *models.Order {
	order := &models.Order{
		BuyerID:             d.buyerID,
		OrderNumber:         number,
		Currency:            d.currency,
		SubtotalCents:       d.totals.SubtotalCents,
		DiscountCents:       d.totals.DiscountCents,
		PlatformFeeCents:    d.totals.PlatformFeeCents,
		TaxCents:            d.totals.TaxCents,
		TotalCents:          d.totals.TotalCents,
		SellerEarningsCents: d.totals.SellerEarningsCents,
		OperatorFeeCents:    d.totals.OperatorFeeCents,
		PaymentMethod:       d.method,
		RefundStatus:        enums.RefundStatusNone,
	}
	if d.applied != nil && d.applied.Code != nil {
		code := d.applied.Code.Code
		order.DiscountCode = &code
	}
	return order
}

func (s *service) buildLineItems(orderID uuid.UUID, d *draft) []models.OrderLineItem {
	items := make([]models.OrderLineItem, len(d.lines))
	for i, line := range d.lines {
		productID := line.product.ID
		items[i] = models.OrderLineItem{
			OrderID:             orderID,
			ProductID:           &productID,
			SellerID:            line.product.SellerID,
			ProductKind:         line.product.Kind,
			Title:               line.product.Title,
			UnitPriceCents:      line.product.PriceCents,
			Quantity:            line.qty,
			LineTotalCents:      line.product.PriceCents * int64(line.qty),
			SellerEarningsCents: line.earnings,
		}
	}
	return items
}

func mergeLines(lines []LineInput) []LineInput {
	merged := make([]LineInput, 0, len(lines))
	index := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		if at, ok := index[line.ProductID]; ok {
			merged[at].Qty += line.Qty
			continue
		}
		index[line.ProductID] = len(merged)
		merged = append(merged, line)
	}
	return merged
}

func failedReasons(results []inventory.ReservationResult) []string {
	var reasons []string
	for _, res := range results {
		if !res.Reserved {
			reasons = append(reasons, res.Reason)
		}
	}
	return reasons
}
