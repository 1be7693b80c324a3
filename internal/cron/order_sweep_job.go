package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/weihengtan/motormart-backend/pkg/db/models"
	"github.com/weihengtan/motormart-backend/pkg/logger"
)

const (
	defaultOrderSweepAge   = time.Hour
	defaultOrderSweepBatch = 200
	orderSweepAbortReason  = "payment was not completed in time"
)

// txRunner runs a function inside a database transaction.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type awaitingOrderReader interface {
	FindAwaitingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type orderAborter interface {
	Abort(ctx context.Context, orderID uuid.UUID, reason string) error
}

// OrderSweepJobParams configure the stale payment sweep.
type OrderSweepJobParams struct {
	Logger    *logger.Logger
	Orders    awaitingOrderReader
	Checkout  orderAborter
	MaxAge    time.Duration
	BatchSize int
}

// NewOrderSweepJob builds the cron job that fails orders stuck waiting on an
// external payment rail. Card and QR intents that never resolve would
// otherwise hold their orders in awaiting_authorization forever.
func NewOrderSweepJob(params OrderSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders reader required")
	}
	if params.Checkout == nil {
		return nil, fmt.Errorf("checkout service required")
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = defaultOrderSweepAge
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultOrderSweepBatch
	}
	return &orderSweepJob{
		logg:     params.Logger,
		orders:   params.Orders,
		checkout: params.Checkout,
		maxAge:   maxAge,
		batch:    batch,
		now:      time.Now,
	}, nil
}

type orderSweepJob struct {
	logg     *logger.Logger
	orders   awaitingOrderReader
	checkout orderAborter
	maxAge   time.Duration
	batch    int
	now      func() time.Time
}

func (j *orderSweepJob) Name() string { return "order-sweep" }

func (j *orderSweepJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.maxAge)
	stale, err := j.orders.FindAwaitingBefore(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("find stale orders: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	var (
		expired int
		errs    error
	)
	for _, order := range stale {
		if abortErr := j.checkout.Abort(ctx, order.ID, orderSweepAbortReason); abortErr != nil {
			orderCtx := j.logg.WithField(ctx, "order_id", order.ID.String())
			j.logg.Error(orderCtx, "abort stale order", abortErr)
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.ID, abortErr))
			continue
		}
		expired++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"found":   len(stale),
		"expired": expired,
	})
	j.logg.Info(logCtx, "stale order sweep complete")
	return errs
}
