package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/weihengtan/motormart-backend/pkg/db/models"
	"github.com/weihengtan/motormart-backend/pkg/logger"
)

type fakeAwaitingReader struct {
	orders []models.Order
	err    error
	cutoff time.Time
	limit  int
}

func (f *fakeAwaitingReader) FindAwaitingBefore(_ context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	f.cutoff = cutoff
	f.limit = limit
	return f.orders, f.err
}

type fakeAborter struct {
	aborted []uuid.UUID
	reasons []string
	failOn  map[uuid.UUID]error
}

func (f *fakeAborter) Abort(_ context.Context, orderID uuid.UUID, reason string) error {
	if err, ok := f.failOn[orderID]; ok {
		return err
	}
	f.aborted = append(f.aborted, orderID)
	f.reasons = append(f.reasons, reason)
	return nil
}

func sweepLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestOrderSweepExpiresStaleOrders(t *testing.T) {
	stale := []models.Order{{ID: uuid.New()}, {ID: uuid.New()}}
	reader := &fakeAwaitingReader{orders: stale}
	aborter := &fakeAborter{}

	job, err := NewOrderSweepJob(OrderSweepJobParams{
		Logger:   sweepLogger(),
		Orders:   reader,
		Checkout: aborter,
		MaxAge:   30 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewOrderSweepJob error: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(aborter.aborted) != 2 {
		t.Fatalf("expected 2 aborts, got %d", len(aborter.aborted))
	}
	for _, reason := range aborter.reasons {
		if reason != orderSweepAbortReason {
			t.Fatalf("unexpected abort reason %q", reason)
		}
	}
	if reader.limit != defaultOrderSweepBatch {
		t.Fatalf("expected default batch size, got %d", reader.limit)
	}
	if time.Since(reader.cutoff) < 30*time.Minute {
		t.Fatalf("cutoff %v not older than max age", reader.cutoff)
	}
}

func TestOrderSweepNoStaleOrders(t *testing.T) {
	aborter := &fakeAborter{}
	job, err := NewOrderSweepJob(OrderSweepJobParams{
		Logger:   sweepLogger(),
		Orders:   &fakeAwaitingReader{},
		Checkout: aborter,
	})
	if err != nil {
		t.Fatalf("NewOrderSweepJob error: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(aborter.aborted) != 0 {
		t.Fatalf("expected no aborts, got %d", len(aborter.aborted))
	}
}

func TestOrderSweepContinuesPastAbortFailure(t *testing.T) {
	broken := uuid.New()
	healthy := uuid.New()
	reader := &fakeAwaitingReader{orders: []models.Order{{ID: broken}, {ID: healthy}}}
	aborter := &fakeAborter{failOn: map[uuid.UUID]error{broken: errors.New("db unavailable")}}

	job, err := NewOrderSweepJob(OrderSweepJobParams{
		Logger:   sweepLogger(),
		Orders:   reader,
		Checkout: aborter,
	})
	if err != nil {
		t.Fatalf("NewOrderSweepJob error: %v", err)
	}

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected aggregated error")
	}
	if len(aborter.aborted) != 1 || aborter.aborted[0] != healthy {
		t.Fatalf("expected the healthy order aborted, got %v", aborter.aborted)
	}
}

func TestOrderSweepRequiresDependencies(t *testing.T) {
	if _, err := NewOrderSweepJob(OrderSweepJobParams{Logger: sweepLogger()}); err == nil {
		t.Fatal("expected error without orders reader")
	}
	if _, err := NewOrderSweepJob(OrderSweepJobParams{Logger: sweepLogger(), Orders: &fakeAwaitingReader{}}); err == nil {
		t.Fatal("expected error without checkout service")
	}
}
