package notifications

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/weihengtan/motormart-backend/pkg/enums"
	"github.com/weihengtan/motormart-backend/pkg/logger"
	"github.com/weihengtan/motormart-backend/pkg/outbox/payloads"
)

func testConsumerLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "notifications-test", Output: io.Discard})
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func TestHandleEventRefundRequestedNotifiesSeller(t *testing.T) {
	repo := &fakeRepository{}
	consumer := &Consumer{repo: repo, logg: testConsumerLogger()}

	sellerID := uuid.New()
	payload := payloads.RefundRequestedEvent{
		RefundRequestID: uuid.New(),
		OrderID:         uuid.New(),
		BuyerID:         uuid.New(),
		SellerID:        sellerID,
		AmountCents:     2_500,
		Reason:          "damaged part",
	}

	ctx := context.Background()
	if err := consumer.handleEvent(ctx, enums.EventRefundRequested, mustJSON(t, payload), ctx); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	if len(repo.rows) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(repo.rows))
	}
	row := repo.rows[0]
	if row.UserID != sellerID {
		t.Fatalf("expected seller %s, got %s", sellerID, row.UserID)
	}
	if row.Type != enums.NotificationTypeRefund {
		t.Fatalf("expected refund type, got %s", row.Type)
	}
	if !strings.Contains(row.Message, "S$25.00") {
		t.Fatalf("expected formatted amount in message, got %q", row.Message)
	}
}

func TestHandleEventRefundDecidedNotifiesBuyer(t *testing.T) {
	repo := &fakeRepository{}
	consumer := &Consumer{repo: repo, logg: testConsumerLogger()}

	buyerID := uuid.New()
	payload := payloads.RefundDecidedEvent{
		RefundRequestID: uuid.New(),
		OrderID:         uuid.New(),
		BuyerID:         buyerID,
		SellerID:        uuid.New(),
		Status:          enums.RefundRequestStatusApproved,
		AmountCents:     10_000,
	}

	ctx := context.Background()
	if err := consumer.handleEvent(ctx, enums.EventRefundDecided, mustJSON(t, payload), ctx); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	if len(repo.rows) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(repo.rows))
	}
	row := repo.rows[0]
	if row.UserID != buyerID {
		t.Fatalf("expected buyer %s, got %s", buyerID, row.UserID)
	}
	if row.Title != "Refund approved" {
		t.Fatalf("unexpected title %q", row.Title)
	}
}

func TestHandleEventRejectionIncludesNote(t *testing.T) {
	repo := &fakeRepository{}
	consumer := &Consumer{repo: repo, logg: testConsumerLogger()}

	payload := payloads.RefundDecidedEvent{
		RefundRequestID: uuid.New(),
		OrderID:         uuid.New(),
		BuyerID:         uuid.New(),
		SellerID:        uuid.New(),
		Status:          enums.RefundRequestStatusRejected,
		AmountCents:     10_000,
		DecisionNote:    "outside the return window",
	}

	ctx := context.Background()
	if err := consumer.handleEvent(ctx, enums.EventRefundDecided, mustJSON(t, payload), ctx); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	row := repo.rows[0]
	if row.Title != "Refund request rejected" {
		t.Fatalf("unexpected title %q", row.Title)
	}
	if !strings.Contains(row.Message, "outside the return window") {
		t.Fatalf("expected decision note in message, got %q", row.Message)
	}
}

func TestHandleEventMissingUserFails(t *testing.T) {
	repo := &fakeRepository{}
	consumer := &Consumer{repo: repo, logg: testConsumerLogger()}

	payload := payloads.NotificationRequestedEvent{OrderID: uuid.New(), Type: "order"}

	ctx := context.Background()
	err := consumer.handleEvent(ctx, enums.EventNotificationRequested, mustJSON(t, payload), ctx)
	if err == nil {
		t.Fatal("expected error for missing user id")
	}
	if len(repo.rows) != 0 {
		t.Fatalf("expected no notifications, got %d", len(repo.rows))
	}
}
