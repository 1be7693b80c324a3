package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/weihengtan/motormart-backend/pkg/db/models"
	"github.com/weihengtan/motormart-backend/pkg/enums"
	"github.com/weihengtan/motormart-backend/pkg/logger"
	"github.com/weihengtan/motormart-backend/pkg/outbox"
	"github.com/weihengtan/motormart-backend/pkg/outbox/idempotency"
	"github.com/weihengtan/motormart-backend/pkg/outbox/payloads"
)

const notificationConsumer = "user-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer watches domain events and fans refund and order activity out into
// per-user notifications.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a notification consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType.String(),
	})

	switch eventType {
	case enums.EventRefundRequested, enums.EventRefundDecided, enums.EventNotificationRequested:
	default:
		c.logg.Info(logCtx, "skipping event without a notification rule")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, notificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handleEvent(ctx, eventType, envelope.Data, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, notificationConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func (c *Consumer) handleEvent(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage, logCtx context.Context) error {
	switch eventType {
	case enums.EventRefundRequested:
		var payload payloads.RefundRequestedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse refund requested payload: %w", err)
		}
		return c.notifySellerOfRequest(ctx, payload, logCtx)
	case enums.EventRefundDecided:
		var payload payloads.RefundDecidedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse refund decided payload: %w", err)
		}
		return c.notifyBuyerOfDecision(ctx, payload, logCtx)
	case enums.EventNotificationRequested:
		var payload payloads.NotificationRequestedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse notification requested payload: %w", err)
		}
		return c.notifyOrderUpdate(ctx, payload, logCtx)
	default:
		return nil
	}
}

func (c *Consumer) notifySellerOfRequest(ctx context.Context, payload payloads.RefundRequestedEvent, logCtx context.Context) error {
	if payload.SellerID == uuid.Nil {
		return fmt.Errorf("seller id missing")
	}
	link := fmt.Sprintf("/seller/refunds/%s", payload.RefundRequestID)
	notification := &models.Notification{
		UserID: payload.SellerID,
		Type:   enums.NotificationTypeRefund,
		Title:  "New refund request",
		Message: fmt.Sprintf("A buyer requested a refund of %s on order %s.",
			formatCents(payload.AmountCents), payload.OrderID),
		Link: stringPtr(link),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "seller notified of refund request")
	return nil
}

func (c *Consumer) notifyBuyerOfDecision(ctx context.Context, payload payloads.RefundDecidedEvent, logCtx context.Context) error {
	if payload.BuyerID == uuid.Nil {
		return fmt.Errorf("buyer id missing")
	}
	link := fmt.Sprintf("/orders/%s", payload.OrderID)
	title := "Refund request rejected"
	message := fmt.Sprintf("Your refund request on order %s was rejected.", payload.OrderID)
	if payload.Status == enums.RefundRequestStatusApproved {
		title = "Refund approved"
		message = fmt.Sprintf("Your refund of %s on order %s was approved and credited to your wallet.",
			formatCents(payload.AmountCents), payload.OrderID)
	}
	if payload.DecisionNote != "" {
		message = fmt.Sprintf("%s Note: %s", message, payload.DecisionNote)
	}
	notification := &models.Notification{
		UserID:  payload.BuyerID,
		Type:    enums.NotificationTypeRefund,
		Title:   title,
		Message: message,
		Link:    stringPtr(link),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "buyer notified of refund decision")
	return nil
}

func (c *Consumer) notifyOrderUpdate(ctx context.Context, payload payloads.NotificationRequestedEvent, logCtx context.Context) error {
	if payload.UserID == uuid.Nil {
		return fmt.Errorf("user id missing")
	}
	link := fmt.Sprintf("/orders/%s", payload.OrderID)
	notification := &models.Notification{
		UserID:  payload.UserID,
		Type:    enums.NotificationTypeOrder,
		Title:   "Order update",
		Message: fmt.Sprintf("There is an update on your order %s.", payload.OrderID),
		Link:    stringPtr(link),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "user notified of order update")
	return nil
}

func formatCents(cents int64) string {
	return fmt.Sprintf("S$%d.%02d", cents/100, cents%100)
}

func stringPtr(value string) *string {
	return &value
}
