package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ninekrua/pos-backend/internal/inventory"
	"github.com/ninekrua/pos-backend/internal/orders"
	"github.com/ninekrua/pos-backend/pkg/db/models"
	"github.com/ninekrua/pos-backend/pkg/enums"
	pkgerrors "github.com/ninekrua/pos-backend/pkg/errors"
)

// Service exposes the notification feed and turns domain events into rows.
type Service interface {
	List(ctx context.Context, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context) error
	CountUnread(ctx context.Context) (int64, error)
	HandleEvent(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage) error
}

type service struct {
	repo Repository
}

// NewService wires the notification service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("notifications: repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, unreadOnly bool, limit int) ([]models.Notification, error) {
	return s.repo.List(ctx, unreadOnly, limit)
}

func (s *service) MarkRead(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id is required")
	}
	return s.repo.MarkRead(ctx, id)
}

func (s *service) MarkAllRead(ctx context.Context) error {
	return s.repo.MarkAllRead(ctx)
}

func (s *service) CountUnread(ctx context.Context) (int64, error) {
	return s.repo.CountUnread(ctx)
}

// HandleEvent maps a domain event onto a dashboard notification. Unhandled
// event types are ignored so the consumer can ack them.
func (s *service) HandleEvent(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage) error {
	switch eventType {
	case enums.EventOrderCreated:
		var payload orders.OrderCreatedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("decoding order created payload: %w", err)
		}
		return s.repo.Create(ctx, &models.Notification{
			Type:    enums.NotificationTypeOrderAlert,
			Title:   "New order",
			Message: orderSummary(payload),
			OrderID: &payload.OrderID,
		})

	case enums.EventOrderCanceled:
		var payload orders.OrderCanceledEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("decoding order canceled payload: %w", err)
		}
		return s.repo.Create(ctx, &models.Notification{
			Type:    enums.NotificationTypeOrderAlert,
			Title:   "Order canceled",
			Message: fmt.Sprintf("Order %s was canceled and its stock released.", shortID(payload.OrderID)),
			OrderID: &payload.OrderID,
		})

	case enums.EventOrderPaid:
		var payload orders.OrderPaidEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("decoding order paid payload: %w", err)
		}
		return s.repo.Create(ctx, &models.Notification{
			Type:    enums.NotificationTypeBilling,
			Title:   "Order paid",
			Message: fmt.Sprintf("Order %s settled for %s THB by %s.", shortID(payload.OrderID), payload.GrandTotal.StringFixed(2), payload.Method),
			OrderID: &payload.OrderID,
		})

	case enums.EventIngredientLow:
		var payload inventory.LowStockEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("decoding low stock payload: %w", err)
		}
		return s.repo.Create(ctx, &models.Notification{
			Type:  enums.NotificationTypeStockAlert,
			Title: "Low stock",
			Message: fmt.Sprintf("%s is down to %s %s (reorder at %s).",
				payload.Name, payload.Balance.String(), payload.Unit, payload.ReorderLevel.String()),
		})

	default:
		return nil
	}
}

func orderSummary(payload orders.OrderCreatedEvent) string {
	if len(payload.Items) == 0 {
		return fmt.Sprintf("Order %s placed.", shortID(payload.OrderID))
	}
	summary := ""
	for i, item := range payload.Items {
		if i > 0 {
			summary += ", "
		}
		summary += fmt.Sprintf("%dx %s", item.Quantity, item.Name)
	}
	return fmt.Sprintf("Order %s: %s", shortID(payload.OrderID), summary)
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
