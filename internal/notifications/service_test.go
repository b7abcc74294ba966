package notifications

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ninekrua/pos-backend/internal/inventory"
	"github.com/ninekrua/pos-backend/internal/orders"
	"github.com/ninekrua/pos-backend/pkg/db/models"
	"github.com/ninekrua/pos-backend/pkg/enums"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:notifications_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Notification{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestHandleOrderCreatedBuildsKitchenTicket(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	orderID := uuid.New()
	payload := orders.OrderCreatedEvent{
		OrderID:    orderID,
		TableID:    uuid.New(),
		GrandTotal: decimal.RequireFromString("101.65"),
		Items: []orders.OrderedItemEvent{
			{Name: "fried rice", Quantity: 2},
			{Name: "thai iced tea", Quantity: 1},
		},
	}
	if err := svc.HandleEvent(ctx, enums.EventOrderCreated, mustJSON(t, payload)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	list, err := svc.List(ctx, true, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one notification, got %d", len(list))
	}
	got := list[0]
	if got.Type != enums.NotificationTypeOrderAlert {
		t.Fatalf("expected order alert, got %s", got.Type)
	}
	if got.OrderID == nil || *got.OrderID != orderID {
		t.Fatalf("notification must reference the order, got %v", got.OrderID)
	}
	if !strings.Contains(got.Message, "2x fried rice") || !strings.Contains(got.Message, "1x thai iced tea") {
		t.Fatalf("message must summarize the lines, got %q", got.Message)
	}
}

func TestHandleLowStockNamesIngredient(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	payload := inventory.LowStockEvent{
		IngredientID: uuid.New(),
		Name:         "egg",
		Unit:         "pcs",
		Balance:      decimal.RequireFromString("4"),
		ReorderLevel: decimal.RequireFromString("12"),
	}
	if err := svc.HandleEvent(ctx, enums.EventIngredientLow, mustJSON(t, payload)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	list, err := svc.List(ctx, false, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Type != enums.NotificationTypeStockAlert {
		t.Fatalf("expected one stock alert, got %+v", list)
	}
	if !strings.Contains(list[0].Message, "egg") || !strings.Contains(list[0].Message, "4") {
		t.Fatalf("message must name the ingredient and balance, got %q", list[0].Message)
	}
}

func TestHandleEventIgnoresUnmappedTypes(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.HandleEvent(ctx, enums.EventStockRestocked, json.RawMessage(`{}`)); err != nil {
		t.Fatalf("unmapped event must be a no-op: %v", err)
	}
	count, err := svc.CountUnread(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no notifications, got %d", count)
	}
}

func TestMarkReadLifecycle(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	paid := orders.OrderPaidEvent{
		OrderID:    uuid.New(),
		GrandTotal: decimal.RequireFromString("250.00"),
		Method:     enums.PaymentMethodPromptPay,
	}
	if err := svc.HandleEvent(ctx, enums.EventOrderPaid, mustJSON(t, paid)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	canceled := orders.OrderCanceledEvent{OrderID: uuid.New()}
	if err := svc.HandleEvent(ctx, enums.EventOrderCanceled, mustJSON(t, canceled)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	count, err := svc.CountUnread(ctx)
	if err != nil || count != 2 {
		t.Fatalf("expected 2 unread, got %d (%v)", count, err)
	}

	list, err := svc.List(ctx, true, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if err := svc.MarkRead(ctx, list[0].ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	count, _ = svc.CountUnread(ctx)
	if count != 1 {
		t.Fatalf("expected 1 unread after mark, got %d", count)
	}

	if err := svc.MarkAllRead(ctx); err != nil {
		t.Fatalf("mark all: %v", err)
	}
	count, _ = svc.CountUnread(ctx)
	if count != 0 {
		t.Fatalf("expected 0 unread after mark all, got %d", count)
	}
}
