package tables

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ninekrua/pos-backend/internal/invoices"
	"github.com/ninekrua/pos-backend/internal/menu"
	"github.com/ninekrua/pos-backend/internal/orders"
	"github.com/ninekrua/pos-backend/internal/settings"
	"github.com/ninekrua/pos-backend/pkg/db/models"
	"github.com/ninekrua/pos-backend/pkg/enums"
	pkgerrors "github.com/ninekrua/pos-backend/pkg/errors"
	"github.com/ninekrua/pos-backend/pkg/outbox"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:tables_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Ingredient{},
		&models.StockMovement{},
		&models.MenuCategory{},
		&models.MenuItem{},
		&models.MenuItemIngredient{},
		&models.DiningTable{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.Invoice{},
		&models.Setting{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
}

type nullOutbox struct{}

func (nullOutbox) Emit(context.Context, *gorm.DB, outbox.DomainEvent) error            { return nil }
func (nullOutbox) EmitIfNotExists(context.Context, *gorm.DB, outbox.DomainEvent) error { return nil }

type fixture struct {
	db       *gorm.DB
	svc      Service
	orders   orders.Service
	settings settings.Service
	item     *models.MenuItem // 50.00 each, no recipe
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := newTestDB(t)

	category := &models.MenuCategory{ID: uuid.New(), Name: "mains"}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}
	item := &models.MenuItem{
		ID:          uuid.New(),
		CategoryID:  category.ID,
		Name:        "green curry",
		Price:       decimal.RequireFromString("50.00"),
		IsAvailable: true,
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}

	invoiceSvc, err := invoices.NewService(invoices.NewRepository(db))
	if err != nil {
		t.Fatalf("invoice service: %v", err)
	}
	orderSvc, err := orders.NewService(orders.NewRepository(db), menu.NewRepository(db), testTxRunner{db: db}, nullOutbox{}, invoiceSvc)
	if err != nil {
		t.Fatalf("order service: %v", err)
	}
	settingSvc, err := settings.NewService(db)
	if err != nil {
		t.Fatalf("settings service: %v", err)
	}
	svc, err := NewService(NewRepository(db), orderSvc, settingSvc)
	if err != nil {
		t.Fatalf("table service: %v", err)
	}
	return fixture{db: db, svc: svc, orders: orderSvc, settings: settingSvc, item: item}
}

func placeOrder(t *testing.T, fx fixture, tableID uuid.UUID, quantity int) *orders.OrderSnapshot {
	t.Helper()
	snapshot, err := fx.orders.PlaceOrder(context.Background(), orders.PlaceOrderInput{
		TableID: tableID,
		Items:   []orders.PlaceOrderItemInput{{MenuItemID: fx.item.ID, Quantity: quantity}},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	return snapshot
}

func TestCreateTableIssuesAccessToken(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	table, err := fx.svc.CreateTable(context.Background(), "Window seat", "T1")
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	if len(table.AccessToken) != accessTokenLength {
		t.Fatalf("expected %d-char access token, got %q", accessTokenLength, table.AccessToken)
	}

	_, err = fx.svc.CreateTable(context.Background(), "Copycat", "T1")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict on duplicate code, got %v", err)
	}
}

func TestRotateAccessTokenInvalidatesOldToken(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	table, err := fx.svc.CreateTable(ctx, "Patio", "P1")
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	oldToken := table.AccessToken

	rotated, err := fx.svc.RotateAccessToken(ctx, table.ID)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if rotated.AccessToken == oldToken {
		t.Fatal("rotation must issue a different token")
	}

	if _, err := fx.svc.AuthorizeGuest(ctx, "P1", oldToken); err == nil {
		t.Fatal("old token must be rejected after rotation")
	}
	if _, err := fx.svc.AuthorizeGuest(ctx, "P1", rotated.AccessToken); err != nil {
		t.Fatalf("new token must authorize: %v", err)
	}
}

func TestAuthorizeGuestRejectsWrongToken(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	if _, err := fx.svc.CreateTable(ctx, "Bar", "B1"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	_, err := fx.svc.AuthorizeGuest(ctx, "B1", "wrong-token")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestBillSumsOpenOrdersAndBuildsPromptPay(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	table, err := fx.svc.CreateTable(ctx, "Table 9", "T9")
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	if err := fx.settings.Set(ctx, settings.KeyPromptPayTarget, "0812345678"); err != nil {
		t.Fatalf("set promptpay target: %v", err)
	}

	placeOrder(t, fx, table.ID, 1) // 50.00
	placeOrder(t, fx, table.ID, 2) // 100.00

	bill, err := fx.svc.Bill(ctx, table.ID)
	if err != nil {
		t.Fatalf("bill: %v", err)
	}
	if len(bill.Orders) != 2 {
		t.Fatalf("expected 2 open orders, got %d", len(bill.Orders))
	}
	if bill.TotalDue.StringFixed(2) != "150.00" {
		t.Fatalf("expected 150.00 due, got %s", bill.TotalDue)
	}
	if !strings.HasPrefix(bill.PromptPayPayload, "000201") {
		t.Fatalf("expected an EMVCo payload, got %q", bill.PromptPayPayload)
	}
	if !strings.Contains(bill.PromptPayPayload, "5406150.00") {
		t.Fatalf("payload must carry the amount tag, got %q", bill.PromptPayPayload)
	}
}

func TestBillWithoutPromptPayTarget(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	table, err := fx.svc.CreateTable(ctx, "Table 3", "T3")
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	placeOrder(t, fx, table.ID, 1)

	bill, err := fx.svc.Bill(ctx, table.ID)
	if err != nil {
		t.Fatalf("bill: %v", err)
	}
	if bill.PromptPayPayload != "" {
		t.Fatalf("expected no payload without a configured target, got %q", bill.PromptPayPayload)
	}
}

func TestSettlePaysEveryOpenOrderAndInvoicesEach(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	table, err := fx.svc.CreateTable(ctx, "Table 5", "T5")
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	first := placeOrder(t, fx, table.ID, 1)
	second := placeOrder(t, fx, table.ID, 2)

	settled, err := fx.svc.Settle(ctx, table.ID, enums.PaymentMethodCash, nil)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if len(settled) != 2 {
		t.Fatalf("expected 2 settled orders, got %d", len(settled))
	}
	for _, snapshot := range settled {
		if snapshot.Status != enums.OrderStatusPaid || !snapshot.IsPaid {
			t.Fatalf("order %s not settled: %s", snapshot.ID, snapshot.Status)
		}
	}

	var invoiceCount int64
	if err := fx.db.Model(&models.Invoice{}).
		Where("order_id IN ?", []uuid.UUID{first.ID, second.ID}).
		Count(&invoiceCount).Error; err != nil {
		t.Fatalf("count invoices: %v", err)
	}
	if invoiceCount != 2 {
		t.Fatalf("expected one invoice per order, got %d", invoiceCount)
	}

	remaining, err := fx.orders.ListOpenByTable(ctx, table.ID)
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected no open orders after settlement, got %d", len(remaining))
	}
}

func TestSettleWithNoOpenOrders(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	table, err := fx.svc.CreateTable(ctx, "Empty", "E1")
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	_, err = fx.svc.Settle(ctx, table.ID, enums.PaymentMethodCash, nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDeleteTableBlockedByOpenOrders(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	table, err := fx.svc.CreateTable(ctx, "Busy", "B9")
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	placeOrder(t, fx, table.ID, 1)

	err = fx.svc.DeleteTable(ctx, table.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}
