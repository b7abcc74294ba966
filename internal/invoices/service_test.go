package invoices

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ninekrua/pos-backend/pkg/db/models"
	pkgerrors "github.com/ninekrua/pos-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:invoices_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Invoice{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db
}

func TestDecompose(t *testing.T) {
	t.Parallel()

	tests := []struct {
		total   string
		wantNet string
		wantTax string
	}{
		{total: "101.65", wantNet: "95.00", wantTax: "6.65"},
		{total: "107.00", wantNet: "100.00", wantTax: "7.00"},
		{total: "0.00", wantNet: "0.00", wantTax: "0.00"},
		{total: "59.99", wantNet: "56.07", wantTax: "3.92"},
	}

	for _, tc := range tests {
		net, tax := Decompose(decimal.RequireFromString(tc.total))
		if net.StringFixed(2) != tc.wantNet {
			t.Fatalf("total %s: expected net %s, got %s", tc.total, tc.wantNet, net.StringFixed(2))
		}
		if tax.StringFixed(2) != tc.wantTax {
			t.Fatalf("total %s: expected tax %s, got %s", tc.total, tc.wantTax, tax.StringFixed(2))
		}
		if !net.Add(tax).Equal(decimal.RequireFromString(tc.total)) {
			t.Fatalf("total %s: net+tax must reconstruct the total exactly", tc.total)
		}
	}
}

func TestEnsureInvoiceIdempotent(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	orderID := uuid.New()
	total := decimal.RequireFromString("101.65")

	first, err := svc.EnsureInvoice(ctx, db, orderID, total)
	if err != nil {
		t.Fatalf("ensure invoice: %v", err)
	}
	second, err := svc.EnsureInvoice(ctx, db, orderID, total)
	if err != nil {
		t.Fatalf("ensure invoice again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected identical invoice, got %s and %s", first.ID, second.ID)
	}

	var count int64
	if err := db.Model(&models.Invoice{}).Where("order_id = ?", orderID).Count(&count).Error; err != nil {
		t.Fatalf("count invoices: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one invoice, got %d", count)
	}

	if first.NetAmount.StringFixed(2) != "95.00" || first.TaxAmount.StringFixed(2) != "6.65" {
		t.Fatalf("unexpected decomposition net=%s tax=%s", first.NetAmount, first.TaxAmount)
	}
	if !first.TaxRate.Equal(FixedVATRate) {
		t.Fatalf("expected fixed VAT rate stamped, got %s", first.TaxRate)
	}
}

func TestEnsureInvoiceIgnoresOrderTaxRate(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)

	// The decomposition always uses the fixed rate even though orders carry
	// their own configurable tax_rate.
	invoice, err := svc.EnsureInvoice(context.Background(), db, uuid.New(), decimal.RequireFromString("214.00"))
	if err != nil {
		t.Fatalf("ensure invoice: %v", err)
	}
	if invoice.NetAmount.StringFixed(2) != "200.00" {
		t.Fatalf("expected net 200.00, got %s", invoice.NetAmount)
	}
}

func TestGetByOrderNotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)

	_, err := svc.GetByOrder(context.Background(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}
