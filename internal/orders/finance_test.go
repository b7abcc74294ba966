package orders

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ninekrua/pos-backend/pkg/db/models"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func TestComputeTotalsFullBreakdown(t *testing.T) {
	t.Parallel()

	order := &models.Order{
		DiscountAmount: d("10"),
		ServiceCharge:  d("5"),
		TaxRate:        d("7"),
		Items: []models.OrderItem{
			{Name: "Pad Krapow", Quantity: 2, UnitPrice: d("50.00")},
		},
	}

	totals := ComputeTotals(order)

	if totals.Subtotal.StringFixed(2) != "100.00" {
		t.Fatalf("expected subtotal 100.00, got %s", totals.Subtotal)
	}
	if totals.TaxableBase.StringFixed(2) != "95.00" {
		t.Fatalf("expected taxable base 95.00, got %s", totals.TaxableBase)
	}
	if totals.TaxAmount.StringFixed(2) != "6.65" {
		t.Fatalf("expected tax 6.65, got %s", totals.TaxAmount)
	}
	if totals.GrandTotal.StringFixed(2) != "101.65" {
		t.Fatalf("expected grand total 101.65, got %s", totals.GrandTotal)
	}
	if totals.BalanceDue.StringFixed(2) != "101.65" {
		t.Fatalf("expected balance due 101.65, got %s", totals.BalanceDue)
	}
}

func TestComputeTotalsClampsNegativeTaxableBase(t *testing.T) {
	t.Parallel()

	order := &models.Order{
		DiscountAmount: d("200"),
		TaxRate:        d("7"),
		Items: []models.OrderItem{
			{Name: "Spring Rolls", Quantity: 1, UnitPrice: d("45.00")},
		},
	}

	totals := ComputeTotals(order)

	if !totals.TaxableBase.IsZero() {
		t.Fatalf("expected taxable base clamped to zero, got %s", totals.TaxableBase)
	}
	if !totals.TaxAmount.IsZero() {
		t.Fatalf("expected zero tax on clamped base, got %s", totals.TaxAmount)
	}
	// The grand total itself is not clamped; an oversized discount shows up
	// as a negative balance the caller can flag.
	if totals.GrandTotal.StringFixed(2) != "-155.00" {
		t.Fatalf("expected grand total -155.00, got %s", totals.GrandTotal)
	}
}

func TestComputeTotalsPartialPayments(t *testing.T) {
	t.Parallel()

	order := &models.Order{
		DiscountAmount: d("10"),
		ServiceCharge:  d("5"),
		TaxRate:        d("7"),
		Items: []models.OrderItem{
			{Name: "Pad Krapow", Quantity: 2, UnitPrice: d("50.00")},
		},
		Payments: []models.Payment{
			{Amount: d("50.00")},
		},
	}

	totals := ComputeTotals(order)
	if totals.BalanceDue.StringFixed(2) != "51.65" {
		t.Fatalf("expected balance 51.65 after first payment, got %s", totals.BalanceDue)
	}
	if IsPaid(totals, order.Payments) {
		t.Fatal("order with an outstanding balance must not be paid")
	}

	order.Payments = append(order.Payments, models.Payment{Amount: d("51.65")})
	totals = ComputeTotals(order)
	if !totals.BalanceDue.IsZero() {
		t.Fatalf("expected zero balance after settlement, got %s", totals.BalanceDue)
	}
	if !IsPaid(totals, order.Payments) {
		t.Fatal("fully paid order must report paid")
	}
}

func TestIsPaidRequiresAtLeastOnePayment(t *testing.T) {
	t.Parallel()

	// An order whose grand total is zero still needs an explicit payment
	// record before it counts as settled.
	order := &models.Order{TaxRate: d("7")}
	totals := ComputeTotals(order)
	if !totals.BalanceDue.IsZero() {
		t.Fatalf("expected zero balance, got %s", totals.BalanceDue)
	}
	if IsPaid(totals, order.Payments) {
		t.Fatal("zero-total order without payments must not be paid")
	}
}

func TestTaxRoundingHalfAwayFromZero(t *testing.T) {
	t.Parallel()

	// 35.50 * 7% = 2.485 which rounds up to 2.49.
	order := &models.Order{
		TaxRate: d("7"),
		Items: []models.OrderItem{
			{Name: "Thai Iced Tea", Quantity: 1, UnitPrice: d("35.50")},
		},
	}

	totals := ComputeTotals(order)
	if totals.TaxAmount.StringFixed(2) != "2.49" {
		t.Fatalf("expected tax 2.49, got %s", totals.TaxAmount)
	}
	if totals.GrandTotal.StringFixed(2) != "37.99" {
		t.Fatalf("expected grand total 37.99, got %s", totals.GrandTotal)
	}
}
