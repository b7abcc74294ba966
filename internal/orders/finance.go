package orders

import (
	"github.com/shopspring/decimal"

	"github.com/ninekrua/pos-backend/pkg/db/models"
)

// Totals is the financial breakdown of one order, computed from its persisted
// items and payments. All monetary fields are rounded to 2 decimals.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	ServiceCharge  decimal.Decimal `json:"service_charge"`
	TaxableBase    decimal.Decimal `json:"taxable_base"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	BalanceDue     decimal.Decimal `json:"balance_due"`
}

// Subtotal sums unit_price × quantity over the order's items. Unit prices are
// snapshots taken at order time, so this never moves with later menu edits.
func Subtotal(items []models.OrderItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return sum
}

// AmountPaid sums every payment recorded against the order.
func AmountPaid(payments []models.Payment) decimal.Decimal {
	sum := decimal.Zero
	for _, payment := range payments {
		sum = sum.Add(payment.Amount)
	}
	return sum
}

// ComputeTotals derives the full financial breakdown of an order. It is pure:
// the order must already carry its items and payments.
//
// The taxable base is clamped at zero so a discount larger than the bill never
// produces a negative tax.
func ComputeTotals(order *models.Order) Totals {
	subtotal := Subtotal(order.Items)

	taxable := subtotal.Sub(order.DiscountAmount).Add(order.ServiceCharge)
	if taxable.IsNegative() {
		taxable = decimal.Zero
	}

	tax := taxable.Mul(order.TaxRate).Div(decimal.NewFromInt(100)).Round(2)
	grand := subtotal.Sub(order.DiscountAmount).Add(order.ServiceCharge).Add(tax).Round(2)
	paid := AmountPaid(order.Payments)

	return Totals{
		Subtotal:       subtotal.Round(2),
		DiscountAmount: order.DiscountAmount.Round(2),
		ServiceCharge:  order.ServiceCharge.Round(2),
		TaxableBase:    taxable.Round(2),
		TaxRate:        order.TaxRate,
		TaxAmount:      tax,
		GrandTotal:     grand,
		AmountPaid:     paid.Round(2),
		BalanceDue:     grand.Sub(paid).Round(2),
	}
}

// IsPaid reports whether the order is settled: nothing left to pay, and at
// least one payment on record. A zero-total order with no payments is not
// "paid", it is simply free and unsettled.
func IsPaid(totals Totals, payments []models.Payment) bool {
	return len(payments) > 0 && totals.BalanceDue.LessThanOrEqual(decimal.Zero)
}

// paymentTolerance is how far a payment may overshoot the remaining balance
// before it is rejected, absorbing cash rounding at the till.
var paymentTolerance = decimal.RequireFromString("0.01")
