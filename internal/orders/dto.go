package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ninekrua/pos-backend/pkg/db/models"
	"github.com/ninekrua/pos-backend/pkg/enums"
)

// SnapshotItem is one order line in the read model.
type SnapshotItem struct {
	ID         uuid.UUID       `json:"id"`
	MenuItemID uuid.UUID       `json:"menu_item_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	LineTotal  decimal.Decimal `json:"line_total"`
	Note       *string         `json:"note,omitempty"`
}

// SnapshotPayment is one recorded payment in the read model.
type SnapshotPayment struct {
	ID        uuid.UUID           `json:"id"`
	Amount    decimal.Decimal     `json:"amount"`
	Method    enums.PaymentMethod `json:"method"`
	Reference *string             `json:"reference,omitempty"`
	Note      *string             `json:"note,omitempty"`
	PaidAt    time.Time           `json:"paid_at"`
}

// OrderSnapshot is the canonical read model handed to the HTTP layer and the
// notification pipeline: the order, its lines, its payments, and the full
// financial breakdown in one consistent view.
type OrderSnapshot struct {
	ID        uuid.UUID         `json:"id"`
	TableID   uuid.UUID         `json:"table_id"`
	TableName string            `json:"table_name,omitempty"`
	Status    enums.OrderStatus `json:"status"`
	Note      *string           `json:"note,omitempty"`
	Totals    Totals            `json:"totals"`
	IsPaid    bool              `json:"is_paid"`
	Items     []SnapshotItem    `json:"items"`
	Payments  []SnapshotPayment `json:"payments"`
	InvoiceID *uuid.UUID        `json:"invoice_id,omitempty"`
	PaidAt    *time.Time        `json:"paid_at,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// BuildSnapshot projects a loaded order aggregate into the read model.
func BuildSnapshot(order *models.Order) OrderSnapshot {
	totals := ComputeTotals(order)

	items := make([]SnapshotItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, SnapshotItem{
			ID:         item.ID,
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			LineTotal:  item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2),
			Note:       item.Note,
		})
	}

	payments := make([]SnapshotPayment, 0, len(order.Payments))
	for _, payment := range order.Payments {
		payments = append(payments, SnapshotPayment{
			ID:        payment.ID,
			Amount:    payment.Amount,
			Method:    payment.Method,
			Reference: payment.Reference,
			Note:      payment.Note,
			PaidAt:    payment.PaidAt,
		})
	}

	snapshot := OrderSnapshot{
		ID:        order.ID,
		TableID:   order.TableID,
		Status:    order.Status,
		Note:      order.Note,
		Totals:    totals,
		IsPaid:    IsPaid(totals, order.Payments),
		Items:     items,
		Payments:  payments,
		PaidAt:    order.PaidAt,
		CreatedAt: order.CreatedAt,
	}
	if order.Table != nil {
		snapshot.TableName = order.Table.Name
	}
	if order.Invoice != nil {
		id := order.Invoice.ID
		snapshot.InvoiceID = &id
	}
	return snapshot
}
