package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice is the immutable financial snapshot written once an order settles.
// TaxRate here is the fixed VAT rate, deliberately independent of the order's
// own configurable tax_rate.
type Invoice struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:numeric(10,2);not null"`
	NetAmount   decimal.Decimal `gorm:"column:net_amount;type:numeric(10,2);not null"`
	TaxAmount   decimal.Decimal `gorm:"column:tax_amount;type:numeric(10,2);not null"`
	TaxRate     decimal.Decimal `gorm:"column:tax_rate;type:numeric(5,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}
