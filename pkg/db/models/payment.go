package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ninekrua/pos-backend/pkg/enums"
)

// Payment is one (possibly partial) settlement against an order.
type Payment struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	Amount    decimal.Decimal     `gorm:"column:amount;type:numeric(10,2);not null"`
	Method    enums.PaymentMethod `gorm:"column:method;type:payment_method;not null;default:'cash'"`
	Reference *string             `gorm:"column:reference;type:text"`
	Note      *string             `gorm:"column:note;type:text"`
	PaidAt    time.Time           `gorm:"column:paid_at;autoCreateTime"`
}
