package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ninekrua/pos-backend/pkg/enums"
)

// Order is the dine-in order aggregate. Items and payments are exclusively
// owned and cascade with the order while it is unpaid.
type Order struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	TableID        uuid.UUID         `gorm:"column:table_id;type:uuid;not null;index"`
	Status         enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	Note           *string           `gorm:"column:note;type:text"`
	DiscountAmount decimal.Decimal   `gorm:"column:discount_amount;type:numeric(10,2);not null;default:0"`
	ServiceCharge  decimal.Decimal   `gorm:"column:service_charge;type:numeric(10,2);not null;default:0"`
	TaxRate        decimal.Decimal   `gorm:"column:tax_rate;type:numeric(5,2);not null;default:0"`
	PaidAt         *time.Time        `gorm:"column:paid_at"`
	Table          *DiningTable      `gorm:"foreignKey:TableID"`
	Items          []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payments       []Payment         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Invoice        *Invoice          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is one line of an order. UnitPrice is snapshotted at order time so
// later menu price edits never change a placed order.
type OrderItem struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID    uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	MenuItemID uuid.UUID       `gorm:"column:menu_item_id;type:uuid;not null"`
	Name       string          `gorm:"column:name;type:text;not null"`
	Quantity   int             `gorm:"column:quantity;not null;default:1"`
	Note       *string         `gorm:"column:note;type:text"`
	UnitPrice  decimal.Decimal `gorm:"column:unit_price;type:numeric(10,2);not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}
