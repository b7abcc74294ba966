package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ingredient is a stocked raw material. QuantityOnHand is a cached projection
// of the stock movement ledger; the ledger stays authoritative when they
// diverge.
type Ingredient struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	Name           string               `gorm:"column:name;type:text;not null;uniqueIndex"`
	Unit           string               `gorm:"column:unit;type:text;not null"`
	QuantityOnHand decimal.Decimal      `gorm:"column:quantity_on_hand;type:numeric(10,2);not null;default:0"`
	ReorderLevel   decimal.Decimal      `gorm:"column:reorder_level;type:numeric(10,2);not null;default:0"`
	// No default tag: gorm would skip a zero-value bool on insert and let the
	// column default overwrite an explicitly inactive row.
	IsActive       bool                 `gorm:"column:is_active;not null"`
	Movements      []StockMovement      `gorm:"foreignKey:IngredientID;constraint:OnDelete:CASCADE"`
	RecipeLinks    []MenuItemIngredient `gorm:"foreignKey:IngredientID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
