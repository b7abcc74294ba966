package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ninekrua/pos-backend/pkg/enums"
)

// StockMovement is one immutable ledger entry on an ingredient. Rows are only
// ever appended; corrections are new adjustment movements.
type StockMovement struct {
	ID           uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	IngredientID uuid.UUID               `gorm:"column:ingredient_id;type:uuid;not null;index"`
	Change       decimal.Decimal         `gorm:"column:change;type:numeric(10,2);not null"`
	Type         enums.StockMovementType `gorm:"column:movement_type;type:stock_movement_type;not null"`
	Note         *string                 `gorm:"column:note;type:text"`
	CreatedAt    time.Time               `gorm:"column:created_at;autoCreateTime"`
}
