package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MenuItem is a sellable dish. IsAvailable is derived from the recipe and
// current ingredient balances and cached here by the availability calculator.
type MenuItem struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	CategoryID        uuid.UUID            `gorm:"column:category_id;type:uuid;not null;index"`
	Name              string               `gorm:"column:name;type:text;not null"`
	Description       *string              `gorm:"column:description;type:text"`
	Price             decimal.Decimal      `gorm:"column:price;type:numeric(10,2);not null"`
	IsAvailable       bool                 `gorm:"column:is_available;not null"`
	Position          int                  `gorm:"column:position;not null;default:0"`
	ImagePath         *string              `gorm:"column:image_path;type:text"`
	AllowSpecial      bool                 `gorm:"column:allow_special;not null"`
	SpecialPriceDelta decimal.Decimal      `gorm:"column:special_price_delta;type:numeric(10,2);not null;default:0"`
	Recipe            []MenuItemIngredient `gorm:"foreignKey:MenuItemID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// MenuItemIngredient is the recipe edge: quantity is per one unit of the menu
// item and scales linearly with the ordered quantity.
type MenuItemIngredient struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	MenuItemID   uuid.UUID       `gorm:"column:menu_item_id;type:uuid;not null;uniqueIndex:ux_menu_item_ingredient"`
	IngredientID uuid.UUID       `gorm:"column:ingredient_id;type:uuid;not null;uniqueIndex:ux_menu_item_ingredient"`
	Quantity     decimal.Decimal `gorm:"column:quantity;type:numeric(10,2);not null;default:0"`
	Ingredient   *Ingredient     `gorm:"foreignKey:IngredientID"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}
