package models

import (
	"time"

	"github.com/google/uuid"
)

// MenuCategory groups menu items for display ordering.
type MenuCategory struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Name      string     `gorm:"column:name;type:text;not null;uniqueIndex"`
	Position  int        `gorm:"column:position;not null;default:0"`
	Items     []MenuItem `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
