package models

import (
	"time"

	"github.com/google/uuid"
)

// DiningTable is a physical table guests order from. The code is printed on
// the table's QR card; the access token gates guest order placement.
type DiningTable struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name        string    `gorm:"column:name;type:text;not null"`
	Code        string    `gorm:"column:code;type:text;not null;uniqueIndex"`
	AccessToken string    `gorm:"column:access_token;type:text;not null"`
	Orders      []Order   `gorm:"foreignKey:TableID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
