package models

import (
	"time"

	"github.com/google/uuid"
)

// Setting is a free-form key/value row for store configuration (PromptPay
// target, store hours, display text).
type Setting struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Key       string    `gorm:"column:key;type:text;not null;uniqueIndex"`
	Value     *string   `gorm:"column:value;type:text"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
