package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ninekrua/pos-backend/pkg/enums"
)

// User is a staff identity (admin or kitchen).
type User struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Username     string         `gorm:"column:username;type:text;not null;uniqueIndex"`
	PasswordHash string         `gorm:"column:password_hash;type:text;not null" json:"-"`
	Role         enums.UserRole `gorm:"column:role;type:user_role;not null"`
	IsActive     bool           `gorm:"column:is_active;not null"`
	LastLoginAt  *time.Time     `gorm:"column:last_login_at"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
