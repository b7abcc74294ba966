package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Primary keys are generated app-side so inserts behave identically on
// Postgres and the sqlite test databases. Explicitly set ids are kept.

func (m *Ingredient) BeforeCreate(*gorm.DB) error         { ensureID(&m.ID); return nil }
func (m *StockMovement) BeforeCreate(*gorm.DB) error      { ensureID(&m.ID); return nil }
func (m *MenuCategory) BeforeCreate(*gorm.DB) error       { ensureID(&m.ID); return nil }
func (m *MenuItem) BeforeCreate(*gorm.DB) error           { ensureID(&m.ID); return nil }
func (m *MenuItemIngredient) BeforeCreate(*gorm.DB) error { ensureID(&m.ID); return nil }
func (m *DiningTable) BeforeCreate(*gorm.DB) error        { ensureID(&m.ID); return nil }
func (m *Order) BeforeCreate(*gorm.DB) error              { ensureID(&m.ID); return nil }
func (m *OrderItem) BeforeCreate(*gorm.DB) error          { ensureID(&m.ID); return nil }
func (m *Payment) BeforeCreate(*gorm.DB) error            { ensureID(&m.ID); return nil }
func (m *Invoice) BeforeCreate(*gorm.DB) error            { ensureID(&m.ID); return nil }
func (m *User) BeforeCreate(*gorm.DB) error               { ensureID(&m.ID); return nil }
func (m *Notification) BeforeCreate(*gorm.DB) error       { ensureID(&m.ID); return nil }
func (m *OutboxEvent) BeforeCreate(*gorm.DB) error        { ensureID(&m.ID); return nil }
func (m *Setting) BeforeCreate(*gorm.DB) error            { ensureID(&m.ID); return nil }

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
