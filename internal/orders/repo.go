package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ninekrua/pos-backend/pkg/db/models"
	"github.com/ninekrua/pos-backend/pkg/enums"
)

// ListFilter narrows ListOrders. Nil fields match everything.
type ListFilter struct {
	TableID *uuid.UUID
	Status  *enums.OrderStatus
	Limit   int
}

// Repository manages persistence for the order aggregate.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	Find(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter ListFilter) ([]models.Order, error)
	ListOpenByTable(ctx context.Context, tableID uuid.UUID) ([]models.Order, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CreatePayment(ctx context.Context, payment *models.Payment) error
	DeleteAggregate(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit("Items", "Payments", "Invoice", "Table").Create(order).Error
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

// Find loads the full aggregate: items in creation order, payments in receipt
// order, plus the table and any invoice.
func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("paid_at ASC, id ASC")
		}).
		Preload("Table").
		Preload("Invoice").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		Order("created_at DESC")
	if filter.TableID != nil {
		query = query.Where("table_id = ?", *filter.TableID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var list []models.Order
	if err := query.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// ListOpenByTable returns the table's unpaid orders, oldest first, ready for
// a bulk settlement pass.
func (r *repository) ListOpenByTable(ctx context.Context, tableID uuid.UUID) ([]models.Order, error) {
	var list []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		Where("table_id = ? AND status <> ?", tableID, enums.OrderStatusPaid).
		Order("created_at ASC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// DeleteAggregate removes the order and its owned rows. The sqlite test
// driver does not enforce the cascade, so children go explicitly first.
func (r *repository) DeleteAggregate(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Delete(&models.OrderItem{}, "order_id = ?", id).Error; err != nil {
		return err
	}
	if err := db.Delete(&models.Payment{}, "order_id = ?", id).Error; err != nil {
		return err
	}
	return db.Delete(&models.Order{}, "id = ?", id).Error
}
