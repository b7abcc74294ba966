package tables

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ninekrua/pos-backend/pkg/db/models"
)

// Repository manages persistence for dining tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, table *models.DiningTable) error
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	Find(ctx context.Context, id uuid.UUID) (*models.DiningTable, error)
	FindByCode(ctx context.Context, code string) (*models.DiningTable, error)
	List(ctx context.Context) ([]models.DiningTable, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a table repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, table *models.DiningTable) error {
	return r.db.WithContext(ctx).Create(table).Error
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.DiningTable{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.DiningTable{}, "id = ?", id).Error
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.DiningTable, error) {
	var table models.DiningTable
	if err := r.db.WithContext(ctx).First(&table, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &table, nil
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.DiningTable, error) {
	var table models.DiningTable
	if err := r.db.WithContext(ctx).First(&table, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &table, nil
}

func (r *repository) List(ctx context.Context) ([]models.DiningTable, error) {
	var list []models.DiningTable
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
