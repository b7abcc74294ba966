package menu

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ninekrua/pos-backend/pkg/db/models"
)

// Repository manages persistence for categories, menu items, and recipes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateCategory(ctx context.Context, category *models.MenuCategory) error
	UpdateCategory(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	FindCategory(ctx context.Context, id uuid.UUID) (*models.MenuCategory, error)
	ListCategories(ctx context.Context) ([]models.MenuCategory, error)
	CreateItem(ctx context.Context, item *models.MenuItem) error
	UpdateItem(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DeleteItem(ctx context.Context, id uuid.UUID) error
	FindItem(ctx context.Context, id uuid.UUID) (*models.MenuItem, error)
	FindItemWithRecipe(ctx context.Context, id uuid.UUID) (*models.MenuItem, error)
	ListItems(ctx context.Context, categoryID *uuid.UUID) ([]models.MenuItem, error)
	ReplaceRecipe(ctx context.Context, itemID uuid.UUID, entries []models.MenuItemIngredient) error
	ListRecipe(ctx context.Context, itemID uuid.UUID) ([]models.MenuItemIngredient, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a menu repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateCategory(ctx context.Context, category *models.MenuCategory) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *repository) UpdateCategory(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.MenuCategory{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.MenuCategory{}, "id = ?", id).Error
}

func (r *repository) FindCategory(ctx context.Context, id uuid.UUID) (*models.MenuCategory, error) {
	var category models.MenuCategory
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *repository) ListCategories(ctx context.Context) ([]models.MenuCategory, error) {
	var categories []models.MenuCategory
	if err := r.db.WithContext(ctx).
		Order("position ASC").
		Order("name ASC").
		Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *repository) CreateItem(ctx context.Context, item *models.MenuItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) UpdateItem(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.MenuItem{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.MenuItem{}, "id = ?", id).Error
}

func (r *repository) FindItem(ctx context.Context, id uuid.UUID) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindItemWithRecipe(ctx context.Context, id uuid.UUID) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := r.db.WithContext(ctx).
		Preload("Recipe").
		Preload("Recipe.Ingredient").
		First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) ListItems(ctx context.Context, categoryID *uuid.UUID) ([]models.MenuItem, error) {
	query := r.db.WithContext(ctx).
		Preload("Recipe").
		Order("position ASC").
		Order("name ASC")
	if categoryID != nil {
		query = query.Where("category_id = ?", *categoryID)
	}
	var items []models.MenuItem
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ReplaceRecipe(ctx context.Context, itemID uuid.UUID, entries []models.MenuItemIngredient) error {
	db := r.db.WithContext(ctx)
	if err := db.Delete(&models.MenuItemIngredient{}, "menu_item_id = ?", itemID).Error; err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	return db.Create(&entries).Error
}

func (r *repository) ListRecipe(ctx context.Context, itemID uuid.UUID) ([]models.MenuItemIngredient, error) {
	var entries []models.MenuItemIngredient
	if err := r.db.WithContext(ctx).
		Preload("Ingredient").
		Where("menu_item_id = ?", itemID).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
