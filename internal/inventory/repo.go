package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ninekrua/pos-backend/pkg/db/models"
)

// Repository manages persistence for ingredients and their ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateIngredient(ctx context.Context, ingredient *models.Ingredient) error
	UpdateIngredient(ctx context.Context, id uuid.UUID, updates map[string]any) error
	FindIngredient(ctx context.Context, id uuid.UUID) (*models.Ingredient, error)
	FindIngredientByName(ctx context.Context, name string) (*models.Ingredient, error)
	ListIngredients(ctx context.Context, includeInactive bool) ([]models.Ingredient, error)
	ListLowStock(ctx context.Context) ([]models.Ingredient, error)
	ListMovements(ctx context.Context, ingredientID uuid.UUID) ([]models.StockMovement, error)
	SumMovements(ctx context.Context, ingredientID uuid.UUID) (string, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateIngredient(ctx context.Context, ingredient *models.Ingredient) error {
	return r.db.WithContext(ctx).Create(ingredient).Error
}

func (r *repository) UpdateIngredient(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Ingredient{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) FindIngredient(ctx context.Context, id uuid.UUID) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := r.db.WithContext(ctx).First(&ingredient, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ingredient, nil
}

func (r *repository) FindIngredientByName(ctx context.Context, name string) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := r.db.WithContext(ctx).First(&ingredient, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &ingredient, nil
}

func (r *repository) ListIngredients(ctx context.Context, includeInactive bool) ([]models.Ingredient, error) {
	query := r.db.WithContext(ctx).Order("name ASC")
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	var ingredients []models.Ingredient
	if err := query.Find(&ingredients).Error; err != nil {
		return nil, err
	}
	return ingredients, nil
}

func (r *repository) ListLowStock(ctx context.Context) ([]models.Ingredient, error) {
	var ingredients []models.Ingredient
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("quantity_on_hand <= reorder_level").
		Order("name ASC").
		Find(&ingredients).Error; err != nil {
		return nil, err
	}
	return ingredients, nil
}

func (r *repository) ListMovements(ctx context.Context, ingredientID uuid.UUID) ([]models.StockMovement, error) {
	var movements []models.StockMovement
	if err := r.db.WithContext(ctx).
		Where("ingredient_id = ?", ingredientID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

func (r *repository) SumMovements(ctx context.Context, ingredientID uuid.UUID) (string, error) {
	var total *string
	if err := r.db.WithContext(ctx).
		Model(&models.StockMovement{}).
		Where("ingredient_id = ?", ingredientID).
		Select("CAST(COALESCE(SUM(change), 0) AS TEXT)").
		Scan(&total).Error; err != nil {
		return "0", err
	}
	if total == nil {
		return "0", nil
	}
	return *total, nil
}
