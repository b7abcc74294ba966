package menu

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ninekrua/pos-backend/pkg/db/models"
	pkgerrors "github.com/ninekrua/pos-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines menu management operations.
type Service interface {
	CreateCategory(ctx context.Context, name string, position int) (*models.MenuCategory, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, name *string, position *int) (*models.MenuCategory, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	ListCategories(ctx context.Context) ([]models.MenuCategory, error)
	CreateItem(ctx context.Context, input CreateItemInput) (*models.MenuItem, error)
	UpdateItem(ctx context.Context, id uuid.UUID, input UpdateItemInput) (*models.MenuItem, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error
	GetItem(ctx context.Context, id uuid.UUID) (*models.MenuItem, error)
	ListItems(ctx context.Context, categoryID *uuid.UUID) ([]models.MenuItem, error)
	SetRecipe(ctx context.Context, itemID uuid.UUID, entries []RecipeEntryInput) (*models.MenuItem, error)
	RecomputeForIngredients(ctx context.Context, tx *gorm.DB, ingredientIDs []uuid.UUID) error
}

type service struct {
	repo Repository
	tx   txRunner
}

// CreateItemInput captures a new sellable dish.
type CreateItemInput struct {
	CategoryID        uuid.UUID
	Name              string
	Description       *string
	Price             decimal.Decimal
	Position          int
	ImagePath         *string
	AllowSpecial      bool
	SpecialPriceDelta decimal.Decimal
}

// UpdateItemInput carries the editable menu item fields.
type UpdateItemInput struct {
	CategoryID        *uuid.UUID
	Name              *string
	Description       *string
	Price             *decimal.Decimal
	Position          *int
	ImagePath         *string
	AllowSpecial      *bool
	SpecialPriceDelta *decimal.Decimal
}

// RecipeEntryInput is one ingredient requirement per unit sold.
type RecipeEntryInput struct {
	IngredientID uuid.UUID
	Quantity     decimal.Decimal
}

// NewService wires a menu service with the provided repository.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("menu repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) CreateCategory(ctx context.Context, name string, position int) (*models.MenuCategory, error) {
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
	}
	category := &models.MenuCategory{Name: name, Position: position}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *service) UpdateCategory(ctx context.Context, id uuid.UUID, name *string, position *int) (*models.MenuCategory, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category id is required")
	}
	updates := map[string]any{}
	if name != nil {
		if *name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name cannot be empty")
		}
		updates["name"] = *name
	}
	if position != nil {
		updates["position"] = *position
	}
	if len(updates) > 0 {
		if err := s.repo.UpdateCategory(ctx, id, updates); err != nil {
			return nil, err
		}
	}
	category, err := s.repo.FindCategory(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "category not found")
	}
	return category, nil
}

func (s *service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "category id is required")
	}
	return s.repo.DeleteCategory(ctx, id)
}

func (s *service) ListCategories(ctx context.Context) ([]models.MenuCategory, error) {
	return s.repo.ListCategories(ctx)
}

func (s *service) CreateItem(ctx context.Context, input CreateItemInput) (*models.MenuItem, error) {
	if input.CategoryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category id is required")
	}
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item price cannot be negative")
	}

	item := &models.MenuItem{
		CategoryID:        input.CategoryID,
		Name:              input.Name,
		Description:       input.Description,
		Price:             input.Price,
		IsAvailable:       true,
		Position:          input.Position,
		ImagePath:         input.ImagePath,
		AllowSpecial:      input.AllowSpecial,
		SpecialPriceDelta: input.SpecialPriceDelta,
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) UpdateItem(ctx context.Context, id uuid.UUID, input UpdateItemInput) (*models.MenuItem, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	updates := map[string]any{}
	if input.CategoryID != nil {
		updates["category_id"] = *input.CategoryID
	}
	if input.Name != nil {
		if *input.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name cannot be empty")
		}
		updates["name"] = *input.Name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item price cannot be negative")
		}
		updates["price"] = *input.Price
	}
	if input.Position != nil {
		updates["position"] = *input.Position
	}
	if input.ImagePath != nil {
		updates["image_path"] = *input.ImagePath
	}
	if input.AllowSpecial != nil {
		updates["allow_special"] = *input.AllowSpecial
	}
	if input.SpecialPriceDelta != nil {
		updates["special_price_delta"] = *input.SpecialPriceDelta
	}
	if len(updates) > 0 {
		if err := s.repo.UpdateItem(ctx, id, updates); err != nil {
			return nil, err
		}
	}
	return s.GetItem(ctx, id)
}

func (s *service) DeleteItem(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	return s.repo.DeleteItem(ctx, id)
}

func (s *service) GetItem(ctx context.Context, id uuid.UUID) (*models.MenuItem, error) {
	item, err := s.repo.FindItemWithRecipe(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "menu item not found")
	}
	return item, nil
}

func (s *service) ListItems(ctx context.Context, categoryID *uuid.UUID) ([]models.MenuItem, error) {
	return s.repo.ListItems(ctx, categoryID)
}

// SetRecipe replaces the item's recipe atomically and recomputes availability
// for the item plus everything that shares its old and new ingredients.
func (s *service) SetRecipe(ctx context.Context, itemID uuid.UUID, entries []RecipeEntryInput) (*models.MenuItem, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}

	seen := map[uuid.UUID]bool{}
	rows := make([]models.MenuItemIngredient, 0, len(entries))
	touched := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		if entry.IngredientID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipe ingredient id is required")
		}
		if seen[entry.IngredientID] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate recipe ingredient")
		}
		if !entry.Quantity.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipe quantity must be positive")
		}
		seen[entry.IngredientID] = true
		touched = append(touched, entry.IngredientID)
		rows = append(rows, models.MenuItemIngredient{
			MenuItemID:   itemID,
			IngredientID: entry.IngredientID,
			Quantity:     entry.Quantity,
		})
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindItem(ctx, itemID); err != nil {
			return notFoundOr(err, "menu item not found")
		}

		// Old ingredients matter too: dropping one from the recipe can make
		// the item sellable again.
		old, err := repo.ListRecipe(ctx, itemID)
		if err != nil {
			return err
		}
		for _, entry := range old {
			if !seen[entry.IngredientID] {
				touched = append(touched, entry.IngredientID)
			}
		}

		if err := repo.ReplaceRecipe(ctx, itemID, rows); err != nil {
			return err
		}

		if err := RecomputeForIngredients(ctx, tx, touched); err != nil {
			return err
		}
		// Items with an emptied recipe are no longer in any ripple set.
		return RecomputeAvailability(ctx, tx, []uuid.UUID{itemID})
	})
	if err != nil {
		return nil, err
	}
	return s.GetItem(ctx, itemID)
}

func (s *service) RecomputeForIngredients(ctx context.Context, tx *gorm.DB, ingredientIDs []uuid.UUID) error {
	return RecomputeForIngredients(ctx, tx, ingredientIDs)
}

func notFoundOr(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, message)
	}
	return err
}
