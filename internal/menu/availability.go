package menu

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ninekrua/pos-backend/pkg/db/models"
	pkgerrors "github.com/ninekrua/pos-backend/pkg/errors"
)

// RippleSet returns every menu item whose recipe references any of the given
// ingredients. A shared ingredient going scarce can flip items that were never
// part of the triggering order, so callers must recompute all of them.
func RippleSet(ctx context.Context, tx *gorm.DB, ingredientIDs []uuid.UUID) ([]uuid.UUID, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if len(ingredientIDs) == 0 {
		return nil, nil
	}

	var itemIDs []uuid.UUID
	if err := tx.WithContext(ctx).
		Model(&models.MenuItemIngredient{}).
		Where("ingredient_id IN ?", ingredientIDs).
		Distinct("menu_item_id").
		Pluck("menu_item_id", &itemIDs).Error; err != nil {
		return nil, err
	}
	return itemIDs, nil
}

// RecomputeAvailability re-derives and persists the sellable flag for each
// menu item: sellable iff the recipe is empty, or every recipe ingredient is
// active with balance covering one unit's requirement.
func RecomputeAvailability(ctx context.Context, tx *gorm.DB, menuItemIDs []uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}

	for _, itemID := range menuItemIDs {
		var entries []models.MenuItemIngredient
		if err := tx.WithContext(ctx).
			Preload("Ingredient").
			Where("menu_item_id = ?", itemID).
			Find(&entries).Error; err != nil {
			return err
		}

		available := true
		for _, entry := range entries {
			if entry.Ingredient == nil {
				available = false
				break
			}
			if !entry.Ingredient.IsActive || entry.Ingredient.QuantityOnHand.LessThan(entry.Quantity) {
				available = false
				break
			}
		}

		if err := tx.WithContext(ctx).
			Model(&models.MenuItem{}).
			Where("id = ?", itemID).
			Update("is_available", available).Error; err != nil {
			return err
		}
	}
	return nil
}

// RecomputeForIngredients recomputes availability for the full ripple set of
// the given ingredients.
func RecomputeForIngredients(ctx context.Context, tx *gorm.DB, ingredientIDs []uuid.UUID) error {
	itemIDs, err := RippleSet(ctx, tx, ingredientIDs)
	if err != nil {
		return err
	}
	return RecomputeAvailability(ctx, tx, itemIDs)
}
