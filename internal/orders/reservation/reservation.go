package reservation

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ninekrua/pos-backend/internal/inventory"
	"github.com/ninekrua/pos-backend/internal/menu"
	"github.com/ninekrua/pos-backend/pkg/db/models"
	"github.com/ninekrua/pos-backend/pkg/enums"
	pkgerrors "github.com/ninekrua/pos-backend/pkg/errors"
)

// LineRequest is one (menu item, quantity) pair from an order submission.
type LineRequest struct {
	MenuItemID uuid.UUID
	Quantity   int
}

// Requirement is the accumulated stock an order needs from one ingredient.
type Requirement struct {
	IngredientID uuid.UUID
	Required     decimal.Decimal
}

// ShortageDetail names the offending ingredient so staff can act on it.
type ShortageDetail struct {
	IngredientID uuid.UUID `json:"ingredient_id"`
	Ingredient   string    `json:"ingredient"`
	Available    string    `json:"available"`
	Required     string    `json:"required"`
	Unit         string    `json:"unit"`
}

// RequirementTotals expands every line's recipe, multiplies per-unit
// quantities by the ordered amount, and sums per ingredient across the whole
// order. Ingredients shared by two lines appear once with a combined total.
func RequirementTotals(ctx context.Context, tx *gorm.DB, lines []LineRequest) ([]Requirement, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}

	totals := map[uuid.UUID]decimal.Decimal{}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
		var entries []models.MenuItemIngredient
		if err := tx.WithContext(ctx).
			Where("menu_item_id = ?", line.MenuItemID).
			Find(&entries).Error; err != nil {
			return nil, err
		}
		qty := decimal.NewFromInt(int64(line.Quantity))
		for _, entry := range entries {
			totals[entry.IngredientID] = totals[entry.IngredientID].Add(entry.Quantity.Mul(qty))
		}
	}

	requirements := make([]Requirement, 0, len(totals))
	for id, required := range totals {
		requirements = append(requirements, Requirement{IngredientID: id, Required: required})
	}
	// Stable id order keeps lock acquisition deterministic across orders.
	sort.Slice(requirements, func(i, j int) bool {
		return bytes.Compare(requirements[i].IngredientID[:], requirements[j].IngredientID[:]) < 0
	})
	return requirements, nil
}

// Reserve validates and commits the stock usage implied by one order, all or
// nothing. Touched ingredient rows are locked for the duration; any inactive
// ingredient or shortage rejects the entire order with no ledger trace.
func Reserve(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, lines []LineRequest) ([]Requirement, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	requirements, err := RequirementTotals(ctx, tx, lines)
	if err != nil {
		return nil, err
	}
	if len(requirements) == 0 {
		return nil, nil
	}

	locked, err := lockRequirements(ctx, tx, requirements)
	if err != nil {
		return nil, err
	}

	// Validate phase: every ingredient must pass before anything is written.
	for _, requirement := range requirements {
		ingredient, ok := locked[requirement.IngredientID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "recipe ingredient no longer exists")
		}
		if !ingredient.IsActive {
			return nil, pkgerrors.Newf(pkgerrors.CodeInactiveIngredient,
				"ingredient %s is inactive", ingredient.Name).
				WithDetails(shortage(ingredient, requirement.Required))
		}
		if ingredient.QuantityOnHand.LessThan(requirement.Required) {
			return nil, pkgerrors.Newf(pkgerrors.CodeInsufficientStock,
				"insufficient %s: available %s, required %s",
				ingredient.Name, ingredient.QuantityOnHand.String(), requirement.Required.String()).
				WithDetails(shortage(ingredient, requirement.Required))
		}
	}

	// Commit phase: one negative usage movement per ingredient, tagged with
	// the order so the ledger reads as an audit trail.
	note := fmt.Sprintf("order %s", orderID)
	for _, requirement := range requirements {
		if _, err := inventory.ApplyMovement(ctx, tx, requirement.IngredientID, requirement.Required.Neg(), enums.StockMovementTypeUsage, &note); err != nil {
			return nil, err
		}
	}

	if err := menu.RecomputeForIngredients(ctx, tx, ingredientIDs(requirements)); err != nil {
		return nil, err
	}
	return requirements, nil
}

// Release reverses a prior reservation by recomputing the same per-ingredient
// totals from the order's actual items and crediting them back as adjustment
// movements. Used on pre-payment cancellation only.
func Release(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, lines []LineRequest) ([]Requirement, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	requirements, err := RequirementTotals(ctx, tx, lines)
	if err != nil {
		return nil, err
	}
	if len(requirements) == 0 {
		return nil, nil
	}

	if _, err := lockRequirements(ctx, tx, requirements); err != nil {
		return nil, err
	}

	note := fmt.Sprintf("release order %s", orderID)
	for _, requirement := range requirements {
		if _, err := inventory.ApplyMovement(ctx, tx, requirement.IngredientID, requirement.Required, enums.StockMovementTypeAdjustment, &note); err != nil {
			return nil, err
		}
	}

	if err := menu.RecomputeForIngredients(ctx, tx, ingredientIDs(requirements)); err != nil {
		return nil, err
	}
	return requirements, nil
}

func lockRequirements(ctx context.Context, tx *gorm.DB, requirements []Requirement) (map[uuid.UUID]models.Ingredient, error) {
	ingredients, err := inventory.LockIngredients(ctx, tx, ingredientIDs(requirements))
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Ingredient, len(ingredients))
	for _, ingredient := range ingredients {
		byID[ingredient.ID] = ingredient
	}
	return byID, nil
}

func ingredientIDs(requirements []Requirement) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(requirements))
	for _, requirement := range requirements {
		ids = append(ids, requirement.IngredientID)
	}
	return ids
}

func shortage(ingredient models.Ingredient, required decimal.Decimal) ShortageDetail {
	return ShortageDetail{
		IngredientID: ingredient.ID,
		Ingredient:   ingredient.Name,
		Available:    ingredient.QuantityOnHand.String(),
		Required:     required.String(),
		Unit:         ingredient.Unit,
	}
}
