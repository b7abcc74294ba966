package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ninekrua/pos-backend/pkg/db/models"
	"github.com/ninekrua/pos-backend/pkg/enums"
	pkgerrors "github.com/ninekrua/pos-backend/pkg/errors"
)

// ApplyMovement appends a ledger row and shifts the ingredient's cached
// balance by the same delta inside the caller's transaction. Ledger rows are
// never edited afterward; corrections are new movements.
func ApplyMovement(ctx context.Context, tx *gorm.DB, ingredientID uuid.UUID, change decimal.Decimal, movementType enums.StockMovementType, note *string) (*models.StockMovement, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if ingredientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ingredient id is required")
	}
	if !movementType.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid movement type %q", movementType)
	}
	if change.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "movement change cannot be zero")
	}

	movement := models.StockMovement{
		IngredientID: ingredientID,
		Change:       change,
		Type:         movementType,
		Note:         note,
	}
	if err := tx.WithContext(ctx).Create(&movement).Error; err != nil {
		return nil, err
	}

	result := tx.WithContext(ctx).
		Model(&models.Ingredient{}).
		Where("id = ?", ingredientID).
		Update("quantity_on_hand", gorm.Expr("quantity_on_hand + ?", change))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ingredient not found")
	}

	return &movement, nil
}

// LockIngredients loads the requested ingredient rows under FOR UPDATE locks,
// ordered by id so concurrent reservations acquire them in the same order.
func LockIngredients(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]models.Ingredient, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var ingredients []models.Ingredient
	query := tx.WithContext(ctx).
		Where("id IN ?", ids).
		Order("id ASC")
	if tx.Dialector.Name() != "sqlite" {
		query = query.Clauses(forUpdateClause())
	}
	if err := query.Find(&ingredients).Error; err != nil {
		return nil, err
	}
	return ingredients, nil
}
