package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ninekrua/pos-backend/pkg/db/models"
	"github.com/ninekrua/pos-backend/pkg/enums"
	pkgerrors "github.com/ninekrua/pos-backend/pkg/errors"
	"github.com/ninekrua/pos-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// AvailabilityRecomputer refreshes menu item sellability after a ledger
// change. Implemented by the menu service.
type AvailabilityRecomputer interface {
	RecomputeForIngredients(ctx context.Context, tx *gorm.DB, ingredientIDs []uuid.UUID) error
}

// Service defines ingredient and stock ledger operations.
type Service interface {
	CreateIngredient(ctx context.Context, input CreateIngredientInput) (*models.Ingredient, error)
	UpdateIngredient(ctx context.Context, id uuid.UUID, input UpdateIngredientInput) (*models.Ingredient, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Ingredient, error)
	GetIngredient(ctx context.Context, id uuid.UUID) (*models.Ingredient, error)
	ListIngredients(ctx context.Context, includeInactive bool) ([]models.Ingredient, error)
	ListLowStock(ctx context.Context) ([]models.Ingredient, error)
	Restock(ctx context.Context, id uuid.UUID, quantity decimal.Decimal, note *string) (*models.Ingredient, error)
	Adjust(ctx context.Context, id uuid.UUID, change decimal.Decimal, note *string) (*models.Ingredient, error)
	ListMovements(ctx context.Context, id uuid.UUID) ([]models.StockMovement, error)
	Reconcile(ctx context.Context, id uuid.UUID) (*ReconcileResult, error)
}

type service struct {
	repo         Repository
	tx           txRunner
	outbox       outboxPublisher
	availability AvailabilityRecomputer
}

// CreateIngredientInput captures a new stocked ingredient. A positive initial
// quantity is recorded as a restock movement so the ledger stays authoritative
// from the first row.
type CreateIngredientInput struct {
	Name            string
	Unit            string
	InitialQuantity decimal.Decimal
	ReorderLevel    decimal.Decimal
}

// UpdateIngredientInput carries the editable ingredient fields.
type UpdateIngredientInput struct {
	Name         *string
	Unit         *string
	ReorderLevel *decimal.Decimal
}

// ReconcileResult reports a ledger-vs-cache comparison for one ingredient.
type ReconcileResult struct {
	IngredientID  uuid.UUID       `json:"ingredient_id"`
	CachedBalance decimal.Decimal `json:"cached_balance"`
	LedgerBalance decimal.Decimal `json:"ledger_balance"`
	Corrected     bool            `json:"corrected"`
}

// LowStockEvent is the outbox payload emitted when an ingredient drops to or
// below its reorder level.
type LowStockEvent struct {
	IngredientID uuid.UUID       `json:"ingredient_id"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	Balance      decimal.Decimal `json:"balance"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
}

// StockRestockedEvent is the outbox payload for restock movements.
type StockRestockedEvent struct {
	IngredientID uuid.UUID       `json:"ingredient_id"`
	Name         string          `json:"name"`
	Quantity     decimal.Decimal `json:"quantity"`
	Balance      decimal.Decimal `json:"balance"`
}

// NewService wires an inventory service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, availability AvailabilityRecomputer) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if availability == nil {
		return nil, fmt.Errorf("availability recomputer required")
	}
	return &service{
		repo:         repo,
		tx:           tx,
		outbox:       outboxSvc,
		availability: availability,
	}, nil
}

func (s *service) CreateIngredient(ctx context.Context, input CreateIngredientInput) (*models.Ingredient, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ingredient name is required")
	}
	if input.Unit == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ingredient unit is required")
	}
	if input.InitialQuantity.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "initial quantity cannot be negative")
	}
	if input.ReorderLevel.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reorder level cannot be negative")
	}

	ingredient := &models.Ingredient{
		Name:         input.Name,
		Unit:         input.Unit,
		ReorderLevel: input.ReorderLevel,
		IsActive:     true,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateIngredient(ctx, ingredient); err != nil {
			return err
		}
		if input.InitialQuantity.IsPositive() {
			note := "initial stock"
			if _, err := ApplyMovement(ctx, tx, ingredient.ID, input.InitialQuantity, enums.StockMovementTypeRestock, &note); err != nil {
				return err
			}
			ingredient.QuantityOnHand = input.InitialQuantity
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ingredient, nil
}

func (s *service) UpdateIngredient(ctx context.Context, id uuid.UUID, input UpdateIngredientInput) (*models.Ingredient, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ingredient id is required")
	}

	updates := map[string]any{}
	if input.Name != nil {
		if *input.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "ingredient name cannot be empty")
		}
		updates["name"] = *input.Name
	}
	if input.Unit != nil {
		if *input.Unit == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "ingredient unit cannot be empty")
		}
		updates["unit"] = *input.Unit
	}
	if input.ReorderLevel != nil {
		if input.ReorderLevel.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "reorder level cannot be negative")
		}
		updates["reorder_level"] = *input.ReorderLevel
	}
	if len(updates) > 0 {
		if err := s.repo.UpdateIngredient(ctx, id, updates); err != nil {
			return nil, err
		}
	}
	return s.GetIngredient(ctx, id)
}

// SetActive toggles the ingredient and recomputes availability for every menu
// item whose recipe references it.
func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Ingredient, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ingredient id is required")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpdateIngredient(ctx, id, map[string]any{"is_active": active}); err != nil {
			return err
		}
		return s.availability.RecomputeForIngredients(ctx, tx, []uuid.UUID{id})
	})
	if err != nil {
		return nil, err
	}
	return s.GetIngredient(ctx, id)
}

func (s *service) GetIngredient(ctx context.Context, id uuid.UUID) (*models.Ingredient, error) {
	ingredient, err := s.repo.FindIngredient(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ingredient not found")
		}
		return nil, err
	}
	return ingredient, nil
}

func (s *service) ListIngredients(ctx context.Context, includeInactive bool) ([]models.Ingredient, error) {
	return s.repo.ListIngredients(ctx, includeInactive)
}

func (s *service) ListLowStock(ctx context.Context) ([]models.Ingredient, error) {
	return s.repo.ListLowStock(ctx)
}

func (s *service) Restock(ctx context.Context, id uuid.UUID, quantity decimal.Decimal, note *string) (*models.Ingredient, error) {
	if !quantity.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restock quantity must be positive")
	}
	return s.applyManualMovement(ctx, id, quantity, enums.StockMovementTypeRestock, note)
}

func (s *service) Adjust(ctx context.Context, id uuid.UUID, change decimal.Decimal, note *string) (*models.Ingredient, error) {
	if change.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment change cannot be zero")
	}
	return s.applyManualMovement(ctx, id, change, enums.StockMovementTypeAdjustment, note)
}

func (s *service) applyManualMovement(ctx context.Context, id uuid.UUID, change decimal.Decimal, movementType enums.StockMovementType, note *string) (*models.Ingredient, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ingredient id is required")
	}

	var updated *models.Ingredient
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		locked, err := LockIngredients(ctx, tx, []uuid.UUID{id})
		if err != nil {
			return err
		}
		if len(locked) == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "ingredient not found")
		}
		before := locked[0]

		if change.IsNegative() && before.QuantityOnHand.Add(change).IsNegative() {
			return pkgerrors.Newf(pkgerrors.CodeInsufficientStock,
				"adjustment would drive %s below zero (available %s, change %s)",
				before.Name, before.QuantityOnHand.String(), change.String())
		}

		if _, err := ApplyMovement(ctx, tx, id, change, movementType, note); err != nil {
			return err
		}

		after, err := s.repo.WithTx(tx).FindIngredient(ctx, id)
		if err != nil {
			return err
		}
		updated = after

		if movementType == enums.StockMovementTypeRestock {
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventStockRestocked,
				AggregateType: enums.AggregateIngredient,
				AggregateID:   id,
				Version:       1,
				Data: StockRestockedEvent{
					IngredientID: id,
					Name:         after.Name,
					Quantity:     change,
					Balance:      after.QuantityOnHand,
				},
			}); err != nil {
				return err
			}
		}

		if err := s.emitLowStockLocked(ctx, tx, []models.Ingredient{*after}); err != nil {
			return err
		}

		return s.availability.RecomputeForIngredients(ctx, tx, []uuid.UUID{id})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) ListMovements(ctx context.Context, id uuid.UUID) ([]models.StockMovement, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ingredient id is required")
	}
	return s.repo.ListMovements(ctx, id)
}

// Reconcile compares the cached balance against the ledger sum and rewrites
// the cache when they diverge. The ledger wins.
func (s *service) Reconcile(ctx context.Context, id uuid.UUID) (*ReconcileResult, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ingredient id is required")
	}

	var result *ReconcileResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		locked, err := LockIngredients(ctx, tx, []uuid.UUID{id})
		if err != nil {
			return err
		}
		if len(locked) == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "ingredient not found")
		}
		ingredient := locked[0]

		raw, err := s.repo.WithTx(tx).SumMovements(ctx, id)
		if err != nil {
			return err
		}
		ledgerBalance, err := decimal.NewFromString(raw)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parsing ledger sum")
		}

		result = &ReconcileResult{
			IngredientID:  id,
			CachedBalance: ingredient.QuantityOnHand,
			LedgerBalance: ledgerBalance,
		}
		if ingredient.QuantityOnHand.Equal(ledgerBalance) {
			return nil
		}

		result.Corrected = true
		if err := s.repo.WithTx(tx).UpdateIngredient(ctx, id, map[string]any{"quantity_on_hand": ledgerBalance}); err != nil {
			return err
		}
		return s.availability.RecomputeForIngredients(ctx, tx, []uuid.UUID{id})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// EmitLowStock publishes low-stock events for any of the given ingredients at
// or below their reorder level. Callers hold the surrounding transaction.
func EmitLowStock(ctx context.Context, tx *gorm.DB, outboxSvc outboxPublisher, ingredients []models.Ingredient) error {
	for _, ingredient := range ingredients {
		if !ingredient.IsActive {
			continue
		}
		if ingredient.QuantityOnHand.GreaterThan(ingredient.ReorderLevel) {
			continue
		}
		if err := outboxSvc.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventIngredientLow,
			AggregateType: enums.AggregateIngredient,
			AggregateID:   ingredient.ID,
			Version:       1,
			Data: LowStockEvent{
				IngredientID: ingredient.ID,
				Name:         ingredient.Name,
				Unit:         ingredient.Unit,
				Balance:      ingredient.QuantityOnHand,
				ReorderLevel: ingredient.ReorderLevel,
			},
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) emitLowStockLocked(ctx context.Context, tx *gorm.DB, ingredients []models.Ingredient) error {
	return EmitLowStock(ctx, tx, s.outbox, ingredients)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
