package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ninekrua/pos-backend/pkg/db/models"
	"github.com/ninekrua/pos-backend/pkg/enums"
	pkgerrors "github.com/ninekrua/pos-backend/pkg/errors"
	"github.com/ninekrua/pos-backend/pkg/outbox"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeRecomputer struct {
	calls [][]uuid.UUID
}

func (f *fakeRecomputer) RecomputeForIngredients(_ context.Context, _ *gorm.DB, ids []uuid.UUID) error {
	f.calls = append(f.calls, ids)
	return nil
}

func newTestService(t *testing.T) (Service, *gorm.DB, *fakeOutbox, *fakeRecomputer) {
	t.Helper()
	db := newTestDB(t)
	out := &fakeOutbox{}
	recomputer := &fakeRecomputer{}
	svc, err := NewService(NewRepository(db), testTxRunner{db: db}, out, recomputer)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db, out, recomputer
}

func TestCreateIngredientRecordsInitialRestock(t *testing.T) {
	t.Parallel()

	svc, db, _, _ := newTestService(t)

	ingredient, err := svc.CreateIngredient(context.Background(), CreateIngredientInput{
		Name:            "jasmine rice",
		Unit:            "g",
		InitialQuantity: decimal.RequireFromString("500"),
		ReorderLevel:    decimal.RequireFromString("100"),
	})
	if err != nil {
		t.Fatalf("create ingredient: %v", err)
	}

	var movements []models.StockMovement
	if err := db.Where("ingredient_id = ?", ingredient.ID).Find(&movements).Error; err != nil {
		t.Fatalf("load movements: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("expected 1 initial movement, got %d", len(movements))
	}
	if movements[0].Type != enums.StockMovementTypeRestock {
		t.Fatalf("expected restock movement, got %s", movements[0].Type)
	}

	var loaded models.Ingredient
	if err := db.First(&loaded, "id = ?", ingredient.ID).Error; err != nil {
		t.Fatalf("load ingredient: %v", err)
	}
	if !loaded.QuantityOnHand.Equal(decimal.RequireFromString("500")) {
		t.Fatalf("expected balance 500, got %s", loaded.QuantityOnHand)
	}
}

func TestCreateIngredientValidation(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newTestService(t)

	_, err := svc.CreateIngredient(context.Background(), CreateIngredientInput{Unit: "g"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRestockEmitsEventsAndRecomputes(t *testing.T) {
	t.Parallel()

	svc, db, out, recomputer := newTestService(t)
	ingredient := seedIngredient(t, db, "lime", "2")
	ingredient.ReorderLevel = decimal.RequireFromString("10")
	if err := db.Save(ingredient).Error; err != nil {
		t.Fatalf("update reorder level: %v", err)
	}

	updated, err := svc.Restock(context.Background(), ingredient.ID, decimal.RequireFromString("5"), nil)
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if !updated.QuantityOnHand.Equal(decimal.RequireFromString("7")) {
		t.Fatalf("expected balance 7, got %s", updated.QuantityOnHand)
	}

	var types []enums.OutboxEventType
	for _, event := range out.events {
		types = append(types, event.EventType)
	}
	// Balance 7 is still at/below the reorder level 10, so both events fire.
	if len(types) != 2 || types[0] != enums.EventStockRestocked || types[1] != enums.EventIngredientLow {
		t.Fatalf("unexpected events %v", types)
	}
	if len(recomputer.calls) != 1 {
		t.Fatalf("expected 1 availability recompute, got %d", len(recomputer.calls))
	}
}

func TestRestockRejectsNonPositiveQuantity(t *testing.T) {
	t.Parallel()

	svc, db, _, _ := newTestService(t)
	ingredient := seedIngredient(t, db, "basil", "1")

	_, err := svc.Restock(context.Background(), ingredient.ID, decimal.Zero, nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAdjustRejectsDriveBelowZero(t *testing.T) {
	t.Parallel()

	svc, db, _, _ := newTestService(t)
	ingredient := seedIngredient(t, db, "egg", "3")

	_, err := svc.Adjust(context.Background(), ingredient.ID, decimal.RequireFromString("-5"), nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}

	// Rejection must leave the ledger untouched.
	var count int64
	if err := db.Model(&models.StockMovement{}).Where("ingredient_id = ?", ingredient.ID).Count(&count).Error; err != nil {
		t.Fatalf("count movements: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no movements, got %d", count)
	}
}

func TestSetActiveRecomputesAvailability(t *testing.T) {
	t.Parallel()

	svc, db, _, recomputer := newTestService(t)
	ingredient := seedIngredient(t, db, "chili", "9")

	updated, err := svc.SetActive(context.Background(), ingredient.ID, false)
	if err != nil {
		t.Fatalf("set active: %v", err)
	}
	if updated.IsActive {
		t.Fatal("expected ingredient to be inactive")
	}
	if len(recomputer.calls) != 1 {
		t.Fatalf("expected 1 recompute call, got %d", len(recomputer.calls))
	}
}

func TestReconcileRepairsDriftedCache(t *testing.T) {
	t.Parallel()

	svc, db, _, _ := newTestService(t)
	ingredient := seedIngredient(t, db, "flour", "0")

	if _, err := svc.Restock(context.Background(), ingredient.ID, decimal.RequireFromString("20"), nil); err != nil {
		t.Fatalf("restock: %v", err)
	}

	// Corrupt the cached balance behind the ledger's back.
	if err := db.Model(&models.Ingredient{}).Where("id = ?", ingredient.ID).
		Update("quantity_on_hand", decimal.RequireFromString("99")).Error; err != nil {
		t.Fatalf("corrupt cache: %v", err)
	}

	result, err := svc.Reconcile(context.Background(), ingredient.ID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !result.Corrected {
		t.Fatal("expected reconcile to correct the drift")
	}
	if !result.LedgerBalance.Equal(decimal.RequireFromString("20")) {
		t.Fatalf("expected ledger balance 20, got %s", result.LedgerBalance)
	}

	var loaded models.Ingredient
	if err := db.First(&loaded, "id = ?", ingredient.ID).Error; err != nil {
		t.Fatalf("load ingredient: %v", err)
	}
	if !loaded.QuantityOnHand.Equal(decimal.RequireFromString("20")) {
		t.Fatalf("expected cache rewritten to 20, got %s", loaded.QuantityOnHand)
	}
}
