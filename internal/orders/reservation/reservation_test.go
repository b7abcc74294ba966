package reservation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ninekrua/pos-backend/pkg/db/models"
	"github.com/ninekrua/pos-backend/pkg/enums"
	pkgerrors "github.com/ninekrua/pos-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:reservation_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Ingredient{},
		&models.StockMovement{},
		&models.MenuCategory{},
		&models.MenuItem{},
		&models.MenuItemIngredient{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fixture struct {
	db    *gorm.DB
	rice  *models.Ingredient
	egg   *models.Ingredient
	fried *models.MenuItem // 100g rice + 2 egg per unit
	plain *models.MenuItem // 100g rice per unit
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := newTestDB(t)

	rice := seedIngredient(t, db, "rice", "500", true)
	egg := seedIngredient(t, db, "egg", "10", true)

	category := &models.MenuCategory{ID: uuid.New(), Name: "mains"}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}

	fried := seedItem(t, db, category.ID, "fried rice")
	seedRecipe(t, db, fried.ID, rice.ID, "100")
	seedRecipe(t, db, fried.ID, egg.ID, "2")

	plain := seedItem(t, db, category.ID, "plain rice")
	seedRecipe(t, db, plain.ID, rice.ID, "100")

	return fixture{db: db, rice: rice, egg: egg, fried: fried, plain: plain}
}

func seedIngredient(t *testing.T, db *gorm.DB, name, onHand string, active bool) *models.Ingredient {
	t.Helper()
	ingredient := &models.Ingredient{
		ID:             uuid.New(),
		Name:           name,
		Unit:           "g",
		QuantityOnHand: decimal.RequireFromString(onHand),
		IsActive:       active,
	}
	if err := db.Create(ingredient).Error; err != nil {
		t.Fatalf("seed ingredient: %v", err)
	}
	return ingredient
}

func seedItem(t *testing.T, db *gorm.DB, categoryID uuid.UUID, name string) *models.MenuItem {
	t.Helper()
	item := &models.MenuItem{
		ID:          uuid.New(),
		CategoryID:  categoryID,
		Name:        name,
		Price:       decimal.RequireFromString("60"),
		IsAvailable: true,
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	return item
}

func seedRecipe(t *testing.T, db *gorm.DB, itemID, ingredientID uuid.UUID, qty string) {
	t.Helper()
	edge := &models.MenuItemIngredient{
		ID:           uuid.New(),
		MenuItemID:   itemID,
		IngredientID: ingredientID,
		Quantity:     decimal.RequireFromString(qty),
	}
	if err := db.Create(edge).Error; err != nil {
		t.Fatalf("seed recipe: %v", err)
	}
}

func balance(t *testing.T, db *gorm.DB, id uuid.UUID) decimal.Decimal {
	t.Helper()
	var ingredient models.Ingredient
	if err := db.First(&ingredient, "id = ?", id).Error; err != nil {
		t.Fatalf("load ingredient: %v", err)
	}
	return ingredient.QuantityOnHand
}

func movementCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&models.StockMovement{}).Count(&count).Error; err != nil {
		t.Fatalf("count movements: %v", err)
	}
	return count
}

func TestRequirementTotalsSumsSharedIngredients(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()

	requirements, err := RequirementTotals(ctx, fx.db, []LineRequest{
		{MenuItemID: fx.fried.ID, Quantity: 2}, // 200 rice, 4 egg
		{MenuItemID: fx.plain.ID, Quantity: 1}, // 100 rice
	})
	if err != nil {
		t.Fatalf("requirement totals: %v", err)
	}
	if len(requirements) != 2 {
		t.Fatalf("expected 2 requirements, got %d", len(requirements))
	}

	byID := map[uuid.UUID]decimal.Decimal{}
	for _, requirement := range requirements {
		byID[requirement.IngredientID] = requirement.Required
	}
	if !byID[fx.rice.ID].Equal(decimal.RequireFromString("300")) {
		t.Fatalf("expected 300 rice, got %s", byID[fx.rice.ID])
	}
	if !byID[fx.egg.ID].Equal(decimal.RequireFromString("4")) {
		t.Fatalf("expected 4 egg, got %s", byID[fx.egg.ID])
	}
}

func TestReserveCommitsUsageMovements(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	orderID := uuid.New()

	err := fx.db.Transaction(func(tx *gorm.DB) error {
		_, terr := Reserve(ctx, tx, orderID, []LineRequest{{MenuItemID: fx.fried.ID, Quantity: 2}})
		return terr
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	if got := balance(t, fx.db, fx.rice.ID); !got.Equal(decimal.RequireFromString("300")) {
		t.Fatalf("expected rice 300, got %s", got)
	}
	if got := balance(t, fx.db, fx.egg.ID); !got.Equal(decimal.RequireFromString("6")) {
		t.Fatalf("expected egg 6, got %s", got)
	}

	var movements []models.StockMovement
	if err := fx.db.Find(&movements).Error; err != nil {
		t.Fatalf("load movements: %v", err)
	}
	if len(movements) != 2 {
		t.Fatalf("expected 2 usage movements, got %d", len(movements))
	}
	for _, movement := range movements {
		if movement.Type != enums.StockMovementTypeUsage {
			t.Fatalf("expected usage movement, got %s", movement.Type)
		}
		if movement.Note == nil || *movement.Note != "order "+orderID.String() {
			t.Fatalf("expected order tag in note, got %v", movement.Note)
		}
		if !movement.Change.IsNegative() {
			t.Fatalf("expected negative change, got %s", movement.Change)
		}
	}
}

func TestReserveInsufficientStockRejectsWholeOrder(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()

	// Top up rice so only eggs run short: 6 fried rice needs 600g rice and
	// 12 eggs against 10. With a single scarce ingredient the reported
	// shortage is deterministic.
	if err := fx.db.Model(&models.Ingredient{}).Where("id = ?", fx.rice.ID).
		Update("quantity_on_hand", decimal.RequireFromString("1000")).Error; err != nil {
		t.Fatalf("top up rice: %v", err)
	}

	err := fx.db.Transaction(func(tx *gorm.DB) error {
		_, terr := Reserve(ctx, tx, uuid.New(), []LineRequest{{MenuItemID: fx.fried.ID, Quantity: 6}})
		return terr
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}
	detail, ok := typed.Details().(ShortageDetail)
	if !ok {
		t.Fatalf("expected shortage detail, got %T", typed.Details())
	}
	if detail.Ingredient != "egg" || detail.Available != "10" || detail.Required != "12" {
		t.Fatalf("unexpected shortage detail %+v", detail)
	}

	// Atomicity: not even the rice movement may exist.
	if count := movementCount(t, fx.db); count != 0 {
		t.Fatalf("expected no movements, got %d", count)
	}
	if got := balance(t, fx.db, fx.rice.ID); !got.Equal(decimal.RequireFromString("1000")) {
		t.Fatalf("expected rice untouched at 1000, got %s", got)
	}
}

func TestReserveInactiveIngredientRejects(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()

	if err := fx.db.Model(&models.Ingredient{}).Where("id = ?", fx.egg.ID).
		Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate egg: %v", err)
	}

	err := fx.db.Transaction(func(tx *gorm.DB) error {
		_, terr := Reserve(ctx, tx, uuid.New(), []LineRequest{{MenuItemID: fx.fried.ID, Quantity: 1}})
		return terr
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInactiveIngredient {
		t.Fatalf("expected inactive ingredient error, got %v", err)
	}
	if count := movementCount(t, fx.db); count != 0 {
		t.Fatalf("expected no movements, got %d", count)
	}
}

func TestReserveThenReleaseRoundTrip(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	orderID := uuid.New()
	lines := []LineRequest{{MenuItemID: fx.fried.ID, Quantity: 3}}

	err := fx.db.Transaction(func(tx *gorm.DB) error {
		_, terr := Reserve(ctx, tx, orderID, lines)
		return terr
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	err = fx.db.Transaction(func(tx *gorm.DB) error {
		_, terr := Release(ctx, tx, orderID, lines)
		return terr
	})
	if err != nil {
		t.Fatalf("release: %v", err)
	}

	// Balances restored exactly, with the full audit trail retained.
	if got := balance(t, fx.db, fx.rice.ID); !got.Equal(decimal.RequireFromString("500")) {
		t.Fatalf("expected rice restored to 500, got %s", got)
	}
	if got := balance(t, fx.db, fx.egg.ID); !got.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("expected egg restored to 10, got %s", got)
	}
	if count := movementCount(t, fx.db); count != 4 {
		t.Fatalf("expected 4 movements (2 usage + 2 adjustment), got %d", count)
	}
}

func TestReserveRippleFlipsSharedItem(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()

	// 4 plain rice leaves 100g (both items still sellable); one more leaves
	// 0g and both must flip, including fried rice which was never ordered.
	err := fx.db.Transaction(func(tx *gorm.DB) error {
		_, terr := Reserve(ctx, tx, uuid.New(), []LineRequest{{MenuItemID: fx.plain.ID, Quantity: 4}})
		if terr != nil {
			return terr
		}
		_, terr = Reserve(ctx, tx, uuid.New(), []LineRequest{{MenuItemID: fx.plain.ID, Quantity: 1}})
		return terr
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	var fried, plain models.MenuItem
	if err := fx.db.First(&fried, "id = ?", fx.fried.ID).Error; err != nil {
		t.Fatalf("load fried: %v", err)
	}
	if err := fx.db.First(&plain, "id = ?", fx.plain.ID).Error; err != nil {
		t.Fatalf("load plain: %v", err)
	}
	if fried.IsAvailable {
		t.Fatal("expected fried rice to flip unsellable via shared rice, though it was never ordered")
	}
	if plain.IsAvailable {
		t.Fatal("expected plain rice to be unsellable with 0 rice left")
	}
}

func TestReserveRejectsNonPositiveQuantity(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)

	_, err := Reserve(context.Background(), fx.db, uuid.New(), []LineRequest{{MenuItemID: fx.plain.ID, Quantity: 0}})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
