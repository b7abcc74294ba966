package menu

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ninekrua/pos-backend/pkg/db/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:menu_" + uuid.NewString() + "?mode=memory&cache=shared"
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

func seedIngredient(t *testing.T, db *gorm.DB, name string, onHand string, active bool) *models.Ingredient {
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

func seedItem(t *testing.T, db *gorm.DB, name string, recipe map[uuid.UUID]string) *models.MenuItem {
	t.Helper()
	category := &models.MenuCategory{ID: uuid.New(), Name: "cat-" + uuid.NewString()}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}
	item := &models.MenuItem{
		ID:          uuid.New(),
		CategoryID:  category.ID,
		Name:        name,
		Price:       decimal.RequireFromString("50"),
		IsAvailable: true,
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	for ingredientID, qty := range recipe {
		edge := &models.MenuItemIngredient{
			ID:           uuid.New(),
			MenuItemID:   item.ID,
			IngredientID: ingredientID,
			Quantity:     decimal.RequireFromString(qty),
		}
		if err := db.Create(edge).Error; err != nil {
			t.Fatalf("seed recipe edge: %v", err)
		}
	}
	return item
}

func itemAvailable(t *testing.T, db *gorm.DB, id uuid.UUID) bool {
	t.Helper()
	var item models.MenuItem
	if err := db.First(&item, "id = ?", id).Error; err != nil {
		t.Fatalf("load item: %v", err)
	}
	return item.IsAvailable
}

func TestRecomputeAvailabilityNoRecipeAlwaysSellable(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	item := seedItem(t, db, "plain rice", nil)

	if err := db.Model(&models.MenuItem{}).Where("id = ?", item.ID).Update("is_available", false).Error; err != nil {
		t.Fatalf("flip flag: %v", err)
	}
	if err := RecomputeAvailability(context.Background(), db, []uuid.UUID{item.ID}); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if !itemAvailable(t, db, item.ID) {
		t.Fatal("expected zero-ingredient item to be sellable")
	}
}

func TestRecomputeAvailabilityInactiveIngredientBlocks(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	inactive := seedIngredient(t, db, "fish sauce", "100", false)
	item := seedItem(t, db, "pad krapow", map[uuid.UUID]string{inactive.ID: "1"})

	if err := RecomputeAvailability(context.Background(), db, []uuid.UUID{item.ID}); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if itemAvailable(t, db, item.ID) {
		t.Fatal("expected item with inactive ingredient to be unsellable")
	}
}

func TestRecomputeAvailabilityBalanceThreshold(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	scarce := seedIngredient(t, db, "prawn", "1.5", true)
	exactly := seedItem(t, db, "exact", map[uuid.UUID]string{scarce.ID: "1.5"})
	over := seedItem(t, db, "over", map[uuid.UUID]string{scarce.ID: "2"})

	if err := RecomputeAvailability(context.Background(), db, []uuid.UUID{exactly.ID, over.ID}); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if !itemAvailable(t, db, exactly.ID) {
		t.Fatal("expected item needing exactly the balance to stay sellable")
	}
	if itemAvailable(t, db, over.ID) {
		t.Fatal("expected item needing more than the balance to be unsellable")
	}
}

func TestRippleSetCoversSharedIngredients(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	shared := seedIngredient(t, db, "egg", "10", true)
	other := seedIngredient(t, db, "noodle", "10", true)
	itemA := seedItem(t, db, "a", map[uuid.UUID]string{shared.ID: "2"})
	itemB := seedItem(t, db, "b", map[uuid.UUID]string{shared.ID: "3", other.ID: "1"})
	unrelated := seedItem(t, db, "c", map[uuid.UUID]string{other.ID: "1"})

	ids, err := RippleSet(context.Background(), db, []uuid.UUID{shared.ID})
	if err != nil {
		t.Fatalf("ripple set: %v", err)
	}
	found := map[uuid.UUID]bool{}
	for _, id := range ids {
		found[id] = true
	}
	if !found[itemA.ID] || !found[itemB.ID] {
		t.Fatalf("expected both sharers in ripple set, got %v", ids)
	}
	if found[unrelated.ID] {
		t.Fatal("unrelated item must not be in the ripple set")
	}
}

func TestRecomputeForIngredientsFlipsUnorderedSharer(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	shared := seedIngredient(t, db, "lime", "5", true)
	itemA := seedItem(t, db, "a", map[uuid.UUID]string{shared.ID: "2"})
	itemB := seedItem(t, db, "b", map[uuid.UUID]string{shared.ID: "4"})

	// Deplete the shared ingredient below B's requirement but not A's.
	if err := db.Model(&models.Ingredient{}).Where("id = ?", shared.ID).
		Update("quantity_on_hand", decimal.RequireFromString("3")).Error; err != nil {
		t.Fatalf("deplete: %v", err)
	}

	if err := RecomputeForIngredients(context.Background(), db, []uuid.UUID{shared.ID}); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if !itemAvailable(t, db, itemA.ID) {
		t.Fatal("expected item A to remain sellable")
	}
	if itemAvailable(t, db, itemB.ID) {
		t.Fatal("expected item B to flip unsellable via the ripple")
	}
}
