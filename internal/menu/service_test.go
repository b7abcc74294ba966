package menu

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ninekrua/pos-backend/pkg/db/models"
	pkgerrors "github.com/ninekrua/pos-backend/pkg/errors"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc, err := NewService(NewRepository(db), testTxRunner{db: db})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db
}

func TestCreateItemDefaultsAvailable(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	category, err := svc.CreateCategory(context.Background(), "mains", 0)
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	item, err := svc.CreateItem(context.Background(), CreateItemInput{
		CategoryID: category.ID,
		Name:       "green curry",
		Price:      decimal.RequireFromString("120"),
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if !itemAvailable(t, db, item.ID) {
		t.Fatal("expected new item to default to available")
	}
}

func TestCreateItemValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)

	_, err := svc.CreateItem(context.Background(), CreateItemInput{Name: "nameless category"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSetRecipeRecomputesAvailability(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	scarce := seedIngredient(t, db, "crab", "1", true)
	item := seedItem(t, db, "crab fried rice", nil)

	updated, err := svc.SetRecipe(context.Background(), item.ID, []RecipeEntryInput{
		{IngredientID: scarce.ID, Quantity: decimal.RequireFromString("2")},
	})
	if err != nil {
		t.Fatalf("set recipe: %v", err)
	}
	if updated.IsAvailable {
		t.Fatal("expected item to become unsellable: recipe needs 2, only 1 on hand")
	}

	// Clearing the recipe makes it sellable again.
	updated, err = svc.SetRecipe(context.Background(), item.ID, nil)
	if err != nil {
		t.Fatalf("clear recipe: %v", err)
	}
	if !updated.IsAvailable {
		t.Fatal("expected zero-ingredient item to be sellable")
	}
}

func TestSetRecipeRejectsDuplicates(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ingredient := seedIngredient(t, db, "onion", "5", true)
	item := seedItem(t, db, "soup", nil)

	_, err := svc.SetRecipe(context.Background(), item.ID, []RecipeEntryInput{
		{IngredientID: ingredient.ID, Quantity: decimal.NewFromInt(1)},
		{IngredientID: ingredient.ID, Quantity: decimal.NewFromInt(2)},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSetRecipeUnknownItem(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)

	_, err := svc.SetRecipe(context.Background(), uuid.New(), nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestListItemsFiltersByCategory(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	itemA := seedItem(t, db, "item a", nil)
	seedItem(t, db, "item b", nil)

	items, err := svc.ListItems(context.Background(), &itemA.CategoryID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 1 || items[0].ID != itemA.ID {
		t.Fatalf("expected only item a, got %d items", len(items))
	}

	var all []models.MenuItem
	if err := db.Find(&all).Error; err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 items seeded, got %d", len(all))
	}
}
