package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ninekrua/pos-backend/internal/menu"
	"github.com/ninekrua/pos-backend/internal/orders"
	"github.com/ninekrua/pos-backend/internal/tables"
	"github.com/ninekrua/pos-backend/internal/users"
	pkgauth "github.com/ninekrua/pos-backend/pkg/auth"
	"github.com/ninekrua/pos-backend/pkg/auth/session"
	"github.com/ninekrua/pos-backend/pkg/config"
	"github.com/ninekrua/pos-backend/pkg/db/models"
	"github.com/ninekrua/pos-backend/pkg/enums"
	pkgerrors "github.com/ninekrua/pos-backend/pkg/errors"
	"github.com/ninekrua/pos-backend/pkg/logger"
	"github.com/ninekrua/pos-backend/pkg/outbox"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionChecker struct{}

func (stubSessionChecker) HasSession(context.Context, string) (bool, error) {
	return true, nil
}

type stubUsersService struct{}

// CreateUser implements [users.Service].
func (stubUsersService) CreateUser(ctx context.Context, input users.CreateUserInput) (*models.User, error) {
	panic("unimplemented")
}

// SetActive implements [users.Service].
func (stubUsersService) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.User, error) {
	panic("unimplemented")
}

// ChangePassword implements [users.Service].
func (stubUsersService) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	panic("unimplemented")
}

// ResetPassword implements [users.Service].
func (stubUsersService) ResetPassword(ctx context.Context, id uuid.UUID) (string, error) {
	panic("unimplemented")
}

// GetUser implements [users.Service].
func (stubUsersService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	panic("unimplemented")
}

// FindByUsername implements [users.Service].
func (stubUsersService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	panic("unimplemented")
}

func (stubUsersService) ListUsers(ctx context.Context) ([]models.User, error) {
	return []models.User{}, nil
}

// EnsureAdmin implements [users.Service].
func (stubUsersService) EnsureAdmin(ctx context.Context, username, password string) error {
	panic("unimplemented")
}

type stubOrdersService struct{}

// PlaceOrder implements [orders.Service].
func (stubOrdersService) PlaceOrder(ctx context.Context, input orders.PlaceOrderInput) (*orders.OrderSnapshot, error) {
	panic("unimplemented")
}

// CancelOrder implements [orders.Service].
func (stubOrdersService) CancelOrder(ctx context.Context, orderID uuid.UUID, actor *outbox.ActorRef) error {
	panic("unimplemented")
}

// RecordPayment implements [orders.Service].
func (stubOrdersService) RecordPayment(ctx context.Context, orderID uuid.UUID, input orders.PaymentInput) (*orders.OrderSnapshot, error) {
	panic("unimplemented")
}

// SetOrderStatus implements [orders.Service].
func (stubOrdersService) SetOrderStatus(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus) (*orders.OrderSnapshot, error) {
	panic("unimplemented")
}

// GetOrderSnapshot implements [orders.Service].
func (stubOrdersService) GetOrderSnapshot(ctx context.Context, orderID uuid.UUID) (*orders.OrderSnapshot, error) {
	panic("unimplemented")
}

func (stubOrdersService) ListOrders(ctx context.Context, filter orders.ListFilter) ([]orders.OrderSnapshot, error) {
	return []orders.OrderSnapshot{}, nil
}

func (stubOrdersService) ListOpenByTable(ctx context.Context, tableID uuid.UUID) ([]orders.OrderSnapshot, error) {
	return []orders.OrderSnapshot{}, nil
}

type stubMenuService struct{}

// CreateCategory implements [menu.Service].
func (stubMenuService) CreateCategory(ctx context.Context, name string, position int) (*models.MenuCategory, error) {
	panic("unimplemented")
}

// UpdateCategory implements [menu.Service].
func (stubMenuService) UpdateCategory(ctx context.Context, id uuid.UUID, name *string, position *int) (*models.MenuCategory, error) {
	panic("unimplemented")
}

// DeleteCategory implements [menu.Service].
func (stubMenuService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	panic("unimplemented")
}

func (stubMenuService) ListCategories(ctx context.Context) ([]models.MenuCategory, error) {
	return []models.MenuCategory{}, nil
}

// CreateItem implements [menu.Service].
func (stubMenuService) CreateItem(ctx context.Context, input menu.CreateItemInput) (*models.MenuItem, error) {
	panic("unimplemented")
}

// UpdateItem implements [menu.Service].
func (stubMenuService) UpdateItem(ctx context.Context, id uuid.UUID, input menu.UpdateItemInput) (*models.MenuItem, error) {
	panic("unimplemented")
}

// DeleteItem implements [menu.Service].
func (stubMenuService) DeleteItem(ctx context.Context, id uuid.UUID) error {
	panic("unimplemented")
}

// GetItem implements [menu.Service].
func (stubMenuService) GetItem(ctx context.Context, id uuid.UUID) (*models.MenuItem, error) {
	panic("unimplemented")
}

func (stubMenuService) ListItems(ctx context.Context, categoryID *uuid.UUID) ([]models.MenuItem, error) {
	return []models.MenuItem{}, nil
}

// SetRecipe implements [menu.Service].
func (stubMenuService) SetRecipe(ctx context.Context, itemID uuid.UUID, entries []menu.RecipeEntryInput) (*models.MenuItem, error) {
	panic("unimplemented")
}

// RecomputeForIngredients implements [menu.Service].
func (stubMenuService) RecomputeForIngredients(ctx context.Context, tx *gorm.DB, ingredientIDs []uuid.UUID) error {
	panic("unimplemented")
}

const guestTestToken = "table-secret"

type stubTablesService struct{}

// CreateTable implements [tables.Service].
func (stubTablesService) CreateTable(ctx context.Context, name, code string) (*models.DiningTable, error) {
	panic("unimplemented")
}

// UpdateTable implements [tables.Service].
func (stubTablesService) UpdateTable(ctx context.Context, id uuid.UUID, name, code *string) (*models.DiningTable, error) {
	panic("unimplemented")
}

// DeleteTable implements [tables.Service].
func (stubTablesService) DeleteTable(ctx context.Context, id uuid.UUID) error {
	panic("unimplemented")
}

// GetTable implements [tables.Service].
func (stubTablesService) GetTable(ctx context.Context, id uuid.UUID) (*models.DiningTable, error) {
	panic("unimplemented")
}

func (stubTablesService) ListTables(ctx context.Context) ([]models.DiningTable, error) {
	return []models.DiningTable{}, nil
}

// RotateAccessToken implements [tables.Service].
func (stubTablesService) RotateAccessToken(ctx context.Context, id uuid.UUID) (*models.DiningTable, error) {
	panic("unimplemented")
}

func (stubTablesService) AuthorizeGuest(ctx context.Context, code, token string) (*models.DiningTable, error) {
	if token != guestTestToken {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid table token")
	}
	return &models.DiningTable{ID: uuid.New(), Code: code, Name: "Table " + code}, nil
}

// Bill implements [tables.Service].
func (stubTablesService) Bill(ctx context.Context, id uuid.UUID) (*tables.Bill, error) {
	panic("unimplemented")
}

// Settle implements [tables.Service].
func (stubTablesService) Settle(ctx context.Context, id uuid.UUID, method enums.PaymentMethod, actor *outbox.ActorRef) ([]orders.OrderSnapshot, error) {
	panic("unimplemented")
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Output: io.Discard})
	return NewRouter(Deps{
		Config:   cfg,
		Logger:   logg,
		DB:       stubPinger{},
		PubSub:   stubPinger{},
		Sessions: stubSessionChecker{},
		Users:    stubUsersService{},
		Tables:   stubTablesService{},
		Menu:     stubMenuService{},
		Orders:   stubOrdersService{},
	})
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveAlwaysResponds(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestStaffRoutesRejectMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestUsersRequireAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	kitchen := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	kitchen.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleKitchen))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, kitchen)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for kitchen got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestOrdersAllowKitchenRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleKitchen))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for kitchen orders got %d", resp.Code)
	}
}

func TestMenuMutationsRequireAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	read := httptest.NewRequest(http.MethodGet, "/api/v1/menu/items", nil)
	read.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleKitchen))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, read)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for kitchen menu read got %d", resp.Code)
	}

	mutate := httptest.NewRequest(http.MethodDelete, "/api/v1/menu/items/"+uuid.NewString(), nil)
	mutate.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleKitchen))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, mutate)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for kitchen menu mutation got %d", resp.Code)
	}
}

func TestGuestRoutesRequireTableToken(t *testing.T) {
	router := newTestRouter(testConfig())

	missing := httptest.NewRequest(http.MethodGet, "/api/v1/guest/tables/T1/menu", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, missing)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without table token got %d", resp.Code)
	}

	wrong := httptest.NewRequest(http.MethodGet, "/api/v1/guest/tables/T1/menu", nil)
	wrong.Header.Set("X-Table-Token", "bogus")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, wrong)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong table token got %d", resp.Code)
	}

	valid := httptest.NewRequest(http.MethodGet, "/api/v1/guest/tables/T1/menu", nil)
	valid.Header.Set("X-Table-Token", guestTestToken)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, valid)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid table token got %d", resp.Code)
	}
}
