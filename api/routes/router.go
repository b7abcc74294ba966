package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ninekrua/pos-backend/api/controllers"
	"github.com/ninekrua/pos-backend/api/middleware"
	"github.com/ninekrua/pos-backend/internal/auth"
	"github.com/ninekrua/pos-backend/internal/inventory"
	"github.com/ninekrua/pos-backend/internal/invoices"
	"github.com/ninekrua/pos-backend/internal/menu"
	"github.com/ninekrua/pos-backend/internal/notifications"
	"github.com/ninekrua/pos-backend/internal/orders"
	"github.com/ninekrua/pos-backend/internal/settings"
	"github.com/ninekrua/pos-backend/internal/tables"
	"github.com/ninekrua/pos-backend/internal/users"
	"github.com/ninekrua/pos-backend/pkg/auth/session"
	"github.com/ninekrua/pos-backend/pkg/config"
	"github.com/ninekrua/pos-backend/pkg/db"
	"github.com/ninekrua/pos-backend/pkg/enums"
	"github.com/ninekrua/pos-backend/pkg/logger"
	"github.com/ninekrua/pos-backend/pkg/metrics"
	"github.com/ninekrua/pos-backend/pkg/redis"
)

// Deps bundles everything the HTTP surface needs. Nil optional members
// degrade gracefully: nil redis disables idempotency and rate limiting, nil
// metrics disables instrumentation.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            db.Pinger
	Redis         *redis.Client
	PubSub        db.Pinger
	Sessions      session.AccessSessionChecker
	HTTPMetrics   *metrics.HTTPMetrics
	Auth          auth.Service
	Users         users.Service
	Tables        tables.Service
	Menu          menu.Service
	Inventory     inventory.Service
	Orders        orders.Service
	Invoices      invoices.Service
	Notifications notifications.Service
	Settings      settings.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUsernameLimit,
	)

	// A typed-nil *redis.Client would dodge the middleware nil checks, so the
	// interface values are only assigned when the client actually exists.
	var idempotencyStore middleware.IdempotencyStore
	var loginLimiter middleware.RateLimiterStore
	if deps.Redis != nil {
		idempotencyStore = deps.Redis
		loginLimiter = deps.Redis
	}

	readiness := map[string]db.Pinger{
		"database": deps.DB,
		"pubsub":   deps.PubSub,
	}
	if deps.Redis != nil {
		readiness["redis"] = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, loginLimiter, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(deps.Auth, logg))
	})

	// Guest surface: authorized by table code + access token, no user account.
	r.Route("/api/v1/guest/tables/{code}", func(r chi.Router) {
		r.Use(middleware.GuestTable(deps.Tables, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Get("/menu", controllers.GuestMenu(deps.Menu, logg))
		r.Post("/orders", controllers.GuestPlaceOrder(deps.Orders, logg))
		r.Get("/orders", controllers.GuestListOrders(deps.Orders, logg))
		r.Get("/orders/{id}", controllers.GuestGetOrder(deps.Orders, logg))
		r.Get("/bill", controllers.GuestBill(deps.Tables, logg))
	})

	// Staff surface.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/tables", func(r chi.Router) {
			r.Get("/", controllers.ListTables(deps.Tables, logg))
			r.Get("/{id}", controllers.GetTable(deps.Tables, logg))
			r.Get("/{id}/bill", controllers.TableBill(deps.Tables, logg))
			r.Post("/{id}/settle", controllers.SettleTable(deps.Tables, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg))
				r.Post("/", controllers.CreateTable(deps.Tables, logg))
				r.Patch("/{id}", controllers.UpdateTable(deps.Tables, logg))
				r.Delete("/{id}", controllers.DeleteTable(deps.Tables, logg))
				r.Post("/{id}/rotate-token", controllers.RotateTableToken(deps.Tables, logg))
			})
		})

		r.Route("/menu", func(r chi.Router) {
			r.Get("/categories", controllers.ListMenuCategories(deps.Menu, logg))
			r.Get("/items", controllers.ListMenuItems(deps.Menu, logg))
			r.Get("/items/{id}", controllers.GetMenuItem(deps.Menu, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg))
				r.Post("/categories", controllers.CreateMenuCategory(deps.Menu, logg))
				r.Patch("/categories/{id}", controllers.UpdateMenuCategory(deps.Menu, logg))
				r.Delete("/categories/{id}", controllers.DeleteMenuCategory(deps.Menu, logg))
				r.Post("/items", controllers.CreateMenuItem(deps.Menu, logg))
				r.Patch("/items/{id}", controllers.UpdateMenuItem(deps.Menu, logg))
				r.Delete("/items/{id}", controllers.DeleteMenuItem(deps.Menu, logg))
				r.Put("/items/{id}/recipe", controllers.SetMenuItemRecipe(deps.Menu, logg))
			})
		})

		r.Route("/ingredients", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleKitchen))
			r.Get("/", controllers.ListIngredients(deps.Inventory, logg))
			r.Get("/low-stock", controllers.ListLowStockIngredients(deps.Inventory, logg))
			r.Get("/{id}", controllers.GetIngredient(deps.Inventory, logg))
			r.Get("/{id}/movements", controllers.ListStockMovements(deps.Inventory, logg))
			r.Post("/{id}/restock", controllers.RestockIngredient(deps.Inventory, logg))
			r.Post("/{id}/adjust", controllers.AdjustIngredient(deps.Inventory, logg))
			r.Post("/{id}/reconcile", controllers.ReconcileIngredient(deps.Inventory, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg))
				r.Post("/", controllers.CreateIngredient(deps.Inventory, logg))
				r.Patch("/{id}", controllers.UpdateIngredient(deps.Inventory, logg))
				r.Put("/{id}/active", controllers.SetIngredientActive(deps.Inventory, logg))
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleKitchen))
			r.Post("/", controllers.PlaceOrder(deps.Orders, logg))
			r.Get("/", controllers.ListOrders(deps.Orders, logg))
			r.Get("/{id}", controllers.GetOrder(deps.Orders, logg))
			r.Put("/{id}/status", controllers.SetOrderStatus(deps.Orders, logg))
			r.Post("/{id}/cancel", controllers.CancelOrder(deps.Orders, logg))
			r.Post("/{id}/payments", controllers.RecordPayment(deps.Orders, logg))
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg))
			r.Get("/", controllers.ListInvoices(deps.Invoices, logg))
			r.Get("/by-order", controllers.GetInvoiceByOrder(deps.Invoices, logg))
			r.Get("/export", controllers.ExportInvoicesCSV(deps.Invoices, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleKitchen))
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Get("/unread-count", controllers.CountUnreadNotifications(deps.Notifications, logg))
			r.Post("/{id}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg))
			r.Post("/", controllers.CreateUser(deps.Users, logg))
			r.Get("/", controllers.ListUsers(deps.Users, logg))
			r.Put("/{id}/active", controllers.SetUserActive(deps.Users, logg))
			r.Put("/{id}/password", controllers.ChangePassword(deps.Users, logg))
			r.Post("/{id}/reset-password", controllers.ResetPassword(deps.Users, logg))
		})

		r.Route("/settings", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg))
			r.Get("/", controllers.ListSettings(deps.Settings, logg))
			r.Put("/", controllers.SetSetting(deps.Settings, logg))
		})
	})

	return r
}
