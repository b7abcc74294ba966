package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ninekrua/pos-backend/api/routes"
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
	"github.com/ninekrua/pos-backend/pkg/logger"
	"github.com/ninekrua/pos-backend/pkg/metrics"
	"github.com/ninekrua/pos-backend/pkg/migrate"
	"github.com/ninekrua/pos-backend/pkg/outbox"
	"github.com/ninekrua/pos-backend/pkg/outbox/idempotency"
	"github.com/ninekrua/pos-backend/pkg/pubsub"
	"github.com/ninekrua/pos-backend/pkg/redis"
)

const (
	shutdownTimeout        = 15 * time.Second
	consumerIdempotencyTTL = 24 * time.Hour
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)

	menuService, err := menu.NewService(menu.NewRepository(gormDB), dbClient)
	if err != nil {
		fatal(logg, "failed to create menu service", err)
	}

	inventoryService, err := inventory.NewService(inventory.NewRepository(gormDB), dbClient, outboxService, menuService)
	if err != nil {
		fatal(logg, "failed to create inventory service", err)
	}

	invoiceService, err := invoices.NewService(invoices.NewRepository(gormDB))
	if err != nil {
		fatal(logg, "failed to create invoice service", err)
	}

	orderService, err := orders.NewService(orders.NewRepository(gormDB), menu.NewRepository(gormDB), dbClient, outboxService, invoiceService)
	if err != nil {
		fatal(logg, "failed to create order service", err)
	}

	settingsService, err := settings.NewService(gormDB)
	if err != nil {
		fatal(logg, "failed to create settings service", err)
	}

	tableService, err := tables.NewService(tables.NewRepository(gormDB), orderService, settingsService)
	if err != nil {
		fatal(logg, "failed to create table service", err)
	}

	usersRepo := users.NewRepository(gormDB)
	userService, err := users.NewService(usersRepo, cfg.Password)
	if err != nil {
		fatal(logg, "failed to create user service", err)
	}

	authService, err := auth.NewService(
		auth.Directory{Users: userService, Repo: usersRepo},
		sessionManager,
		redisClient,
		cfg.JWT,
		cfg.AuthRateLimit,
	)
	if err != nil {
		fatal(logg, "failed to create auth service", err)
	}

	notificationService, err := notifications.NewService(notifications.NewRepository(gormDB))
	if err != nil {
		fatal(logg, "failed to create notification service", err)
	}

	bootstrapAdmin(logg, userService)

	idempotencyManager, err := idempotency.NewManager(redisClient, consumerIdempotencyTTL)
	if err != nil {
		fatal(logg, "failed to create idempotency manager", err)
	}

	consumer, err := notifications.NewConsumer(notificationService, pubsubClient.OrdersSubscription(), idempotencyManager, logg)
	if err != nil {
		fatal(logg, "failed to create notification consumer", err)
	}

	router := routes.NewRouter(routes.Deps{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Redis:         redisClient,
		PubSub:        pubsubClient,
		Sessions:      sessionManager,
		HTTPMetrics:   metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
		Auth:          authService,
		Users:         userService,
		Tables:        tableService,
		Menu:          menuService,
		Inventory:     inventoryService,
		Orders:        orderService,
		Invoices:      invoiceService,
		Notifications: notificationService,
		Settings:      settingsService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	go func() {
		logg.Info(ctx, "starting notification consumer")
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "notification consumer stopped unexpectedly", err)
		}
	}()

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server shut down gracefully")
}

// bootstrapAdmin seeds the first admin account from the environment when the
// user table is empty. Skipped entirely once any user exists.
func bootstrapAdmin(logg *logger.Logger, svc users.Service) {
	username := strings.TrimSpace(os.Getenv("NINEKRUA_ADMIN_USERNAME"))
	password := os.Getenv("NINEKRUA_ADMIN_PASSWORD")
	if username == "" || password == "" {
		return
	}
	if err := svc.EnsureAdmin(context.Background(), username, password); err != nil {
		logg.Error(context.Background(), "failed to bootstrap admin user", err)
		os.Exit(1)
	}
}

func fatal(logg *logger.Logger, msg string, err error) {
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}
