package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/yorishop/yori-backend/api/routes"
	"github.com/yorishop/yori-backend/internal/auth"
	"github.com/yorishop/yori-backend/internal/cart"
	"github.com/yorishop/yori-backend/internal/catalog"
	"github.com/yorishop/yori-backend/internal/chat"
	"github.com/yorishop/yori-backend/internal/coupons"
	"github.com/yorishop/yori-backend/internal/notifications"
	"github.com/yorishop/yori-backend/internal/orders"
	"github.com/yorishop/yori-backend/internal/reviews"
	"github.com/yorishop/yori-backend/internal/users"
	"github.com/yorishop/yori-backend/internal/wishlist"
	"github.com/yorishop/yori-backend/pkg/auth/session"
	"github.com/yorishop/yori-backend/pkg/config"
	"github.com/yorishop/yori-backend/pkg/db"
	"github.com/yorishop/yori-backend/pkg/logger"
	"github.com/yorishop/yori-backend/pkg/metrics"
	"github.com/yorishop/yori-backend/pkg/migrate"
	"github.com/yorishop/yori-backend/pkg/redis"
	"github.com/yorishop/yori-backend/pkg/ws"
)

const shutdownTimeout = 15 * time.Second

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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	hub := ws.NewHub(cfg.Chat, logg)

	gormDB := dbClient.DB()
	usersRepo := users.NewRepository(gormDB)
	catalogRepo := catalog.NewRepository(gormDB)
	cartRepo := cart.NewRepository(gormDB)
	couponsRepo := coupons.NewRepository(gormDB)
	ordersRepo := orders.NewRepository(gormDB)
	notificationsRepo := notifications.NewRepository(gormDB)
	wishlistRepo := wishlist.NewRepository(gormDB)
	reviewsRepo := reviews.NewRepository(gormDB)
	chatRepo := chat.NewRepository(gormDB)

	notificationsService, err := notifications.NewService(notifications.ServiceParams{
		Repo:      notificationsRepo,
		Publisher: redisClient,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		Repo:      usersRepo,
		Sessions:  sessionManager,
		Limiter:   redisClient,
		JWT:       cfg.JWT,
		Password:  cfg.Password,
		RateLimit: cfg.AuthRateLimit,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	usersService, err := users.NewService(users.ServiceParams{
		Repo:    usersRepo,
		Emitter: notificationsService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalog.ServiceParams{
		Repo: catalogRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cart.ServiceParams{
		Repo:     cartRepo,
		Products: catalogRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	couponsService, err := coupons.NewService(coupons.ServiceParams{
		Repo:      couponsRepo,
		Announcer: notificationsService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create coupons service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:     ordersRepo,
		Carts:    cartRepo,
		Catalog:  catalogRepo,
		Coupons:  couponsService,
		Emitter:  notificationsService,
		Tx:       dbClient,
		Logger:   logg,
		Checkout: cfg.Checkout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	wishlistService, err := wishlist.NewService(wishlist.ServiceParams{
		Repo:     wishlistRepo,
		Products: catalogRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create wishlist service", err)
		os.Exit(1)
	}

	reviewsService, err := reviews.NewService(reviews.ServiceParams{
		Repo:    reviewsRepo,
		Ratings: catalogRepo,
		Emitter: notificationsService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reviews service", err)
		os.Exit(1)
	}

	chatService, err := chat.NewService(chat.ServiceParams{
		Repo:        chatRepo,
		Broadcaster: hub,
		Publisher:   redisClient,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create chat service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.Deps{
		Cfg:           cfg,
		Logg:          logg,
		DB:            dbClient,
		Cache:         redisClient,
		Sessions:      sessionManager,
		Registry:      registry,
		HTTPMetrics:   httpMetrics,
		Hub:           hub,
		Auth:          authService,
		Users:         usersService,
		Catalog:       catalogService,
		Cart:          cartService,
		Coupons:       couponsService,
		Orders:        ordersService,
		Notifications: notificationsService,
		Wishlist:      wishlistService,
		Reviews:       reviewsService,
		Chat:          chatService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-stop.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
