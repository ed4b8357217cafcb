package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/payflow/internal/api/router"
	appconfig "github.com/wolfman30/payflow/internal/config"
	"github.com/wolfman30/payflow/internal/http/handlers"
	"github.com/wolfman30/payflow/internal/memory"
	"github.com/wolfman30/payflow/internal/observability/metrics"
	"github.com/wolfman30/payflow/internal/payments"
	"github.com/wolfman30/payflow/internal/postgres"
	"github.com/wolfman30/payflow/internal/scheduler"
	"github.com/wolfman30/payflow/internal/subscriptions"
	"github.com/wolfman30/payflow/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting payflow API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Stores: Postgres when configured, in-memory otherwise.
	var (
		paymentStore payments.Store
		subStore     subscriptions.Store
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create pgx pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}
		paymentStore = postgres.NewPaymentStore(pool)
		subStore = postgres.NewSubscriptionStore(pool)
		logger.Info("using postgres stores")
	} else {
		paymentStore = memory.NewPaymentStore()
		subStore = memory.NewSubscriptionStore()
		logger.Warn("DATABASE_URL not set; using in-memory stores")
	}

	// In-flight tracker: Redis when configured, process-local otherwise.
	var tracker scheduler.Tracker
	if cfg.RedisAddr != "" {
		redisOptions := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient := redis.NewClient(redisOptions)
		tracker = scheduler.NewRedisTracker(redisClient, cfg.InFlightTTL, logger)
		logger.Info("using redis in-flight tracker", "addr", cfg.RedisAddr)
	} else {
		tracker = scheduler.NewMemoryTracker()
	}

	// Simulated gateway with configurable success rates.
	gatewayOpts := []payments.GatewayOption{
		payments.WithChargeSuccessRate(cfg.GatewayChargeSuccessRate),
		payments.WithRefundSuccessRate(cfg.GatewayRefundSuccessRate),
	}
	if cfg.GatewayLatency > 0 {
		gatewayOpts = append(gatewayOpts, payments.WithLatency(cfg.GatewayLatency))
	}
	if cfg.GatewaySeed != 0 {
		gatewayOpts = append(gatewayOpts, payments.WithSeed(cfg.GatewaySeed))
	}
	gateway := payments.NewSimulatedGateway(logger, gatewayOpts...)

	// Services and scheduler
	paymentMetrics := metrics.NewPaymentMetrics(nil)
	paymentService := payments.NewService(gateway, paymentStore, logger, paymentMetrics)
	subscriptionService := subscriptions.NewService(subStore, logger)
	sched := scheduler.New(subStore, paymentStore, gateway, tracker, logger,
		scheduler.WithInterval(cfg.SchedulerInterval),
		scheduler.WithWorkers(cfg.SchedulerWorkers),
		scheduler.WithMetrics(paymentMetrics),
	)

	if cfg.SchedulerEnabled {
		go sched.Start(ctx)
	} else {
		logger.Info("recurring payment scheduler disabled")
	}

	// Setup router
	routerCfg := &router.Config{
		PaymentsHandler:      handlers.NewPaymentsHandler(paymentService, logger),
		SubscriptionsHandler: handlers.NewSubscriptionsHandler(subscriptionService, logger),
		RecurringHandler:     handlers.NewRecurringHandler(sched, logger),
		AdminStats:           handlers.NewAdminStatsHandler(nil, logger),
		MetricsHandler:       promhttp.Handler(),
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
