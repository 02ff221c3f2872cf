package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"checkout-core/internal/config"
	"checkout-core/internal/database"
	"checkout-core/internal/handler"
	"checkout-core/internal/idempotency"
	"checkout-core/internal/publisher"
	"checkout-core/internal/repository"
	"checkout-core/internal/router"
	"checkout-core/internal/service"
	"checkout-core/internal/telemetry"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting checkout-core API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(registry)

	// Repositories
	productRepo := repository.NewProductRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	couponRepo := repository.NewCouponRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	outboxRepo := repository.NewOutboxRepository(pool, logger)
	users := repository.NewUserDirectory(logger)
	addresses := repository.NewAddressBook(pool, logger)

	keys, closeKeys, err := newIdempotencyStore(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer closeKeys()

	// Services
	cartService := service.NewCartService(cartRepo, productRepo, couponRepo, users, metrics, cfg.Checkout.MaxCartRetries, logger)
	couponService := service.NewCouponService(couponRepo, cartRepo, metrics, cfg.Checkout.MaxCartRetries, logger)
	orderService := service.NewOrderService(orderRepo, outboxRepo, metrics, logger)
	inventoryService := service.NewInventoryService(productRepo, logger)
	addressService := service.NewAddressService(addresses, logger)
	checkoutService := service.NewCheckoutService(service.CheckoutDeps{
		Carts:       cartService,
		CartStore:   cartRepo,
		Orders:      orderRepo,
		Stock:       productRepo,
		Users:       users,
		Addresses:   addresses,
		Outbox:      outboxRepo,
		Idempotency: keys,
		Metrics:     metrics,
	}, cfg.Checkout.Timeout, logger)

	mux := router.New(router.Handlers{
		Cart:      handler.NewCartHandler(cartService, couponService, logger),
		Checkout:  handler.NewCheckoutHandler(checkoutService, logger),
		Orders:    handler.NewOrderHandler(orderService, logger),
		Coupons:   handler.NewCouponHandler(couponService, logger),
		Inventory: handler.NewInventoryHandler(inventoryService, logger),
		Addresses: handler.NewAddressHandler(addressService, logger),
	}, cfg.Auth.APIKey, pool, registry, logger)

	var background sync.WaitGroup
	if cfg.Kafka.Enabled {
		writer := publisher.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		poller := publisher.NewOutboxPoller(outboxRepo, writer, metrics, cfg.Kafka.PollInterval, cfg.Kafka.BatchSize, logger)
		background.Add(1)
		go func() {
			defer background.Done()
			poller.Run(ctx)
		}()
	} else {
		logger.Info().Msg("kafka disabled, order events stay in the outbox")
	}

	server := &http.Server{
		Addr:    cfg.Server.Address(),
		Handler: mux,
		// Checkout may run up to its timeout before responding.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Checkout.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		cancel()
		background.Wait()
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		cancel()
		background.Wait()
		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newIdempotencyStore connects to Redis when enabled. Without Redis, checkout
// retries are not deduplicated.
func newIdempotencyStore(ctx context.Context, cfg config.RedisConfig, logger zerolog.Logger) (idempotency.Store, func(), error) {
	if !cfg.Enabled {
		logger.Warn().Msg("redis disabled, checkout idempotency keys are ignored")
		return idempotency.NopStore{}, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	logger.Info().Str("addr", cfg.Addr).Msg("redis idempotency store connected")
	return idempotency.NewRedisStore(client, cfg.IdempotencyTTL), func() { _ = client.Close() }, nil
}
