package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"checkout-core/internal/database"
	"checkout-core/internal/handler"
	"checkout-core/internal/idempotency"
	"checkout-core/internal/repository"
	"checkout-core/internal/router"
	"checkout-core/internal/service"
	"checkout-core/internal/telemetry"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testAPIKey = "test-api-key"

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB starts a PostgreSQL container and applies the schema migrations.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		t.Fatalf("failed to parse connection string: %v", err)
	}
	poolConfig.MaxConns = 20
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := database.Migrate(ctx, pool, zerolog.Nop()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// App wires real repositories and services over the test database.
type App struct {
	DB        *TestDB
	Products  repository.ProductRepository
	Outbox    repository.OutboxRepository
	Addresses repository.AddressBook
	Metrics   *telemetry.Metrics
	Cart      service.CartService
	Coupons   service.CouponService
	Orders    service.OrderService
	Inventory service.InventoryService
	Checkout  service.CheckoutService
	Handler   http.Handler
}

// NewApp builds the service graph the API server uses, with a miniredis
// backed idempotency store.
func NewApp(t *testing.T, db *TestDB) *App {
	t.Helper()

	logger := zerolog.Nop()
	registry := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(registry)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	products := repository.NewProductRepository(db.Pool, logger)
	carts := repository.NewCartRepository(db.Pool, logger)
	coupons := repository.NewCouponRepository(db.Pool, logger)
	orders := repository.NewOrderRepository(db.Pool, logger)
	outbox := repository.NewOutboxRepository(db.Pool, logger)
	users := repository.NewUserDirectory(logger)
	addresses := repository.NewAddressBook(db.Pool, logger)

	app := &App{
		DB:        db,
		Products:  products,
		Outbox:    outbox,
		Addresses: addresses,
		Metrics:   metrics,
	}
	app.Cart = service.NewCartService(carts, products, coupons, users, metrics, 10, logger)
	app.Coupons = service.NewCouponService(coupons, carts, metrics, 10, logger)
	app.Orders = service.NewOrderService(orders, outbox, metrics, logger)
	app.Inventory = service.NewInventoryService(products, logger)
	app.Checkout = service.NewCheckoutService(service.CheckoutDeps{
		Carts:       app.Cart,
		CartStore:   carts,
		Orders:      orders,
		Stock:       products,
		Users:       users,
		Addresses:   addresses,
		Outbox:      outbox,
		Idempotency: idempotency.NewRedisStore(client, time.Hour),
		Metrics:     metrics,
	}, 30*time.Second, logger)

	app.Handler = router.New(router.Handlers{
		Cart:      handler.NewCartHandler(app.Cart, app.Coupons, logger),
		Checkout:  handler.NewCheckoutHandler(app.Checkout, logger),
		Orders:    handler.NewOrderHandler(app.Orders, logger),
		Coupons:   handler.NewCouponHandler(app.Coupons, logger),
		Inventory: handler.NewInventoryHandler(app.Inventory, logger),
		Addresses: handler.NewAddressHandler(service.NewAddressService(addresses, logger), logger),
	}, testAPIKey, db.Pool, registry, logger)

	return app
}

// SeedProduct inserts a catalog product.
func SeedProduct(t *testing.T, pool *pgxpool.Pool, id, price string, stock int) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		"INSERT INTO products (id, name, price, stock) VALUES ($1, $2, $3, $4)",
		id, "Product "+id, decimal.RequireFromString(price), stock,
	)
	if err != nil {
		t.Fatalf("failed to seed product %s: %v", id, err)
	}
}

// CleanupDB removes all data from the test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		TRUNCATE order_events, customer_orders, order_items, orders, addresses,
		         customers, cart_items, carts, coupons, products CASCADE
	`)
	if err != nil {
		t.Fatalf("failed to clean tables: %v", err)
	}
}

// StockOf reads a product's current stock.
func StockOf(t *testing.T, pool *pgxpool.Pool, id string) int {
	t.Helper()

	var stock int
	if err := pool.QueryRow(context.Background(), "SELECT stock FROM products WHERE id = $1", id).Scan(&stock); err != nil {
		t.Fatalf("failed to read stock of %s: %v", id, err)
	}
	return stock
}
