package repository

import (
	"context"

	"checkout-core/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TxBeginner starts database transactions that are then passed to the tx-scoped methods below.
type TxBeginner interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

// ProductRepository is the product catalog: existence, current price and stock.
type ProductRepository interface {
	StockLedger

	// GetByID retrieves a single product by its ID. Returns nil when absent.
	GetByID(ctx context.Context, id string) (*model.Product, error)
}

// StockLedger holds per-product stock counts. Both operations are single
// conditional statements; stock never goes below zero.
type StockLedger interface {
	// Decrement removes qty units. Returns model.ErrProductNotFound or
	// model.ErrInsufficientStock without changing anything.
	Decrement(ctx context.Context, productID string, qty int) error

	// Increment adds qty units back. Used for compensation and restocking.
	Increment(ctx context.Context, productID string, qty int) error
}

// CartRepository persists carts and their items. Writes go through a transaction and
// finish with a version-checked update of the cart row; a lost race surfaces as
// ErrVersionConflict.
type CartRepository interface {
	TxBeginner

	// GetByUserID loads the user's cart with items. tx may be nil to read outside a transaction.
	GetByUserID(ctx context.Context, tx pgx.Tx, userID string) (*model.Cart, error)

	// GetByID loads a cart with items. tx may be nil.
	GetByID(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) (*model.Cart, error)

	// Create inserts an empty cart. Returns false if the user already has one.
	Create(ctx context.Context, tx pgx.Tx, cart *model.Cart) (bool, error)

	InsertItem(ctx context.Context, tx pgx.Tx, item *model.CartItem) error
	UpdateItemQuantity(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, quantity int) error
	DeleteItem(ctx context.Context, tx pgx.Tx, itemID uuid.UUID) error

	// SaveTotals writes derived totals and bumps the version if it still equals expectedVersion.
	SaveTotals(ctx context.Context, tx pgx.Tx, cartID uuid.UUID, expectedVersion int64, totals model.CartTotals) (int64, error)

	// AttachCoupon records the coupon and new totals if the version matches and no coupon is applied yet.
	AttachCoupon(ctx context.Context, tx pgx.Tx, cartID uuid.UUID, expectedVersion int64, code string, totals model.CartTotals) (int64, error)

	// Delete removes the cart and its items if the version matches.
	Delete(ctx context.Context, tx pgx.Tx, cartID uuid.UUID, expectedVersion int64) error
}

// CouponRepository persists coupon definitions and usage counts.
type CouponRepository interface {
	Create(ctx context.Context, coupon *model.Coupon) error

	// GetByCode returns nil when the code is unknown.
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)

	// Redeem increments usage_count if the coupon is unexpired and below its cap,
	// returning the updated coupon. Otherwise it returns model.ErrCouponNotFound,
	// model.ErrCouponExpired or model.ErrUsageExceeded.
	Redeem(ctx context.Context, tx pgx.Tx, code string) (*model.Coupon, error)
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	TxBeginner

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order with its items. Returns nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// ListByUser returns a user's orders, newest first.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Order, error)

	// UpdateStatus sets a new status unless the order is cancelled.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.OrderStatus) (*model.Order, error)

	// Cancel moves a Pending, Processing or Shipped order to Cancelled.
	Cancel(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error)
}

// UserDirectory tracks which cart a user owns and the user's order history.
type UserDirectory interface {
	LinkCart(ctx context.Context, tx pgx.Tx, userID string, cartID uuid.UUID) error
	UnlinkCart(ctx context.Context, tx pgx.Tx, userID string) error
	AppendOrder(ctx context.Context, tx pgx.Tx, userID string, orderID uuid.UUID) error
}

// AddressBook resolves saved addresses.
type AddressBook interface {
	// ResolveAddress returns nil when the address does not exist or belongs to another user.
	ResolveAddress(ctx context.Context, addressID uuid.UUID, userID string) (*model.Address, error)

	SaveAddress(ctx context.Context, userID string, addr model.Address) (*model.SavedAddress, error)
}

// OutboxRepository stores order events until they are published.
type OutboxRepository interface {
	Enqueue(ctx context.Context, tx pgx.Tx, event *model.OrderEvent) error
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// FetchUnpublished locks up to limit pending events. Rows locked by another
	// transaction are skipped, so concurrent pollers never share an event.
	FetchUnpublished(ctx context.Context, tx pgx.Tx, limit int) ([]model.OrderEvent, error)
	MarkPublished(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) error
}
