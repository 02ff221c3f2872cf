package service

import (
	"context"

	"checkout-core/internal/model"

	"github.com/google/uuid"
)

// CartService maintains a user's cart. Every mutation recomputes the cart totals
// from current product prices and commits through a version-checked write.
type CartService interface {
	AddItem(ctx context.Context, userID string, req *model.AddItemRequest) (*model.Cart, error)
	RemoveItem(ctx context.Context, userID string, itemID uuid.UUID) (*model.Cart, error)
	UpdateItem(ctx context.Context, userID string, itemID uuid.UUID, action model.ItemAction) (*model.Cart, error)

	// GetCart returns the user's cart, or an empty cart shape when none exists.
	GetCart(ctx context.Context, userID string) (*model.Cart, error)

	// ClearCart unlinks and deletes the cart. Clearing a missing cart is not an error.
	ClearCart(ctx context.Context, userID string) error

	// Reprice recomputes totals from current prices and returns the cart at its new version.
	Reprice(ctx context.Context, userID string) (*model.Cart, error)
}

// CouponService defines coupon management and application.
type CouponService interface {
	CreateCoupon(ctx context.Context, req *model.CreateCouponRequest) (*model.Coupon, error)
	GetCoupon(ctx context.Context, code string) (*model.Coupon, error)

	// Validate checks that a coupon exists, has not expired and has uses left.
	Validate(ctx context.Context, code, userID string) (*model.Coupon, error)

	// ApplyCoupon redeems one use of the coupon and writes the discounted totals
	// onto the caller's cart in a single transaction.
	ApplyCoupon(ctx context.Context, userID string, cartID uuid.UUID, code string) (*model.Cart, error)
}

// CheckoutService converts a cart into an order.
type CheckoutService interface {
	Checkout(ctx context.Context, actor model.Actor, req *model.CheckoutRequest) (*model.Order, error)
}

// OrderService defines operations on placed orders.
type OrderService interface {
	GetOrder(ctx context.Context, actor model.Actor, orderID uuid.UUID) (*model.Order, error)
	ListOrders(ctx context.Context, actor model.Actor, limit, offset int) ([]model.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status model.OrderStatus) (*model.Order, error)
	CancelOrder(ctx context.Context, actor model.Actor, orderID uuid.UUID) (*model.Order, error)
}

// InventoryService exposes stock levels and restocking.
type InventoryService interface {
	GetStock(ctx context.Context, productID string) (*model.StockLevel, error)
	Restock(ctx context.Context, productID string, quantity int) (*model.StockLevel, error)
}

// AddressService stores addresses that checkout can later reference by id.
type AddressService interface {
	SaveAddress(ctx context.Context, userID string, addr *model.Address) (*model.SavedAddress, error)
}
