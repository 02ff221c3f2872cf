package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "Pending"
	StatusProcessing OrderStatus = "Processing"
	StatusShipped    OrderStatus = "Shipped"
	StatusDelivered  OrderStatus = "Delivered"
	StatusCancelled  OrderStatus = "Cancelled"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Cancellable reports whether an order in status s may still be cancelled.
func (s OrderStatus) Cancellable() bool {
	return s == StatusPending || s == StatusProcessing || s == StatusShipped
}

// Order is an immutable checkout record; only Status changes after creation.
type Order struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	UserID     string          `json:"userId" db:"user_id"`
	Items      []OrderItem     `json:"items"`
	Subtotal   decimal.Decimal `json:"subtotal" db:"subtotal"`
	Discount   decimal.Decimal `json:"discount" db:"discount"`
	TotalPrice decimal.Decimal `json:"totalPrice" db:"total_price"`
	CouponCode *string         `json:"couponCode,omitempty" db:"coupon_code"`
	Status     OrderStatus     `json:"status" db:"status"`
	AddressID  *uuid.UUID      `json:"addressId,omitempty" db:"address_id"`
	Address    *Address        `json:"address,omitempty" db:"address"`
	CreatedAt  time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time       `json:"updatedAt" db:"updated_at"`
}

// OrderItem is a frozen line copied from the cart at checkout.
type OrderItem struct {
	ID         uuid.UUID       `json:"-" db:"id"`
	OrderID    uuid.UUID       `json:"-" db:"order_id"`
	ProductID  string          `json:"productId" db:"product_id"`
	Quantity   int             `json:"quantity" db:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice" db:"unit_price"`
	Attributes Attributes      `json:"attributes,omitempty" db:"attributes"`
}

// CheckoutRequest represents the request payload for converting a cart into an order.
// Exactly one of AddressID and Address must be set.
type CheckoutRequest struct {
	CartID         uuid.UUID  `json:"cartId"`
	AddressID      *uuid.UUID `json:"addressId,omitempty"`
	Address        *Address   `json:"address,omitempty"`
	IdempotencyKey string     `json:"-"`
}

// UpdateStatusRequest represents the request payload for an order status change.
type UpdateStatusRequest struct {
	Status OrderStatus `json:"status" validate:"required"`
}

// OrderEvent is an outbox record describing an order change for downstream consumers.
type OrderEvent struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	AggregateID uuid.UUID  `json:"aggregateId" db:"aggregate_id"`
	EventType   string     `json:"eventType" db:"event_type"`
	Payload     []byte     `json:"payload" db:"payload"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	PublishedAt *time.Time `json:"publishedAt,omitempty" db:"published_at"`
}

// Order event types.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)
