package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is a user's single active cart. TotalPrice is always Subtotal minus Discount
// as of the last write; Version increases on every write and guards concurrent updates.
type Cart struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	UserID        string          `json:"userId" db:"user_id"`
	Items         []CartItem      `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal" db:"subtotal"`
	Discount      decimal.Decimal `json:"discount" db:"discount"`
	TotalPrice    decimal.Decimal `json:"totalPrice" db:"total_price"`
	IsActive      bool            `json:"isActive"`
	CouponApplied *string         `json:"couponApplied,omitempty" db:"coupon_code"`
	Version       int64           `json:"version" db:"version"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time       `json:"updatedAt" db:"updated_at"`
}

// CartItem is one line of a cart. ProductName, UnitPrice and LineTotal are read
// from the catalog at load time.
type CartItem struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	CartID      uuid.UUID       `json:"-" db:"cart_id"`
	ProductID   string          `json:"productId" db:"product_id"`
	ProductName string          `json:"productName,omitempty"`
	Quantity    int             `json:"quantity" db:"quantity"`
	Attributes  Attributes      `json:"attributes,omitempty" db:"attributes"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// EmptyCart is the shape returned for a user without a cart.
func EmptyCart(userID string) *Cart {
	return &Cart{
		UserID:     userID,
		Items:      []CartItem{},
		Subtotal:   decimal.Zero,
		Discount:   decimal.Zero,
		TotalPrice: decimal.Zero,
	}
}

// FindItem returns the item with the given id.
func (c *Cart) FindItem(itemID uuid.UUID) (*CartItem, bool) {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return &c.Items[i], true
		}
	}
	return nil, false
}

// FindLine returns the item for a (product, attributes) pair.
func (c *Cart) FindLine(productID string, attrs Attributes) (*CartItem, bool) {
	key := attrs.Key()
	for i := range c.Items {
		if c.Items[i].ProductID == productID && c.Items[i].Attributes.Key() == key {
			return &c.Items[i], true
		}
	}
	return nil, false
}

// CartTotals is the derived price state written alongside a version bump.
type CartTotals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// ItemAction is the quantity adjustment requested by UpdateItem.
type ItemAction string

const (
	ActionIncrement ItemAction = "increment"
	ActionDecrement ItemAction = "decrement"
)

// AddItemRequest represents the request payload for adding a product to the cart.
type AddItemRequest struct {
	ProductID  string     `json:"productId" validate:"required"`
	Quantity   int        `json:"quantity"`
	Attributes Attributes `json:"attributes,omitempty"`
}

// UpdateItemRequest represents the request payload for adjusting an item quantity.
type UpdateItemRequest struct {
	Action ItemAction `json:"action" validate:"required,oneof=increment decrement"`
}

// ApplyCouponRequest represents the request payload for applying a coupon to a cart.
type ApplyCouponRequest struct {
	Code string `json:"code" validate:"required"`
}
