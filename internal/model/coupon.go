package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType selects how a coupon's DiscountValue is interpreted.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Allowed discount value ranges per type.
var (
	MaxPercentageDiscount = decimal.NewFromInt(100)
	MinFixedDiscount      = decimal.NewFromInt(1)
	MaxFixedDiscount      = decimal.NewFromInt(1000)
)

// Coupon is a discount rule. UsageCount never exceeds MaxUsage when MaxUsage > 0.
type Coupon struct {
	Code              string          `json:"code" db:"code"`
	DiscountType      DiscountType    `json:"discountType" db:"discount_type"`
	DiscountValue     decimal.Decimal `json:"discountValue" db:"discount_value"`
	ExpirationDate    time.Time       `json:"expirationDate" db:"expiration_date"`
	MaxUsage          int             `json:"maxUsage" db:"max_usage"`
	UsageCount        int             `json:"usageCount" db:"usage_count"`
	MinPurchaseAmount decimal.Decimal `json:"minPurchaseAmount" db:"min_purchase_amount"`
	CreatedAt         time.Time       `json:"createdAt" db:"created_at"`
}

// IsExpired reports whether the coupon has expired at now. A coupon is usable
// strictly before its expiration date.
func (c *Coupon) IsExpired(now time.Time) bool {
	return !c.ExpirationDate.After(now)
}

// IsExhausted reports whether a capped coupon has no uses left.
func (c *Coupon) IsExhausted() bool {
	return c.MaxUsage > 0 && c.UsageCount >= c.MaxUsage
}

// CreateCouponRequest represents the request payload for defining a coupon.
type CreateCouponRequest struct {
	Code              string          `json:"code" validate:"required,min=3,max=32,alphanum"`
	DiscountType      DiscountType    `json:"discountType" validate:"required,oneof=percentage fixed"`
	DiscountValue     decimal.Decimal `json:"discountValue"`
	ExpirationDate    time.Time       `json:"expirationDate" validate:"required"`
	MaxUsage          int             `json:"maxUsage" validate:"gte=0"`
	MinPurchaseAmount decimal.Decimal `json:"minPurchaseAmount"`
}
