// Package pricing computes cart totals. It performs no I/O; callers pass the
// current catalog price for every line.
package pricing

import (
	"checkout-core/internal/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Line is one priced cart line.
type Line struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// LinesFromItems converts populated cart items into priced lines.
func LinesFromItems(items []model.CartItem) []Line {
	lines := make([]Line, len(items))
	for i, it := range items {
		lines[i] = Line{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}
	return lines
}

// LineTotal returns quantity × unit price.
func LineTotal(l Line) decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Subtotal returns Σ quantity × unit price.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(LineTotal(l))
	}
	return sum
}

// Discount returns the coupon discount on subtotal, rounded to cents and clamped
// to [0, subtotal]. A nil coupon yields zero.
func Discount(subtotal decimal.Decimal, coupon *model.Coupon) decimal.Decimal {
	if coupon == nil || !subtotal.IsPositive() {
		return decimal.Zero
	}

	var d decimal.Decimal
	switch coupon.DiscountType {
	case model.DiscountPercentage:
		d = subtotal.Mul(coupon.DiscountValue).Div(hundred).Round(2)
	case model.DiscountFixed:
		d = coupon.DiscountValue
	default:
		return decimal.Zero
	}

	if d.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(d, subtotal)
}

// Compute returns subtotal, discount and total for lines with an optional coupon.
func Compute(lines []Line, coupon *model.Coupon) model.CartTotals {
	sub := Subtotal(lines)
	disc := Discount(sub, coupon)
	return model.CartTotals{
		Subtotal: sub,
		Discount: disc,
		Total:    sub.Sub(disc),
	}
}
