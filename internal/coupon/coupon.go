// Package coupon bulk-imports coupon definitions from gzipped JSON-lines files
// stored locally or in S3.
package coupon

import (
	"context"

	"checkout-core/internal/model"
)

// Loader reads a gzipped coupon definition file. Each non-blank line is one
// JSON-encoded model.CreateCouponRequest.
type Loader interface {
	Load(ctx context.Context, path string) ([]model.CreateCouponRequest, error)
}

// Creator stores a single coupon definition. service.CouponService satisfies it.
type Creator interface {
	CreateCoupon(ctx context.Context, req *model.CreateCouponRequest) (*model.Coupon, error)
}
