package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"checkout-core/internal/model"
	"checkout-core/internal/pricing"
	"checkout-core/internal/repository"
	"checkout-core/internal/telemetry"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// couponService implements CouponService.
type couponService struct {
	coupons    repository.CouponRepository
	carts      repository.CartRepository
	metrics    *telemetry.Metrics
	logger     zerolog.Logger
	maxRetries int
	now        func() time.Time
}

// NewCouponService creates a new coupon service.
func NewCouponService(
	coupons repository.CouponRepository,
	carts repository.CartRepository,
	metrics *telemetry.Metrics,
	maxRetries int,
	logger zerolog.Logger,
) CouponService {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &couponService{
		coupons:    coupons,
		carts:      carts,
		metrics:    metrics,
		logger:     logger.With().Str("service", "coupon").Logger(),
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

// NormalizeCode canonicalises a coupon code for storage and lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CreateCoupon validates and stores a coupon definition.
func (s *couponService) CreateCoupon(ctx context.Context, req *model.CreateCouponRequest) (*model.Coupon, error) {
	const op = "coupon.create"

	if req == nil {
		return nil, model.ValidationError(op, "request body is required")
	}
	r := *req
	r.Code = NormalizeCode(r.Code)

	if err := validateStruct(op, &r); err != nil {
		return nil, err
	}
	if err := validateDiscount(op, r.DiscountType, r.DiscountValue); err != nil {
		s.logger.Warn().
			Str("coupon", r.Code).
			Str("discount_type", string(r.DiscountType)).
			Str("discount_value", r.DiscountValue.String()).
			Msg("discount value out of range")
		return nil, err
	}
	if r.MinPurchaseAmount.IsNegative() {
		return nil, model.ValidationError(op, "minPurchaseAmount must not be negative")
	}

	now := s.now().UTC()
	if !r.ExpirationDate.After(now) {
		return nil, model.ValidationError(op, "expirationDate must be in the future")
	}

	coupon := &model.Coupon{
		Code:              r.Code,
		DiscountType:      r.DiscountType,
		DiscountValue:     r.DiscountValue,
		ExpirationDate:    r.ExpirationDate.UTC(),
		MaxUsage:          r.MaxUsage,
		MinPurchaseAmount: r.MinPurchaseAmount,
		CreatedAt:         now,
	}
	if err := s.coupons.Create(ctx, coupon); err != nil {
		if errors.Is(err, model.ErrCouponExists) {
			s.logger.Warn().Str("coupon", coupon.Code).Msg("duplicate coupon code")
		}
		return nil, asDomain(op, err)
	}

	s.logger.Info().
		Str("coupon", coupon.Code).
		Str("discount_type", string(coupon.DiscountType)).
		Str("discount_value", coupon.DiscountValue.String()).
		Int("max_usage", coupon.MaxUsage).
		Msg("coupon created")
	return coupon, nil
}

func validateDiscount(op string, kind model.DiscountType, value decimal.Decimal) error {
	switch kind {
	case model.DiscountPercentage:
		if value.IsNegative() || value.GreaterThan(model.MaxPercentageDiscount) {
			return model.ErrInvalidDiscount.WithOp(op).Withf("Percentage discount must be between 0 and %s", model.MaxPercentageDiscount)
		}
	case model.DiscountFixed:
		if value.LessThan(model.MinFixedDiscount) || value.GreaterThan(model.MaxFixedDiscount) {
			return model.ErrInvalidDiscount.WithOp(op).Withf("Fixed discount must be between %s and %s", model.MinFixedDiscount, model.MaxFixedDiscount)
		}
	default:
		return model.ErrInvalidDiscount.WithOp(op).Withf("Unknown discount type %q", kind)
	}
	return nil
}

// GetCoupon returns a coupon by code.
func (s *couponService) GetCoupon(ctx context.Context, code string) (*model.Coupon, error) {
	coupon, err := s.coupons.GetByCode(ctx, NormalizeCode(code))
	if err != nil {
		return nil, model.InternalError("coupon.get", err)
	}
	if coupon == nil {
		return nil, model.ErrCouponNotFound.WithOp("coupon.get")
	}
	return coupon, nil
}

// Validate checks a coupon without redeeming it.
func (s *couponService) Validate(ctx context.Context, code, userID string) (*model.Coupon, error) {
	const op = "coupon.validate"

	coupon, err := s.coupons.GetByCode(ctx, NormalizeCode(code))
	if err != nil {
		s.logger.Error().Err(err).Str("coupon", code).Msg("failed to load coupon")
		return nil, model.InternalError(op, err)
	}

	switch {
	case coupon == nil:
		err = model.ErrCouponNotFound.WithOp(op)
	case coupon.IsExpired(s.now()):
		err = model.ErrCouponExpired.WithOp(op)
	case coupon.IsExhausted():
		err = model.ErrUsageExceeded.WithOp(op)
	}
	if err != nil {
		s.logger.Debug().Str("coupon", code).Str("user_id", userID).Str("reason", model.CodeOf(err)).Msg("coupon rejected")
		return nil, err
	}
	return coupon, nil
}

// ApplyCoupon redeems one use of code and attaches it to the caller's cart.
// The usage increment and the cart write share one transaction, so a failure
// on either side leaves both untouched.
func (s *couponService) ApplyCoupon(ctx context.Context, userID string, cartID uuid.UUID, code string) (*model.Cart, error) {
	const op = "coupon.apply"

	code = NormalizeCode(code)
	if code == "" {
		return nil, model.ValidationError(op, "code is required")
	}

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		cart, err := s.tryApply(ctx, userID, cartID, code)
		if errors.Is(err, repository.ErrVersionConflict) {
			s.metrics.CartVersionRetries.WithLabelValues("apply_coupon").Inc()
			continue
		}
		if err != nil {
			s.metrics.CouponRedemptions.WithLabelValues(string(model.KindOf(err))).Inc()
			if model.KindOf(err) == model.KindInternal {
				s.logger.Error().Err(err).Str("cart_id", cartID.String()).Str("coupon", code).Msg("failed to apply coupon")
			} else {
				s.logger.Warn().Str("cart_id", cartID.String()).Str("coupon", code).Str("reason", model.CodeOf(err)).Msg("coupon not applied")
			}
			return nil, asDomain(op, err)
		}

		s.metrics.CouponRedemptions.WithLabelValues("applied").Inc()
		s.logger.Info().
			Str("cart_id", cartID.String()).
			Str("coupon", code).
			Str("discount", cart.Discount.String()).
			Str("total", cart.TotalPrice.String()).
			Msg("coupon applied")
		return cart, nil
	}

	s.metrics.CouponRedemptions.WithLabelValues(string(model.KindConflict)).Inc()
	return nil, model.ErrCartChanged.WithOp(op)
}

func (s *couponService) tryApply(ctx context.Context, userID string, cartID uuid.UUID, code string) (*model.Cart, error) {
	tx, err := s.carts.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback(ctx, tx, s.logger)

	cart, err := s.carts.GetByID(ctx, tx, cartID)
	if err != nil {
		return nil, err
	}
	if cart == nil || cart.UserID != userID {
		return nil, model.ErrCartNotFound
	}
	if cart.CouponApplied != nil {
		return nil, model.ErrCouponApplied
	}
	if len(cart.Items) == 0 {
		return nil, model.ErrEmptyCart
	}

	coupon, err := s.coupons.Redeem(ctx, tx, code)
	if err != nil {
		return nil, err
	}

	lines := pricing.LinesFromItems(cart.Items)
	totals := pricing.Compute(lines, coupon)
	if totals.Subtotal.LessThan(coupon.MinPurchaseAmount) {
		return nil, model.ErrMinimumPurchase.Withf("Cart subtotal %s is below the minimum purchase amount %s",
			totals.Subtotal.StringFixed(2), coupon.MinPurchaseAmount.StringFixed(2))
	}

	version, err := s.carts.AttachCoupon(ctx, tx, cart.ID, cart.Version, coupon.Code, totals)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit coupon application: %w", err)
	}

	fillLineTotals(cart)
	cart.CouponApplied = &coupon.Code
	cart.Version = version
	cart.Subtotal = totals.Subtotal
	cart.Discount = totals.Discount
	cart.TotalPrice = totals.Total
	return cart, nil
}
