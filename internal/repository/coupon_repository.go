package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"checkout-core/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type couponRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
	now    func() time.Time
}

// NewCouponRepository creates a new PostgreSQL-backed coupon repository.
func NewCouponRepository(pool *pgxpool.Pool, logger zerolog.Logger) CouponRepository {
	return &couponRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "coupon").Logger(),
		now:    time.Now,
	}
}

const couponColumns = `code, discount_type, discount_value, expiration_date, max_usage, usage_count, min_purchase_amount, created_at`

func scanCoupon(row pgx.Row) (*model.Coupon, error) {
	var c model.Coupon
	err := row.Scan(&c.Code, &c.DiscountType, &c.DiscountValue, &c.ExpirationDate,
		&c.MaxUsage, &c.UsageCount, &c.MinPurchaseAmount, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *couponRepository) Create(ctx context.Context, coupon *model.Coupon) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO coupons (`+couponColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, coupon.Code, coupon.DiscountType, coupon.DiscountValue, coupon.ExpirationDate,
		coupon.MaxUsage, coupon.UsageCount, coupon.MinPurchaseAmount, coupon.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrCouponExists.WithOp("coupon.create")
		}
		r.logger.Error().Err(err).Str("coupon", coupon.Code).Msg("failed to create coupon")
		return fmt.Errorf("failed to create coupon: %w", err)
	}

	r.logger.Debug().Str("coupon", coupon.Code).Msg("coupon created")
	return nil
}

func (r *couponRepository) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	c, err := scanCoupon(r.pool.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE code = $1`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("coupon", code).Msg("failed to query coupon")
		return nil, fmt.Errorf("failed to query coupon: %w", err)
	}
	return c, nil
}

// Redeem claims one use of the coupon. Two concurrent redemptions of the last
// use are serialised by the row lock and only one sees usage_count < max_usage.
func (r *couponRepository) Redeem(ctx context.Context, tx pgx.Tx, code string) (*model.Coupon, error) {
	c, err := scanCoupon(tx.QueryRow(ctx, `
		UPDATE coupons
		SET usage_count = usage_count + 1
		WHERE code = $1
		  AND expiration_date > $2
		  AND (max_usage = 0 OR usage_count < max_usage)
		RETURNING `+couponColumns, code, r.now()))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error().Err(err).Str("coupon", code).Msg("failed to redeem coupon")
		return nil, fmt.Errorf("failed to redeem coupon: %w", err)
	}

	c, err = scanCoupon(tx.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE code = $1`, code))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, model.ErrCouponNotFound.WithOp("coupon.redeem")
	case err != nil:
		return nil, fmt.Errorf("failed to query coupon: %w", err)
	case c.IsExpired(r.now()):
		return nil, model.ErrCouponExpired.WithOp("coupon.redeem")
	default:
		return nil, model.ErrUsageExceeded.WithOp("coupon.redeem")
	}
}
