package repository

import (
	"context"
	"errors"
	"fmt"

	"checkout-core/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type cartRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool *pgxpool.Pool, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

func (r *cartRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := beginTx(ctx, r.pool)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

const cartColumns = `id, user_id, coupon_code, subtotal, discount, total_price, version, created_at, updated_at`

func (r *cartRepository) GetByUserID(ctx context.Context, tx pgx.Tx, userID string) (*model.Cart, error) {
	return r.load(ctx, tx, `SELECT `+cartColumns+` FROM carts WHERE user_id = $1`, userID)
}

func (r *cartRepository) GetByID(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) (*model.Cart, error) {
	return r.load(ctx, tx, `SELECT `+cartColumns+` FROM carts WHERE id = $1`, cartID)
}

func (r *cartRepository) load(ctx context.Context, tx pgx.Tx, query string, arg any) (*model.Cart, error) {
	db := conn(r.pool, tx)

	var c model.Cart
	err := db.QueryRow(ctx, query, arg).Scan(
		&c.ID, &c.UserID, &c.CouponApplied, &c.Subtotal, &c.Discount, &c.TotalPrice,
		&c.Version, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Interface("key", arg).Msg("failed to query cart")
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}

	rows, err := db.Query(ctx, `
		SELECT ci.id, ci.cart_id, ci.product_id, p.name, p.price, ci.quantity, ci.attributes
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at, ci.id
	`, c.ID)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", c.ID.String()).Msg("failed to query cart items")
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	c.Items = []model.CartItem{}
	for rows.Next() {
		var item model.CartItem
		if err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.ProductName,
			&item.UnitPrice, &item.Quantity, &item.Attributes); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan cart item row")
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		c.Items = append(c.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	c.IsActive = len(c.Items) > 0
	return &c, nil
}

func (r *cartRepository) Create(ctx context.Context, tx pgx.Tx, cart *model.Cart) (bool, error) {
	tag, err := tx.Exec(ctx, `
		INSERT INTO carts (id, user_id, subtotal, discount, total_price, version, created_at, updated_at)
		VALUES ($1, $2, 0, 0, 0, $3, $4, $4)
		ON CONFLICT (user_id) DO NOTHING
	`, cart.ID, cart.UserID, cart.Version, cart.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", cart.UserID).Msg("failed to create cart")
		return false, fmt.Errorf("failed to create cart: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *cartRepository) InsertItem(ctx context.Context, tx pgx.Tx, item *model.CartItem) error {
	attrs := item.Attributes
	if attrs == nil {
		attrs = model.Attributes{}
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, attributes, attributes_key)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, item.ID, item.CartID, item.ProductID, item.Quantity, attrs, attrs.Key())
	if err != nil {
		if isUniqueViolation(err) {
			// The same line was inserted by a concurrent writer.
			return ErrVersionConflict
		}
		r.logger.Error().Err(err).Str("cart_id", item.CartID.String()).Msg("failed to insert cart item")
		return fmt.Errorf("failed to insert cart item: %w", err)
	}
	return nil
}

func (r *cartRepository) UpdateItemQuantity(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, quantity int) error {
	tag, err := tx.Exec(ctx, `UPDATE cart_items SET quantity = $2 WHERE id = $1`, itemID, quantity)
	if err != nil {
		r.logger.Error().Err(err).Str("item_id", itemID.String()).Msg("failed to update cart item")
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *cartRepository) DeleteItem(ctx context.Context, tx pgx.Tx, itemID uuid.UUID) error {
	tag, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		r.logger.Error().Err(err).Str("item_id", itemID.String()).Msg("failed to delete cart item")
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *cartRepository) SaveTotals(ctx context.Context, tx pgx.Tx, cartID uuid.UUID, expectedVersion int64, totals model.CartTotals) (int64, error) {
	var version int64
	err := tx.QueryRow(ctx, `
		UPDATE carts
		SET subtotal = $3, discount = $4, total_price = $5, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING version
	`, cartID, expectedVersion, totals.Subtotal, totals.Discount, totals.Total).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("cart_id", cartID.String()).Int64("expected_version", expectedVersion).Msg("cart version moved")
			return 0, ErrVersionConflict
		}
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to save cart totals")
		return 0, fmt.Errorf("failed to save cart totals: %w", err)
	}
	return version, nil
}

func (r *cartRepository) AttachCoupon(ctx context.Context, tx pgx.Tx, cartID uuid.UUID, expectedVersion int64, code string, totals model.CartTotals) (int64, error) {
	var version int64
	err := tx.QueryRow(ctx, `
		UPDATE carts
		SET coupon_code = $3, subtotal = $4, discount = $5, total_price = $6,
		    version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2 AND coupon_code IS NULL
		RETURNING version
	`, cartID, expectedVersion, code, totals.Subtotal, totals.Discount, totals.Total).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrVersionConflict
		}
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Str("coupon", code).Msg("failed to attach coupon")
		return 0, fmt.Errorf("failed to attach coupon: %w", err)
	}
	return version, nil
}

func (r *cartRepository) Delete(ctx context.Context, tx pgx.Tx, cartID uuid.UUID, expectedVersion int64) error {
	tag, err := tx.Exec(ctx, `DELETE FROM carts WHERE id = $1 AND version = $2`, cartID, expectedVersion)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to delete cart")
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	return nil
}
