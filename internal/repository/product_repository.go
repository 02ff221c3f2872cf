package repository

import (
	"context"
	"errors"
	"fmt"

	"checkout-core/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// productRepository implements ProductRepository and StockLedger using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

// GetByID retrieves a single product by its ID.
func (r *productRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	query := `
		SELECT id, name, price, stock, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	var p model.Product
	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("product_id", id).Msg("product not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("product_id", id).Msg("failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return &p, nil
}

// Decrement removes qty units in one conditional statement. Concurrent callers
// serialise on the row lock, and the stock >= qty guard is re-evaluated against
// the committed value, so the ledger cannot oversell.
func (r *productRepository) Decrement(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return model.ErrInvalidQuantity.WithOp("stock.decrement")
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE products
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
	`, productID, qty)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", productID).Int("quantity", qty).Msg("failed to decrement stock")
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	if tag.RowsAffected() == 1 {
		r.logger.Debug().Str("product_id", productID).Int("quantity", qty).Msg("stock decremented")
		return nil
	}

	var stock int
	err = r.pool.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrProductNotFound.WithOp("stock.decrement")
	}
	if err != nil {
		return fmt.Errorf("failed to read stock: %w", err)
	}

	r.logger.Warn().
		Str("product_id", productID).
		Int("requested", qty).
		Int("available", stock).
		Msg("insufficient stock")
	return model.ErrInsufficientStock.WithOp("stock.decrement").
		Withf("Insufficient stock for product %s: requested %d, available %d", productID, qty, stock)
}

// Increment adds qty units back.
func (r *productRepository) Increment(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return model.ErrInvalidQuantity.WithOp("stock.increment")
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE products
		SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1
	`, productID, qty)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", productID).Int("quantity", qty).Msg("failed to increment stock")
		return fmt.Errorf("failed to increment stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrProductNotFound.WithOp("stock.increment")
	}

	r.logger.Debug().Str("product_id", productID).Int("quantity", qty).Msg("stock incremented")
	return nil
}
