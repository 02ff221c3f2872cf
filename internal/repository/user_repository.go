package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"checkout-core/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type userDirectory struct {
	logger zerolog.Logger
}

// NewUserDirectory creates a UserDirectory backed by the customers and customer_orders tables.
func NewUserDirectory(logger zerolog.Logger) UserDirectory {
	return &userDirectory{logger: logger.With().Str("repository", "user").Logger()}
}

func (d *userDirectory) LinkCart(ctx context.Context, tx pgx.Tx, userID string, cartID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO customers (user_id, cart_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET cart_id = EXCLUDED.cart_id
	`, userID, cartID)
	if err != nil {
		d.logger.Error().Err(err).Str("user_id", userID).Msg("failed to link cart")
		return fmt.Errorf("failed to link cart: %w", err)
	}
	return nil
}

func (d *userDirectory) UnlinkCart(ctx context.Context, tx pgx.Tx, userID string) error {
	_, err := tx.Exec(ctx, `UPDATE customers SET cart_id = NULL WHERE user_id = $1`, userID)
	if err != nil {
		d.logger.Error().Err(err).Str("user_id", userID).Msg("failed to unlink cart")
		return fmt.Errorf("failed to unlink cart: %w", err)
	}
	return nil
}

func (d *userDirectory) AppendOrder(ctx context.Context, tx pgx.Tx, userID string, orderID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO customer_orders (user_id, order_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, userID, orderID)
	if err != nil {
		d.logger.Error().Err(err).Str("user_id", userID).Str("order_id", orderID.String()).Msg("failed to append order")
		return fmt.Errorf("failed to append order to history: %w", err)
	}
	return nil
}

type addressBook struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewAddressBook creates a PostgreSQL-backed AddressBook.
func NewAddressBook(pool *pgxpool.Pool, logger zerolog.Logger) AddressBook {
	return &addressBook{pool: pool, logger: logger.With().Str("repository", "address").Logger()}
}

func (b *addressBook) ResolveAddress(ctx context.Context, addressID uuid.UUID, userID string) (*model.Address, error) {
	var a model.Address
	err := b.pool.QueryRow(ctx, `
		SELECT line1, line2, city, state, postal_code, country
		FROM addresses
		WHERE id = $1 AND user_id = $2
	`, addressID, userID).Scan(&a.Line1, &a.Line2, &a.City, &a.State, &a.PostalCode, &a.Country)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		b.logger.Error().Err(err).Str("address_id", addressID.String()).Msg("failed to resolve address")
		return nil, fmt.Errorf("failed to resolve address: %w", err)
	}
	return &a, nil
}

func (b *addressBook) SaveAddress(ctx context.Context, userID string, addr model.Address) (*model.SavedAddress, error) {
	saved := &model.SavedAddress{
		ID:        uuid.New(),
		UserID:    userID,
		Address:   addr,
		CreatedAt: time.Now().UTC(),
	}
	_, err := b.pool.Exec(ctx, `
		INSERT INTO addresses (id, user_id, line1, line2, city, state, postal_code, country, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, saved.ID, userID, addr.Line1, addr.Line2, addr.City, addr.State, addr.PostalCode, addr.Country, saved.CreatedAt)
	if err != nil {
		b.logger.Error().Err(err).Str("user_id", userID).Msg("failed to save address")
		return nil, fmt.Errorf("failed to save address: %w", err)
	}
	return saved, nil
}
