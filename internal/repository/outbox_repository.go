package repository

import (
	"context"
	"fmt"

	"checkout-core/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type outboxRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOutboxRepository creates the order_events outbox store.
func NewOutboxRepository(pool *pgxpool.Pool, logger zerolog.Logger) OutboxRepository {
	return &outboxRepository{pool: pool, logger: logger.With().Str("repository", "outbox").Logger()}
}

// Enqueue records an event in the caller's transaction so it commits or rolls back with the order change.
func (r *outboxRepository) Enqueue(ctx context.Context, tx pgx.Tx, event *model.OrderEvent) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO order_events (id, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, event.ID, event.AggregateID, event.EventType, string(event.Payload), event.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("event_type", event.EventType).Msg("failed to enqueue event")
		return fmt.Errorf("failed to enqueue order event: %w", err)
	}
	return nil
}

func (r *outboxRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := beginTx(ctx, r.pool)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

func (r *outboxRepository) FetchUnpublished(ctx context.Context, tx pgx.Tx, limit int) ([]model.OrderEvent, error) {
	rows, err := conn(r.pool, tx).Query(ctx, `
		SELECT id, aggregate_id, event_type, payload::text, created_at
		FROM order_events
		WHERE published_at IS NULL
		ORDER BY created_at, id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to fetch unpublished events")
		return nil, fmt.Errorf("failed to fetch unpublished events: %w", err)
	}
	defer rows.Close()

	var events []model.OrderEvent
	for rows.Next() {
		var e model.OrderEvent
		var payload string
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Payload = []byte(payload)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

func (r *outboxRepository) MarkPublished(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := conn(r.pool, tx).Exec(ctx, `UPDATE order_events SET published_at = NOW() WHERE id = ANY($1)`, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to mark events published")
		return fmt.Errorf("failed to mark events published: %w", err)
	}
	return nil
}
