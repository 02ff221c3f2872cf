// Package publisher relays committed order events from the outbox table to Kafka.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"checkout-core/internal/model"
	"checkout-core/internal/repository"
	"checkout-core/internal/telemetry"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the poller uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter builds a writer for the order events topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

// OutboxPoller publishes unpublished order events in creation order. Events
// are delivered at least once; consumers dedupe on the event id header.
type OutboxPoller struct {
	outbox    repository.OutboxRepository
	writer    MessageWriter
	metrics   *telemetry.Metrics
	interval  time.Duration
	batchSize int
	logger    zerolog.Logger
}

// NewOutboxPoller creates a poller.
func NewOutboxPoller(outbox repository.OutboxRepository, writer MessageWriter, metrics *telemetry.Metrics, interval time.Duration, batchSize int, logger zerolog.Logger) *OutboxPoller {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxPoller{
		outbox:    outbox,
		writer:    writer,
		metrics:   metrics,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger.With().Str("component", "outbox-poller").Logger(),
	}
}

// Run polls until ctx is cancelled, then closes the writer.
func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	defer func() {
		if err := p.writer.Close(); err != nil {
			p.logger.Warn().Err(err).Msg("failed to close kafka writer")
		}
	}()

	p.logger.Info().Dur("interval", p.interval).Msg("outbox poller started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("outbox poller stopped")
			return
		case <-ticker.C:
			if _, err := p.PublishBatch(ctx); err != nil && ctx.Err() == nil {
				p.logger.Error().Err(err).Msg("outbox publish failed")
			}
		}
	}
}

// PublishBatch sends one batch of pending events and marks them published.
// The batch stays row-locked until it is marked, so pollers running in other
// replicas skip it. It returns the number of events published.
func (p *OutboxPoller) PublishBatch(ctx context.Context) (int, error) {
	tx, err := p.outbox.BeginTx(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			p.logger.Warn().Err(err).Msg("failed to release outbox batch")
		}
	}()

	events, err := p.outbox.FetchUnpublished(ctx, tx, p.batchSize)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	msgs := make([]kafka.Message, len(events))
	ids := make([]uuid.UUID, len(events))
	for i, event := range events {
		msgs[i] = toMessage(event)
		ids[i] = event.ID
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.metrics.OutboxFailures.Add(float64(len(events)))
		return 0, err
	}

	// A failure here republishes the batch on the next tick.
	if err := p.outbox.MarkPublished(ctx, tx, ids); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit outbox batch: %w", err)
	}

	p.metrics.OutboxPublished.Add(float64(len(events)))
	p.logger.Debug().Int("count", len(events)).Msg("order events published")
	return len(events), nil
}

func toMessage(event model.OrderEvent) kafka.Message {
	return kafka.Message{
		Key:   []byte(event.AggregateID.String()),
		Value: event.Payload,
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.ID.String())},
		},
	}
}
