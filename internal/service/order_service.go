package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"checkout-core/internal/model"
	"checkout-core/internal/repository"
	"checkout-core/internal/telemetry"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

// orderService implements OrderService.
type orderService struct {
	orders  repository.OrderRepository
	outbox  repository.OutboxRepository
	metrics *telemetry.Metrics
	logger  zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orders repository.OrderRepository,
	outbox repository.OutboxRepository,
	metrics *telemetry.Metrics,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orders:  orders,
		outbox:  outbox,
		metrics: metrics,
		logger:  logger.With().Str("service", "order").Logger(),
	}
}

// GetOrder retrieves an order. Orders of other users are reported as not found
// unless the actor is an admin.
func (s *orderService) GetOrder(ctx context.Context, actor model.Actor, orderID uuid.UUID) (*model.Order, error) {
	const op = "order.get"

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to get order")
		return nil, model.InternalError(op, err)
	}
	if order == nil || !canSee(actor, order) {
		s.logger.Debug().Str("order_id", orderID.String()).Str("user_id", actor.UserID).Msg("order not found")
		return nil, model.ErrOrderNotFound.WithOp(op)
	}
	return order, nil
}

// ListOrders returns the actor's orders, newest first.
func (s *orderService) ListOrders(ctx context.Context, actor model.Actor, limit, offset int) ([]model.Order, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	orders, err := s.orders.ListByUser(ctx, actor.UserID, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).
			Str("user_id", actor.UserID).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to list orders")
		return nil, model.InternalError("order.list", err)
	}

	s.logger.Debug().
		Str("user_id", actor.UserID).
		Int("count", len(orders)).
		Msg("retrieved orders")
	return orders, nil
}

// UpdateStatus moves an order to any non-cancelled status. Cancelled orders are terminal.
func (s *orderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	const op = "order.update_status"

	if !status.Valid() {
		return nil, model.ErrInvalidStatus.WithOp(op).Withf("Unknown order status %q", status)
	}
	if status == model.StatusCancelled {
		return nil, model.ValidationError(op, "use the cancel operation to cancel an order")
	}

	order, err := s.changeStatus(ctx, op, orderID, func(tx pgx.Tx) (*model.Order, error) {
		return s.orders.UpdateStatus(ctx, tx, orderID, status)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("order_id", orderID.String()).Str("status", string(status)).Msg("order status updated")
	return order, nil
}

// CancelOrder cancels an order owned by the actor. Cancelling twice fails with ErrAlreadyCancelled.
func (s *orderService) CancelOrder(ctx context.Context, actor model.Actor, orderID uuid.UUID) (*model.Order, error) {
	const op = "order.cancel"

	if _, err := s.GetOrder(ctx, actor, orderID); err != nil {
		return nil, err
	}

	order, err := s.changeStatus(ctx, op, orderID, func(tx pgx.Tx) (*model.Order, error) {
		return s.orders.Cancel(ctx, tx, orderID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("order_id", orderID.String()).Str("user_id", actor.UserID).Msg("order cancelled")
	return order, nil
}

// changeStatus runs write and enqueues the resulting status event in one transaction.
func (s *orderService) changeStatus(ctx context.Context, op string, orderID uuid.UUID, write func(pgx.Tx) (*model.Order, error)) (*model.Order, error) {
	tx, err := s.orders.BeginTx(ctx)
	if err != nil {
		return nil, model.InternalError(op, err)
	}
	defer rollback(ctx, tx, s.logger)

	order, err := write(tx)
	if err != nil {
		if model.KindOf(err) == model.KindInternal {
			s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to change order status")
		} else {
			s.logger.Warn().Str("order_id", orderID.String()).Str("reason", model.CodeOf(err)).Msg("order status change rejected")
		}
		return nil, asDomain(op, err)
	}

	event, err := newOrderEvent(model.EventOrderStatusChanged, order)
	if err != nil {
		return nil, model.InternalError(op, err)
	}
	if err := s.outbox.Enqueue(ctx, tx, event); err != nil {
		return nil, model.InternalError(op, err)
	}
	if err := tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to commit status change")
		return nil, model.InternalError(op, fmt.Errorf("failed to commit status change: %w", err))
	}

	s.metrics.OrderStatusChanges.WithLabelValues(string(order.Status)).Inc()

	// The status write returns the order row only; reload to include items.
	if full, err := s.orders.GetByID(ctx, orderID); err == nil && full != nil {
		return full, nil
	}
	return order, nil
}

func canSee(actor model.Actor, order *model.Order) bool {
	return actor.IsAdmin() || order.UserID == actor.UserID
}

// orderEventPayload is the body of every order event.
type orderEventPayload struct {
	OrderID    uuid.UUID         `json:"orderId"`
	UserID     string            `json:"userId"`
	Status     model.OrderStatus `json:"status"`
	TotalPrice string            `json:"totalPrice"`
	CouponCode *string           `json:"couponCode,omitempty"`
	Items      []model.OrderItem `json:"items,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}

func newOrderEvent(eventType string, order *model.Order) (*model.OrderEvent, error) {
	now := time.Now().UTC()
	payload := orderEventPayload{
		OrderID:    order.ID,
		UserID:     order.UserID,
		Status:     order.Status,
		TotalPrice: order.TotalPrice.StringFixed(2),
		CouponCode: order.CouponCode,
		OccurredAt: now,
	}
	if eventType == model.EventOrderCreated {
		payload.Items = order.Items
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", eventType, err)
	}
	return &model.OrderEvent{
		ID:          uuid.New(),
		AggregateID: order.ID,
		EventType:   eventType,
		Payload:     body,
		CreatedAt:   now,
	}, nil
}
