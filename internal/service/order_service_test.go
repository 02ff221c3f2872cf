package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"checkout-core/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type orderFixture struct {
	orders *MockOrderRepository
	outbox *MockOutboxRepository
	tx     *MockTx
	svc    OrderService
}

func newOrderFixture() *orderFixture {
	f := &orderFixture{
		orders: new(MockOrderRepository),
		outbox: new(MockOutboxRepository),
		tx:     newMockTx(),
	}
	f.svc = NewOrderService(f.orders, f.outbox, newTestMetrics(), zerolog.Nop())
	return f
}

func testOrder(userID string, status model.OrderStatus) *model.Order {
	return &model.Order{
		ID:         uuid.New(),
		UserID:     userID,
		Status:     status,
		TotalPrice: dec("35"),
		Items:      []model.OrderItem{{ProductID: "P001", Quantity: 2, UnitPrice: dec("20")}},
	}
}

func TestOrderService_GetOrder(t *testing.T) {
	ctx := context.Background()
	order := testOrder("user-1", model.StatusPending)

	tests := []struct {
		name     string
		actor    model.Actor
		stored   *model.Order
		repoErr  error
		wantKind model.ErrorKind
	}{
		{name: "owner", actor: model.Actor{UserID: "user-1"}, stored: order},
		{name: "admin", actor: model.Actor{UserID: "ops", Role: model.RoleAdmin}, stored: order},
		{name: "other user", actor: model.Actor{UserID: "user-2"}, stored: order, wantKind: model.KindNotFound},
		{name: "missing", actor: model.Actor{UserID: "user-1"}, stored: nil, wantKind: model.KindNotFound},
		{name: "storage failure", actor: model.Actor{UserID: "user-1"}, repoErr: errors.New("timeout"), wantKind: model.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture()
			f.orders.On("GetByID", ctx, order.ID).Return(tt.stored, tt.repoErr)

			got, err := f.svc.GetOrder(ctx, tt.actor, order.ID)

			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, model.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, order.ID, got.ID)
		})
	}
}

func TestOrderService_ListOrders_ClampsPaging(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		limit      int
		offset     int
		wantLimit  int
		wantOffset int
	}{
		{name: "defaults", limit: 0, offset: -3, wantLimit: 10, wantOffset: 0},
		{name: "caps limit", limit: 500, offset: 20, wantLimit: 100, wantOffset: 20},
		{name: "passes through", limit: 25, offset: 5, wantLimit: 25, wantOffset: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture()
			f.orders.On("ListByUser", ctx, "user-1", tt.wantLimit, tt.wantOffset).Return([]model.Order{*testOrder("user-1", model.StatusPending)}, nil)

			orders, err := f.svc.ListOrders(ctx, model.Actor{UserID: "user-1"}, tt.limit, tt.offset)

			require.NoError(t, err)
			assert.Len(t, orders, 1)
			f.orders.AssertExpectations(t)
		})
	}
}

func TestOrderService_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("any non-cancelled status is accepted", func(t *testing.T) {
		for _, status := range []model.OrderStatus{model.StatusDelivered, model.StatusPending, model.StatusShipped, model.StatusProcessing} {
			f := newOrderFixture()
			order := testOrder("user-1", status)

			f.orders.On("BeginTx", ctx).Return(f.tx, nil)
			f.orders.On("UpdateStatus", ctx, f.tx, order.ID, status).Return(order, nil)
			f.outbox.On("Enqueue", ctx, f.tx, mock.MatchedBy(func(e *model.OrderEvent) bool {
				var payload map[string]any
				return e.EventType == model.EventOrderStatusChanged &&
					e.AggregateID == order.ID &&
					json.Unmarshal(e.Payload, &payload) == nil &&
					payload["status"] == string(status)
			})).Return(nil)
			f.orders.On("GetByID", ctx, order.ID).Return(order, nil)

			got, err := f.svc.UpdateStatus(ctx, order.ID, status)

			require.NoError(t, err, status)
			assert.Equal(t, status, got.Status)
			assert.True(t, f.tx.committed)
			f.outbox.AssertExpectations(t)
		}
	})

	t.Run("cancelled order is terminal", func(t *testing.T) {
		f := newOrderFixture()
		id := uuid.New()

		f.orders.On("BeginTx", ctx).Return(f.tx, nil)
		f.orders.On("UpdateStatus", ctx, f.tx, id, model.StatusShipped).Return(nil, model.ErrOrderClosed.WithOp("order.update_status"))

		_, err := f.svc.UpdateStatus(ctx, id, model.StatusShipped)

		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrOrderClosed)
		assert.Equal(t, model.KindConflict, model.KindOf(err))
		assert.False(t, f.tx.committed)
		f.outbox.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects unknown and cancelled targets", func(t *testing.T) {
		f := newOrderFixture()

		_, err := f.svc.UpdateStatus(ctx, uuid.New(), model.OrderStatus("Lost"))
		assert.ErrorIs(t, err, model.ErrInvalidStatus)

		_, err = f.svc.UpdateStatus(ctx, uuid.New(), model.StatusCancelled)
		assert.Equal(t, model.KindValidation, model.KindOf(err))

		f.orders.AssertNotCalled(t, "BeginTx", mock.Anything)
	})
}

func TestOrderService_CancelOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("owner cancels", func(t *testing.T) {
		f := newOrderFixture()
		order := testOrder("user-1", model.StatusProcessing)
		cancelled := *order
		cancelled.Status = model.StatusCancelled

		f.orders.On("GetByID", ctx, order.ID).Return(order, nil).Once()
		f.orders.On("BeginTx", ctx).Return(f.tx, nil)
		f.orders.On("Cancel", ctx, f.tx, order.ID).Return(&cancelled, nil)
		f.outbox.On("Enqueue", ctx, f.tx, mock.AnythingOfType("*model.OrderEvent")).Return(nil)
		f.orders.On("GetByID", ctx, order.ID).Return(&cancelled, nil).Once()

		got, err := f.svc.CancelOrder(ctx, model.Actor{UserID: "user-1"}, order.ID)

		require.NoError(t, err)
		assert.Equal(t, model.StatusCancelled, got.Status)
		assert.Len(t, got.Items, 1)
	})

	t.Run("second cancel fails", func(t *testing.T) {
		f := newOrderFixture()
		order := testOrder("user-1", model.StatusCancelled)

		f.orders.On("GetByID", ctx, order.ID).Return(order, nil)
		f.orders.On("BeginTx", ctx).Return(f.tx, nil)
		f.orders.On("Cancel", ctx, f.tx, order.ID).Return(nil, model.ErrAlreadyCancelled.WithOp("order.cancel"))

		_, err := f.svc.CancelOrder(ctx, model.Actor{UserID: "user-1"}, order.ID)

		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrAlreadyCancelled)
		assert.Equal(t, model.KindConflict, model.KindOf(err))
		assert.False(t, f.tx.committed)
	})

	t.Run("other user's order", func(t *testing.T) {
		f := newOrderFixture()
		order := testOrder("user-1", model.StatusPending)

		f.orders.On("GetByID", ctx, order.ID).Return(order, nil)

		_, err := f.svc.CancelOrder(ctx, model.Actor{UserID: "user-2"}, order.ID)

		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrOrderNotFound)
		f.orders.AssertNotCalled(t, "BeginTx", mock.Anything)
	})
}
