package handler

import (
	"errors"
	"net/http"
	"testing"

	"checkout-core/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestOrderHandler_List(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		expectService  bool
		limit          int
		offset         int
		mockReturn     []model.Order
		mockError      error
		expectedStatus int
	}{
		{name: "Default pagination", expectService: true, limit: 10, offset: 0, mockReturn: []model.Order{{ID: uuid.New()}}, expectedStatus: http.StatusOK},
		{name: "Custom pagination", query: "?limit=5&offset=10", expectService: true, limit: 5, offset: 10, expectedStatus: http.StatusOK},
		{name: "Invalid limit", query: "?limit=invalid", expectedStatus: http.StatusBadRequest},
		{name: "Invalid offset", query: "?offset=invalid", expectedStatus: http.StatusBadRequest},
		{name: "Service error", expectService: true, limit: 10, mockError: errors.New("database error"), expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockOrderService)
			if tt.expectService {
				svc.On("ListOrders", mock.Anything, customer, tt.limit, tt.offset).Return(tt.mockReturn, tt.mockError)
			}
			h := NewOrderHandler(svc, zerolog.Nop())

			w := serve(http.MethodGet, "/api/orders", "/api/orders"+tt.query, "", customer, h.List)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectService {
				svc.AssertExpectations(t)
			} else {
				svc.AssertNotCalled(t, "ListOrders", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}

	t.Run("no orders renders empty list", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("ListOrders", mock.Anything, customer, 10, 0).Return(nil, nil)
		h := NewOrderHandler(svc, zerolog.Nop())

		w := serve(http.MethodGet, "/api/orders", "/api/orders", "", customer, h.List)

		assert.JSONEq(t, `[]`, w.Body.String())
	})
}

func TestOrderHandler_GetByID(t *testing.T) {
	orderID := uuid.New()

	tests := []struct {
		name           string
		target         string
		mockReturn     *model.Order
		mockError      error
		expectService  bool
		expectedStatus int
	}{
		{name: "Found", target: orderID.String(), mockReturn: &model.Order{ID: orderID}, expectService: true, expectedStatus: http.StatusOK},
		{name: "Not visible", target: orderID.String(), mockError: model.ErrOrderNotFound, expectService: true, expectedStatus: http.StatusNotFound},
		{name: "Invalid ID", target: "abc", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockOrderService)
			if tt.expectService {
				svc.On("GetOrder", mock.Anything, customer, orderID).Return(tt.mockReturn, tt.mockError)
			}
			h := NewOrderHandler(svc, zerolog.Nop())

			w := serve(http.MethodGet, "/api/orders/{orderID}", "/api/orders/"+tt.target, "", customer, h.GetByID)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestOrderHandler_Cancel(t *testing.T) {
	orderID := uuid.New()
	pattern := "/api/orders/{orderID}/cancel"
	target := "/api/orders/" + orderID.String() + "/cancel"

	t.Run("cancelled", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("CancelOrder", mock.Anything, customer, orderID).Return(&model.Order{ID: orderID, Status: model.StatusCancelled}, nil)
		h := NewOrderHandler(svc, zerolog.Nop())

		w := serve(http.MethodPost, pattern, target, "", customer, h.Cancel)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"Cancelled"`)
	})

	t.Run("already cancelled", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("CancelOrder", mock.Anything, customer, orderID).Return(nil, model.ErrAlreadyCancelled)
		h := NewOrderHandler(svc, zerolog.Nop())

		w := serve(http.MethodPost, pattern, target, "", customer, h.Cancel)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, model.ErrCodeAlreadyCancelled, errorCode(t, w))
	})
}

func TestOrderHandler_UpdateStatus(t *testing.T) {
	orderID := uuid.New()
	admin := model.Actor{UserID: "ops", Role: model.RoleAdmin}
	pattern := "/api/orders/{orderID}/status"
	target := "/api/orders/" + orderID.String() + "/status"

	t.Run("shipped", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("UpdateStatus", mock.Anything, orderID, model.StatusShipped).Return(&model.Order{ID: orderID, Status: model.StatusShipped}, nil)
		h := NewOrderHandler(svc, zerolog.Nop())

		w := serve(http.MethodPatch, pattern, target, `{"status":"Shipped"}`, admin, h.UpdateStatus)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown status", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("UpdateStatus", mock.Anything, orderID, model.OrderStatus("Lost")).Return(nil, model.ErrInvalidStatus)
		h := NewOrderHandler(svc, zerolog.Nop())

		w := serve(http.MethodPatch, pattern, target, `{"status":"Lost"}`, admin, h.UpdateStatus)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, model.ErrCodeInvalidStatus, errorCode(t, w))
	})
}
