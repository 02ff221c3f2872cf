package handler

import (
	"net/http"
	"testing"

	"checkout-core/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestCheckoutHandler_Checkout(t *testing.T) {
	cartID := uuid.New()
	body := `{"cartId":"` + cartID.String() + `","address":{"line1":"1 Main St","city":"Springfield","postalCode":"12345","country":"US"}}`

	t.Run("passes idempotency key", func(t *testing.T) {
		svc := new(MockCheckoutService)
		order := &model.Order{ID: uuid.New(), Status: model.StatusPending, TotalPrice: decimal.NewFromInt(35)}
		svc.On("Checkout", mock.Anything, customer, mock.MatchedBy(func(req *model.CheckoutRequest) bool {
			return req.CartID == cartID && req.IdempotencyKey == "key-1" && req.Address != nil && req.Address.City == "Springfield"
		})).Return(order, nil)
		h := NewCheckoutHandler(svc, zerolog.Nop())

		w := serve(http.MethodPost, "/api/checkout", "/api/checkout", body, customer, h.Checkout, HeaderIdempotencyKey, "key-1")

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"Pending"`)
		svc.AssertExpectations(t)
	})

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{name: "insufficient stock", err: model.ErrInsufficientStock.Withf("only 3 of B left"), expectedStatus: http.StatusConflict, expectedCode: model.ErrCodeInsufficientStock},
		{name: "empty cart", err: model.ErrEmptyCart, expectedStatus: http.StatusBadRequest, expectedCode: model.ErrCodeEmptyCart},
		{name: "in flight", err: model.ErrCheckoutInFlight, expectedStatus: http.StatusConflict, expectedCode: model.ErrCodeCheckoutInFlight},
		{name: "cart mismatch", err: model.ErrCartNotFound, expectedStatus: http.StatusNotFound, expectedCode: model.ErrCodeCartNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockCheckoutService)
			svc.On("Checkout", mock.Anything, customer, mock.Anything).Return(nil, tt.err)
			h := NewCheckoutHandler(svc, zerolog.Nop())

			w := serve(http.MethodPost, "/api/checkout", "/api/checkout", body, customer, h.Checkout)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedCode, errorCode(t, w))
		})
	}

	t.Run("invalid body", func(t *testing.T) {
		svc := new(MockCheckoutService)
		h := NewCheckoutHandler(svc, zerolog.Nop())

		w := serve(http.MethodPost, "/api/checkout", "/api/checkout", `{"cartId":"nope"}`, customer, h.Checkout)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Checkout", mock.Anything, mock.Anything, mock.Anything)
	})
}
