package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsMatchesByCode(t *testing.T) {
	err := ErrInsufficientStock.WithOp("stock.decrement").Withf("only %d left of %s", 3, "P002")

	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.False(t, errors.Is(err, ErrInvalidQuantity))
	assert.Equal(t, "stock.decrement: only 3 left of P002", err.Error())
}

func TestDomainError_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("checkout: %w", ErrAlreadyCancelled)

	assert.True(t, errors.Is(wrapped, ErrAlreadyCancelled))
	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.Equal(t, ErrCodeAlreadyCancelled, CodeOf(wrapped))
}

func TestInternalError(t *testing.T) {
	cause := errors.New("connection refused")
	err := InternalError("cart.add", cause)

	assert.Equal(t, KindInternal, KindOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NotContains(t, MessageOf(err), "connection refused")
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorKind
	}{
		{name: "Nil", err: nil, expected: ""},
		{name: "Plain error", err: errors.New("boom"), expected: KindInternal},
		{name: "Not found", err: ErrCartNotFound, expected: KindNotFound},
		{name: "Validation", err: ValidationError("op", "bad"), expected: KindValidation},
		{name: "Expired", err: ErrCouponExpired, expected: KindExpired},
		{name: "Usage exceeded", err: ErrUsageExceeded, expected: KindUsageExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, KindOf(tt.err))
		})
	}
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "Coupon has expired", MessageOf(ErrCouponExpired))
	assert.Equal(t, "An internal error occurred. Please try again later.", MessageOf(errors.New("secret")))
}

func TestOrderStatus(t *testing.T) {
	assert.True(t, StatusShipped.Valid())
	assert.False(t, OrderStatus("Lost").Valid())
	assert.True(t, StatusPending.Cancellable())
	assert.False(t, StatusDelivered.Cancellable())
	assert.False(t, StatusCancelled.Cancellable())
}
