package model

import (
	"errors"
	"fmt"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// ErrorKind classifies a domain error. Callers branch on the kind, never on the message.
type ErrorKind string

const (
	KindNotFound          ErrorKind = "not_found"
	KindValidation        ErrorKind = "validation"
	KindConflict          ErrorKind = "conflict"
	KindInsufficientStock ErrorKind = "insufficient_stock"
	KindExpired           ErrorKind = "expired"
	KindUsageExceeded     ErrorKind = "usage_exceeded"
	KindInternal          ErrorKind = "internal"
)

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON       = "INVALID_JSON"
	ErrCodeMissingField      = "MISSING_FIELD"
	ErrCodeValidation        = "VALIDATION_FAILED"
	ErrCodeInvalidQuantity   = "INVALID_QUANTITY"
	ErrCodeInvalidAddress    = "INVALID_ADDRESS"
	ErrCodeInvalidDiscount   = "INVALID_DISCOUNT"
	ErrCodeInvalidStatus     = "INVALID_STATUS"
	ErrCodeEmptyCart         = "EMPTY_CART"
	ErrCodeMinimumPurchase   = "MINIMUM_PURCHASE_NOT_MET"
	ErrCodeProductNotFound   = "PRODUCT_NOT_FOUND"
	ErrCodeCartNotFound      = "CART_NOT_FOUND"
	ErrCodeCartItemNotFound  = "CART_ITEM_NOT_FOUND"
	ErrCodeCouponNotFound    = "COUPON_NOT_FOUND"
	ErrCodeOrderNotFound     = "ORDER_NOT_FOUND"
	ErrCodeAddressNotFound   = "ADDRESS_NOT_FOUND"
	ErrCodeCouponExists      = "COUPON_EXISTS"
	ErrCodeCouponApplied     = "COUPON_ALREADY_APPLIED"
	ErrCodeCartChanged       = "CART_CHANGED"
	ErrCodeAlreadyCancelled  = "ALREADY_CANCELLED"
	ErrCodeOrderClosed       = "ORDER_CLOSED"
	ErrCodeCheckoutInFlight  = "CHECKOUT_IN_PROGRESS"
	ErrCodeInsufficientStock = "INSUFFICIENT_STOCK"
	ErrCodeCouponExpired     = "COUPON_EXPIRED"
	ErrCodeUsageExceeded     = "COUPON_USAGE_EXCEEDED"
	ErrCodeUnauthorised      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// DomainError is a business-logic error carrying its taxonomy kind, an API code,
// a user-facing message, the failing operation and an optional cause.
type DomainError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Op      string
	Err     error
}

func (e *DomainError) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError with the same code, so a sentinel compares equal to
// the same failure raised with a more specific message.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// WithOp returns a copy of e tagged with the operation that raised it.
func (e *DomainError) WithOp(op string) *DomainError {
	c := *e
	c.Op = op
	return &c
}

// Withf returns a copy of e with a formatted message.
func (e *DomainError) Withf(format string, args ...any) *DomainError {
	c := *e
	c.Message = fmt.Sprintf(format, args...)
	return &c
}

// Common domain errors
var (
	ErrInvalidQuantity   = NewDomainError(KindValidation, ErrCodeInvalidQuantity, "Quantity must be greater than zero and within available stock")
	ErrInvalidAddress    = NewDomainError(KindValidation, ErrCodeInvalidAddress, "Exactly one of addressId or address must be supplied")
	ErrInvalidDiscount   = NewDomainError(KindValidation, ErrCodeInvalidDiscount, "Discount value is outside the range allowed for its type")
	ErrInvalidStatus     = NewDomainError(KindValidation, ErrCodeInvalidStatus, "Unknown order status")
	ErrEmptyCart         = NewDomainError(KindValidation, ErrCodeEmptyCart, "Cart is empty")
	ErrMinimumPurchase   = NewDomainError(KindValidation, ErrCodeMinimumPurchase, "Cart total is below the coupon minimum purchase amount")
	ErrProductNotFound   = NewDomainError(KindNotFound, ErrCodeProductNotFound, "Product not found")
	ErrCartNotFound      = NewDomainError(KindNotFound, ErrCodeCartNotFound, "Cart not found")
	ErrCartItemNotFound  = NewDomainError(KindNotFound, ErrCodeCartItemNotFound, "Cart item not found")
	ErrCouponNotFound    = NewDomainError(KindNotFound, ErrCodeCouponNotFound, "Coupon not found")
	ErrOrderNotFound     = NewDomainError(KindNotFound, ErrCodeOrderNotFound, "Order not found")
	ErrAddressNotFound   = NewDomainError(KindNotFound, ErrCodeAddressNotFound, "Address not found")
	ErrCouponExists      = NewDomainError(KindConflict, ErrCodeCouponExists, "Coupon code already exists")
	ErrCouponApplied     = NewDomainError(KindConflict, ErrCodeCouponApplied, "Cart already has a coupon applied")
	ErrCartChanged       = NewDomainError(KindConflict, ErrCodeCartChanged, "Cart was modified concurrently, please retry")
	ErrAlreadyCancelled  = NewDomainError(KindConflict, ErrCodeAlreadyCancelled, "Order is already cancelled")
	ErrOrderClosed       = NewDomainError(KindConflict, ErrCodeOrderClosed, "Order can no longer change status")
	ErrCheckoutInFlight  = NewDomainError(KindConflict, ErrCodeCheckoutInFlight, "A checkout with this idempotency key is in progress")
	ErrInsufficientStock = NewDomainError(KindInsufficientStock, ErrCodeInsufficientStock, "Insufficient stock")
	ErrCouponExpired     = NewDomainError(KindExpired, ErrCodeCouponExpired, "Coupon has expired")
	ErrUsageExceeded     = NewDomainError(KindUsageExceeded, ErrCodeUsageExceeded, "Coupon usage limit reached")
)

// ValidationError builds a validation failure with a free-form message.
func ValidationError(op, message string) *DomainError {
	return &DomainError{Kind: KindValidation, Code: ErrCodeValidation, Message: message, Op: op}
}

// InternalError wraps a storage or infrastructure failure.
func InternalError(op string, err error) *DomainError {
	return &DomainError{Kind: KindInternal, Code: ErrCodeInternalError, Message: "internal error", Op: op, Err: err}
}

// KindOf extracts the taxonomy kind of err. Errors outside the taxonomy are internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// CodeOf extracts the API code of err.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrCodeInternalError
}

// MessageOf returns a message safe to show to callers. Internal details are hidden.
func MessageOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) && de.Kind != KindInternal {
		return de.Message
	}
	return "An internal error occurred. Please try again later."
}
