package handler

import (
	"net/http"

	"checkout-core/internal/model"
	"checkout-core/internal/service"

	"github.com/rs/zerolog"
)

// HeaderIdempotencyKey lets a client retry a checkout without placing a second order.
const HeaderIdempotencyKey = "Idempotency-Key"

// CheckoutHandler handles checkout requests.
type CheckoutHandler struct {
	service service.CheckoutService
	logger  zerolog.Logger
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(service service.CheckoutService, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		logger:  logger.With().Str("handler", "checkout").Logger(),
	}
}

// Checkout handles POST /api/checkout.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req model.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}
	req.IdempotencyKey = r.Header.Get(HeaderIdempotencyKey)

	order, err := h.service.Checkout(r.Context(), actorOf(r), &req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}
