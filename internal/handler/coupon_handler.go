package handler

import (
	"net/http"

	"checkout-core/internal/model"
	"checkout-core/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// CouponHandler handles coupon administration and lookups.
type CouponHandler struct {
	service service.CouponService
	logger  zerolog.Logger
}

// NewCouponHandler creates a new coupon handler.
func NewCouponHandler(service service.CouponService, logger zerolog.Logger) *CouponHandler {
	return &CouponHandler{
		service: service,
		logger:  logger.With().Str("handler", "coupon").Logger(),
	}
}

// Create handles POST /api/coupons.
func (h *CouponHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateCouponRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	coupon, err := h.service.CreateCoupon(r.Context(), &req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, coupon)
}

// Validate handles GET /api/coupons/{code}/validate.
func (h *CouponHandler) Validate(w http.ResponseWriter, r *http.Request) {
	coupon, err := h.service.Validate(r.Context(), chi.URLParam(r, "code"), actorOf(r).UserID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, coupon)
}
