package handler

import (
	"net/http"

	"checkout-core/internal/model"
	"checkout-core/internal/service"

	"github.com/rs/zerolog"
)

// CartHandler handles cart-related HTTP requests.
type CartHandler struct {
	carts   service.CartService
	coupons service.CouponService
	logger  zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(carts service.CartService, coupons service.CouponService, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		carts:   carts,
		coupons: coupons,
		logger:  logger.With().Str("handler", "cart").Logger(),
	}
}

// Get handles GET /api/cart.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.GetCart(r.Context(), actorOf(r).UserID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// Clear handles DELETE /api/cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.ClearCart(r.Context(), actorOf(r).UserID); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddItem handles POST /api/cart/items.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req model.AddItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	cart, err := h.carts.AddItem(r.Context(), actorOf(r).UserID, &req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// UpdateItem handles PATCH /api/cart/items/{itemID}.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := uuidParam(r, "itemID")
	if !ok {
		writeBadRequest(w, r, model.ErrCodeValidation, "invalid item ID format", h.logger)
		return
	}

	var req model.UpdateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	cart, err := h.carts.UpdateItem(r.Context(), actorOf(r).UserID, itemID, req.Action)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// RemoveItem handles DELETE /api/cart/items/{itemID}.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := uuidParam(r, "itemID")
	if !ok {
		writeBadRequest(w, r, model.ErrCodeValidation, "invalid item ID format", h.logger)
		return
	}

	cart, err := h.carts.RemoveItem(r.Context(), actorOf(r).UserID, itemID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// ApplyCoupon handles POST /api/cart/{cartID}/coupon.
func (h *CartHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	cartID, ok := uuidParam(r, "cartID")
	if !ok {
		writeBadRequest(w, r, model.ErrCodeValidation, "invalid cart ID format", h.logger)
		return
	}

	var req model.ApplyCouponRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}
	if req.Code == "" {
		writeBadRequest(w, r, model.ErrCodeMissingField, "code is required", h.logger)
		return
	}

	cart, err := h.coupons.ApplyCoupon(r.Context(), actorOf(r).UserID, cartID, req.Code)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}
