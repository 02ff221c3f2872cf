package handler

import (
	"net/http"

	"checkout-core/internal/model"
	"checkout-core/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// InventoryHandler handles stock queries and restocking.
type InventoryHandler struct {
	service service.InventoryService
	logger  zerolog.Logger
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(service service.InventoryService, logger zerolog.Logger) *InventoryHandler {
	return &InventoryHandler{
		service: service,
		logger:  logger.With().Str("handler", "inventory").Logger(),
	}
}

// GetStock handles GET /api/products/{productID}/stock.
func (h *InventoryHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	level, err := h.service.GetStock(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, level)
}

// Restock handles POST /api/products/{productID}/restock.
func (h *InventoryHandler) Restock(w http.ResponseWriter, r *http.Request) {
	var req model.RestockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	level, err := h.service.Restock(r.Context(), chi.URLParam(r, "productID"), req.Quantity)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, level)
}
